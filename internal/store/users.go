package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
)

const userColumns = `id, org_id, email, name, role, password_hash, created_at`

// CreateOrganization registers an organization together with its first owner.
func (s *Store) CreateOrganization(ctx context.Context, org *hiring.Organization, owner *auth.User) error {
	now := s.timestamp()
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if org.Plan == "" {
		org.Plan = "free"
	}
	org.CreatedAt = now

	owner.OrgID = org.ID
	owner.Role = auth.RoleOwner

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx,
			`INSERT INTO organizations (id, name, slug, plan, created_at) VALUES (?, ?, ?, ?, ?)`,
			org.ID, org.Name, org.Slug, org.Plan, org.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert organization: %w", convertError(err))
		}
		return s.insertUser(ctx, tx, owner)
	})
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*hiring.Organization, error) {
	var org hiring.Organization
	err := s.queryRow(ctx, s.db,
		`SELECT id, name, slug, plan, created_at FROM organizations WHERE id = ?`, id).
		Scan(&org.ID, &org.Name, &org.Slug, &org.Plan, &org.CreatedAt)
	if err != nil {
		return nil, convertError(err)
	}
	return &org, nil
}

// CreateUser adds a team member to user.OrgID.
func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	return s.insertUser(ctx, s.db, user)
}

func (s *Store) insertUser(ctx context.Context, q querier, user *auth.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = s.timestamp()

	_, err := s.exec(ctx, q,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.OrgID, user.Email, user.Name, string(user.Role), user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", convertError(err))
	}
	return nil
}

// GetUserByEmail looks a user up across organizations; emails are globally unique.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return scanUser(s.queryRow(ctx, s.db,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email)))
}

func (s *Store) GetUser(ctx context.Context, orgID, id string) (*auth.User, error) {
	return scanUser(s.queryRow(ctx, s.db,
		`SELECT `+userColumns+` FROM users WHERE org_id = ? AND id = ?`, orgID, id))
}

func (s *Store) ListUsers(ctx context.Context, orgID string) ([]*auth.User, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+userColumns+` FROM users WHERE org_id = ? ORDER BY created_at, email`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserRole changes a member's role. Demoting the last owner fails with ErrLastOwner.
func (s *Store) UpdateUserRole(ctx context.Context, orgID, userID string, role auth.Role) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockOrganization(ctx, tx, orgID); err != nil {
			return err
		}
		current, err := scanUser(s.queryRow(ctx, tx,
			`SELECT `+userColumns+` FROM users WHERE org_id = ? AND id = ?`, orgID, userID))
		if err != nil {
			return err
		}
		if current.Role == auth.RoleOwner && role != auth.RoleOwner {
			if err := s.ensureAnotherOwner(ctx, tx, orgID); err != nil {
				return err
			}
		}

		res, err := s.exec(ctx, tx, `UPDATE users SET role = ? WHERE org_id = ? AND id = ?`,
			string(role), orgID, userID)
		if err != nil {
			return fmt.Errorf("update user role: %w", err)
		}
		return affected(res)
	})
}

// DeleteUser removes a member. Removing the last owner fails with ErrLastOwner.
func (s *Store) DeleteUser(ctx context.Context, orgID, userID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockOrganization(ctx, tx, orgID); err != nil {
			return err
		}
		current, err := scanUser(s.queryRow(ctx, tx,
			`SELECT `+userColumns+` FROM users WHERE org_id = ? AND id = ?`, orgID, userID))
		if err != nil {
			return err
		}
		if current.Role == auth.RoleOwner {
			if err := s.ensureAnotherOwner(ctx, tx, orgID); err != nil {
				return err
			}
		}

		res, err := s.exec(ctx, tx, `DELETE FROM users WHERE org_id = ? AND id = ?`, orgID, userID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return affected(res)
	})
}

// lockOrganization serializes role changes within an organization so that two
// transactions cannot each count the other's owner. The no-op update holds the
// row lock on Postgres and the write lock on SQLite until commit.
func (s *Store) lockOrganization(ctx context.Context, tx *sql.Tx, orgID string) error {
	if _, err := s.exec(ctx, tx, `UPDATE organizations SET plan = plan WHERE id = ?`, orgID); err != nil {
		return fmt.Errorf("lock organization: %w", err)
	}
	return nil
}

func (s *Store) CountOwners(ctx context.Context, orgID string) (int, error) {
	return s.countOwners(ctx, s.db, orgID)
}

func (s *Store) countOwners(ctx context.Context, q querier, orgID string) (int, error) {
	var n int
	err := s.queryRow(ctx, q, `SELECT COUNT(*) FROM users WHERE org_id = ? AND role = ?`,
		orgID, string(auth.RoleOwner)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return n, nil
}

func (s *Store) ensureAnotherOwner(ctx context.Context, q querier, orgID string) error {
	n, err := s.countOwners(ctx, q, orgID)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastOwner
	}
	return nil
}

func scanUser(row scanner) (*auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := row.Scan(&u.ID, &u.OrgID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, convertError(err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
