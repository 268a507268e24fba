package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL = 24 * time.Hour
	minSecretLength = 32
	issuer          = "devmeet"
)

// TokenManager issues and validates HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the user and returns it with its expiry.
func (m *TokenManager) Issue(user *User) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"org_id":  user.OrgID,
		"email":   user.Email,
		"role":    string(user.Role),
		"iss":     issuer,
		"exp":     expires.Unix(),
		"iat":     now.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates the token and returns the principal it names.
func (m *TokenManager) Parse(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	p := &Principal{
		UserID: stringClaim(claims, "user_id"),
		OrgID:  stringClaim(claims, "org_id"),
		Email:  stringClaim(claims, "email"),
	}
	role, err := ParseRole(stringClaim(claims, "role"))
	if err != nil || p.UserID == "" || p.OrgID == "" {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	p.Role = role

	return p, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
