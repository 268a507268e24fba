package auth

import "fmt"

type Role string

const (
	RoleOwner       Role = "owner"
	RoleAdmin       Role = "admin"
	RoleRecruiter   Role = "recruiter"
	RoleInterviewer Role = "interviewer"
	RoleViewer      Role = "viewer"
)

// Permission is an action on a resource.
type Permission string

const (
	JobsRead          Permission = "jobs.read"
	JobsWrite         Permission = "jobs.write"
	CandidatesRead    Permission = "candidates.read"
	CandidatesWrite   Permission = "candidates.write"
	CandidatesDelete  Permission = "candidates.delete"
	CandidatesScreen  Permission = "candidates.screen"
	InterviewsRead    Permission = "interviews.read"
	InterviewsManage  Permission = "interviews.manage"
	InterviewsConduct Permission = "interviews.conduct"
	TeamRead          Permission = "team.read"
	TeamManage        Permission = "team.manage"
	MetricsRead       Permission = "metrics.read"
)

var (
	readOnly = []Permission{JobsRead, CandidatesRead, InterviewsRead, TeamRead}

	interviewer = append([]Permission{InterviewsConduct}, readOnly...)

	recruiter = append([]Permission{
		JobsWrite, CandidatesWrite, CandidatesScreen, InterviewsManage,
	}, interviewer...)

	admin = append([]Permission{CandidatesDelete, TeamManage, MetricsRead}, recruiter...)
)

var rolePermissions = map[Role]map[Permission]bool{
	RoleOwner:       set(admin),
	RoleAdmin:       set(admin),
	RoleRecruiter:   set(recruiter),
	RoleInterviewer: set(interviewer),
	RoleViewer:      set(readOnly),
}

func set(perms []Permission) map[Permission]bool {
	m := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := rolePermissions[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Can(perm Permission) bool {
	return rolePermissions[r][perm]
}

// Outranks reports whether r may assign or remove other.
// Only owners manage owners.
func (r Role) Outranks(other Role) bool {
	if other == RoleOwner {
		return r == RoleOwner
	}
	return r.Can(TeamManage)
}
