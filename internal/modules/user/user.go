package user

import (
	"errors"
	"strings"
)

// Role decides which screens and endpoints a user may reach.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleWorker   Role = "worker"
	RoleAdmin    Role = "admin"
)

// IsStaff reports whether the role may manage orders and products.
func (r Role) IsStaff() bool { return r == RoleWorker || r == RoleAdmin }

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleWorker, RoleAdmin:
		return r, true
	}
	return "", false
}

// User is a campus account, keyed by email.
type User struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Role        Role   `json:"role"`
	WorkerSince *int64 `json:"worker_since,omitempty"` // epoch milliseconds
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRequired        = errors.New("email is required")
	ErrNotInstitutional     = errors.New("email is not an institutional address")
	ErrNotWorker            = errors.New("user is not a worker")
	ErrAdminRoleIsImmutable = errors.New("admin role cannot be changed here")
)

var institutionalDomains = []string{"@correounivalle.edu.co", "@univalle.edu.co"}

const studentDomain = "@estudiantes.univalle.edu.co"

// IsInstitutionalEmail accepts university staff and student addresses.
func IsInstitutionalEmail(email string) bool {
	e := NormalizeEmail(email)
	for _, d := range institutionalDomains {
		if strings.HasSuffix(e, d) {
			return true
		}
	}
	return strings.Contains(e, studentDomain)
}

// NormalizeEmail is the canonical form used as the user key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
