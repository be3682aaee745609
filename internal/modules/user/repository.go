package user

import "context"

// Repository defines data access for users.
type Repository interface {
	// GetUser returns ErrUserNotFound for unknown emails.
	GetUser(ctx context.Context, email string) (*User, error)

	ListUsers(ctx context.Context) ([]*User, error)

	// SaveUser creates or replaces the user keyed by email.
	SaveUser(ctx context.Context, u *User) error

	// Watch calls fn with every user now and after each change.
	Watch(fn func([]*User)) (unsubscribe func(), err error)
}
