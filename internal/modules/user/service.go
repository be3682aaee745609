package user

import "context"

// Service defines the interface for user-related business logic.
type Service interface {
	// GetUser returns ErrUserNotFound for emails that never signed in.
	GetUser(ctx context.Context, email string) (*User, error)

	// SaveProfile records the names shown on orders and the workers screen.
	SaveProfile(ctx context.Context, email, firstName, lastName string) (*User, error)

	ListWorkers(ctx context.Context) ([]*User, error)

	// AddWorker promotes an institutional account to worker, creating the
	// user when needed.
	AddWorker(ctx context.Context, email string) (*User, error)

	// RemoveWorker demotes a worker back to customer.
	RemoveWorker(ctx context.Context, email string) error

	// ObserveWorkers calls fn with the worker list now and after each change.
	ObserveWorkers(fn func([]*User)) (unsubscribe func(), err error)
}
