package user

import (
	"context"
	"fmt"

	"github.com/georgemunganga/shopu-backend/internal/platform/docstore"
)

const usersCollection = "users"

type userDoc struct {
	FirstName   string `doc:"firstName"`
	LastName    string `doc:"lastName"`
	Role        string `doc:"role"`
	WorkerSince *int64 `doc:"workerSince"`
}

type memoryRepository struct{ store *docstore.Store }

func NewMemoryRepository(store *docstore.Store) Repository {
	return &memoryRepository{store: store}
}

func (r *memoryRepository) GetUser(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	doc, ok := r.store.Get(usersCollection, email)
	if !ok {
		return nil, ErrUserNotFound
	}
	return userFromDocument(email, doc)
}

func (r *memoryRepository) ListUsers(ctx context.Context) ([]*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeUsers(r.store.List(usersCollection)), nil
}

func (r *memoryRepository) SaveUser(ctx context.Context, u *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := docstore.Document{
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"role":      string(u.Role),
	}
	if u.WorkerSince != nil {
		doc["workerSince"] = *u.WorkerSince
	}
	r.store.Set(usersCollection, NormalizeEmail(u.Email), doc)
	return nil
}

func (r *memoryRepository) Watch(fn func([]*User)) (func(), error) {
	return r.store.Subscribe(usersCollection, func(snaps []docstore.Snapshot) {
		fn(decodeUsers(snaps))
	}), nil
}

func userFromDocument(email string, doc docstore.Document) (*User, error) {
	var d userDoc
	if err := docstore.Decode(doc, &d); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", email, err)
	}
	role, ok := ParseRole(d.Role)
	if !ok {
		role = RoleCustomer
	}
	return &User{
		Email:       email,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Role:        role,
		WorkerSince: d.WorkerSince,
	}, nil
}

func decodeUsers(snaps []docstore.Snapshot) []*User {
	users := make([]*User, 0, len(snaps))
	for _, s := range snaps {
		if u, err := userFromDocument(s.ID, s.Data); err == nil {
			users = append(users, u)
		}
	}
	return users
}
