package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

type service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewService creates a new user service.
func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log, now: time.Now}
}

func (s *service) GetUser(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	return s.repo.GetUser(ctx, email)
}

func (s *service) SaveProfile(ctx context.Context, email, firstName, lastName string) (*User, error) {
	u, err := s.getOrNew(ctx, email)
	if err != nil {
		return nil, err
	}
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return u, nil
}

func (s *service) ListWorkers(ctx context.Context) ([]*User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return workersOf(users), nil
}

func (s *service) AddWorker(ctx context.Context, email string) (*User, error) {
	if !IsInstitutionalEmail(email) {
		return nil, ErrNotInstitutional
	}
	u, err := s.getOrNew(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Role == RoleAdmin {
		return nil, ErrAdminRoleIsImmutable
	}
	if u.Role != RoleWorker {
		since := s.now().UnixMilli()
		u.Role = RoleWorker
		u.WorkerSince = &since
	}
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save worker: %w", err)
	}
	s.log.Info("worker added", zap.String("email", u.Email))
	return u, nil
}

func (s *service) RemoveWorker(ctx context.Context, email string) error {
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return err
	}
	if u.Role != RoleWorker {
		return ErrNotWorker
	}
	u.Role = RoleCustomer
	u.WorkerSince = nil
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	s.log.Info("worker removed", zap.String("email", u.Email))
	return nil
}

func (s *service) ObserveWorkers(fn func([]*User)) (func(), error) {
	return s.repo.Watch(func(users []*User) { fn(workersOf(users)) })
}

func (s *service) getOrNew(ctx context.Context, email string) (*User, error) {
	u, err := s.GetUser(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return &User{Email: NormalizeEmail(email), Role: RoleCustomer}, nil
	}
	return u, err
}

// workersOf keeps workers, most recently added first.
func workersOf(users []*User) []*User {
	out := make([]*User, 0, len(users))
	for _, u := range users {
		if u.Role == RoleWorker {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return since(out[i]) > since(out[j])
	})
	return out
}

func since(u *User) int64 {
	if u.WorkerSince == nil {
		return 0
	}
	return *u.WorkerSince
}
