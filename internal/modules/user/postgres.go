package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgemunganga/shopu-backend/internal/platform/database"
	"go.uber.org/zap"
)

type postgresRepository struct {
	db       *sql.DB
	notifier *database.Notifier
	log      *zap.Logger
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sql.DB, notifier *database.Notifier, log *zap.Logger) Repository {
	return &postgresRepository{db: db, notifier: notifier, log: log}
}

const selectUser = `SELECT email, first_name, last_name, role, worker_since FROM users`

func (r *postgresRepository) GetUser(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE email = $1`, NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (r *postgresRepository) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *postgresRepository) SaveUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (email, first_name, last_name, role, worker_since)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			role = EXCLUDED.role,
			worker_since = EXCLUDED.worker_since,
			updated_at = NOW()
	`
	var since sql.NullInt64
	if u.WorkerSince != nil {
		since = sql.NullInt64{Int64: *u.WorkerSince, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, NormalizeEmail(u.Email), u.FirstName, u.LastName, string(u.Role), since)
	return err
}

func (r *postgresRepository) Watch(fn func([]*User)) (func(), error) {
	if r.notifier == nil {
		return nil, errors.New("user change notifications are not configured")
	}
	reload := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		users, err := r.ListUsers(ctx)
		if err != nil {
			r.log.Warn("reload users for watchers", zap.Error(err))
			return
		}
		fn(users)
	}
	unsubscribe, err := r.notifier.Subscribe(database.ChannelUsers, reload)
	if err != nil {
		return nil, err
	}
	reload()
	return unsubscribe, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	u := &User{}
	var role string
	var since sql.NullInt64
	if err := row.Scan(&u.Email, &u.FirstName, &u.LastName, &role, &since); err != nil {
		return nil, err
	}
	if r, ok := ParseRole(role); ok {
		u.Role = r
	} else {
		u.Role = RoleCustomer
	}
	if since.Valid {
		v := since.Int64
		u.WorkerSince = &v
	}
	return u, nil
}
