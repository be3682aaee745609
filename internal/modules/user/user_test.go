package user

import (
	"context"
	"testing"
	"time"

	"github.com/georgemunganga/shopu-backend/internal/platform/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsInstitutionalEmail(t *testing.T) {
	tests := map[string]bool{
		"ana@correounivalle.edu.co":          true,
		" PEDRO@Univalle.edu.co ":            true,
		"luis@estudiantes.univalle.edu.co":   true,
		"someone@gmail.com":                  false,
		"univalle.edu.co@gmail.com":          false,
		"ana@correounivalle.edu.co.evil.com": false,
		"":                                   false,
	}
	for email, want := range tests {
		assert.Equal(t, want, IsInstitutionalEmail(email), email)
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Admin ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)
	assert.True(t, r.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())

	_, ok = ParseRole("root")
	assert.False(t, ok)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewMemoryRepository(docstore.New())
	svc := NewService(repo, zap.NewNop())
	c := &clock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	svc.(*service).now = c.now
	return svc, repo
}

func TestWorkers(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddWorker(ctx, "Pedro@univalle.edu.co")
	require.NoError(t, err)
	assert.Equal(t, "pedro@univalle.edu.co", first.Email)
	assert.Equal(t, RoleWorker, first.Role)
	require.NotNil(t, first.WorkerSince)

	_, err = svc.AddWorker(ctx, "maria@correounivalle.edu.co")
	require.NoError(t, err)

	again, err := svc.AddWorker(ctx, "pedro@univalle.edu.co")
	require.NoError(t, err)
	assert.Equal(t, *first.WorkerSince, *again.WorkerSince, "re-adding keeps the original date")

	workers, err := svc.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "maria@correounivalle.edu.co", workers[0].Email, "newest first")

	require.NoError(t, svc.RemoveWorker(ctx, "pedro@univalle.edu.co"))
	u, err := repo.GetUser(ctx, "pedro@univalle.edu.co")
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.Nil(t, u.WorkerSince)

	assert.ErrorIs(t, svc.RemoveWorker(ctx, "pedro@univalle.edu.co"), ErrNotWorker)
	assert.ErrorIs(t, svc.RemoveWorker(ctx, "nobody@univalle.edu.co"), ErrUserNotFound)
}

func TestAddWorkerRejections(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveUser(ctx, &User{Email: "admin@univalle.edu.co", Role: RoleAdmin}))

	_, err := svc.AddWorker(ctx, "someone@gmail.com")
	assert.ErrorIs(t, err, ErrNotInstitutional)

	_, err = svc.AddWorker(ctx, "admin@univalle.edu.co")
	assert.ErrorIs(t, err, ErrAdminRoleIsImmutable)

	u, err := repo.GetUser(ctx, "admin@univalle.edu.co")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestSaveProfileKeepsRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.AddWorker(ctx, "pedro@univalle.edu.co")
	require.NoError(t, err)

	u, err := svc.SaveProfile(ctx, "pedro@univalle.edu.co", " Pedro ", "Gómez")
	require.NoError(t, err)
	assert.Equal(t, "Pedro Gómez", u.FullName())
	assert.Equal(t, RoleWorker, u.Role)

	_, err = svc.SaveProfile(ctx, "  ", "x", "y")
	assert.ErrorIs(t, err, ErrEmailRequired)
}

func TestObserveWorkers(t *testing.T) {
	svc, _ := newTestService(t)
	var seen []int
	cancel, err := svc.ObserveWorkers(func(ws []*User) { seen = append(seen, len(ws)) })
	require.NoError(t, err)

	_, err = svc.AddWorker(context.Background(), "pedro@univalle.edu.co")
	require.NoError(t, err)
	cancel()
	_, err = svc.AddWorker(context.Background(), "maria@univalle.edu.co")
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, seen)
}
