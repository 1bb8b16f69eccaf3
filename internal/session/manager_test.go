package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sujalbistaa/crown/internal/db/dbtest"
	"github.com/sujalbistaa/crown/internal/identity"
	"github.com/sujalbistaa/crown/internal/models"
)

type fixture struct {
	manager *Manager
	users   *identity.Store
	clock   time.Time
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()

	database := dbtest.Open(t)
	f := &fixture{
		users: identity.NewStore(database).WithCost(bcrypt.MinCost),
		clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.manager = NewManager(database, f.users, ttl)
	f.manager.now = func() time.Time { return f.clock }

	return f
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()

	user, err := f.users.RegisterLocal(context.Background(), username, "", "hunter22")
	require.NoError(t, err)

	return user
}

func TestEstablishAndResolve(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	bob := f.register(t, "bob")

	token, err := f.manager.Establish(ctx, bob)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(token), 43)

	user, ok := f.manager.Resolve(ctx, token)
	require.True(t, ok)
	assert.Equal(t, bob.ID, user.ID)

	// Tokens are unique per session.
	other, err := f.manager.Establish(ctx, bob)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestEstablish_RejectsUnsavedUser(t *testing.T) {
	f := newFixture(t, time.Hour)

	_, err := f.manager.Establish(context.Background(), &models.User{})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.manager.Establish(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResolve_Anonymous(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		user, ok := f.manager.Resolve(ctx, token)
		assert.False(t, ok, "token %q", token)
		assert.Nil(t, user)
	}
}

func TestResolve_Expired(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	bob := f.register(t, "bob")

	token, err := f.manager.Establish(ctx, bob)
	require.NoError(t, err)

	f.clock = f.clock.Add(59 * time.Minute)
	_, ok := f.manager.Resolve(ctx, token)
	assert.True(t, ok)

	f.clock = f.clock.Add(time.Minute)
	_, ok = f.manager.Resolve(ctx, token)
	assert.False(t, ok)
}

func TestTerminate(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	bob := f.register(t, "bob")

	token, err := f.manager.Establish(ctx, bob)
	require.NoError(t, err)

	require.NoError(t, f.manager.Terminate(ctx, token))
	_, ok := f.manager.Resolve(ctx, token)
	assert.False(t, ok)

	// Terminating again, or an unknown token, is fine.
	assert.NoError(t, f.manager.Terminate(ctx, token))
	assert.NoError(t, f.manager.Terminate(ctx, "unknown"))
	assert.NoError(t, f.manager.Terminate(ctx, ""))
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	bob := f.register(t, "bob")

	old, err := f.manager.Establish(ctx, bob)
	require.NoError(t, err)

	f.clock = f.clock.Add(30 * time.Minute)
	fresh, err := f.manager.Establish(ctx, bob)
	require.NoError(t, err)

	f.clock = f.clock.Add(45 * time.Minute)
	n, err := f.manager.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, ok := f.manager.Resolve(ctx, old)
	assert.False(t, ok)
	_, ok = f.manager.Resolve(ctx, fresh)
	assert.True(t, ok)
}

func TestResolve_DeletedUser(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	bob := f.register(t, "bob")

	token, err := f.manager.Establish(ctx, bob)
	require.NoError(t, err)

	require.NoError(t, f.manager.db.Delete(&models.User{}, bob.ID).Error)

	_, ok := f.manager.Resolve(ctx, token)
	assert.False(t, ok)
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	h := hashToken("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, hashToken("abc"))
	assert.NotEqual(t, h, hashToken("abd"))
}
