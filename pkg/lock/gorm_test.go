package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLocker(t *testing.T) (*GormLocker, *fakeClock) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewGormLocker(db, WithClock(clock.Now))
	require.NoError(t, l.Migrate(context.Background()))
	return l, clock
}

func TestGormLocker_AcquireAndHeld(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocker(t)

	token, ok, err := l.Acquire(ctx, "feed_process_lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	held, err := l.Held(ctx, "feed_process_lock")
	require.NoError(t, err)
	assert.True(t, held)
}

func TestGormLocker_SecondAcquireFailsWhileHeld(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocker(t)

	_, ok, err := l.Acquire(ctx, "feed_process_lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	token, ok, err := l.Acquire(ctx, "feed_process_lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestGormLocker_ExpiredLockCanBeTakenOver(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLocker(t)

	first, ok, err := l.Acquire(ctx, "feed_process_lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(61 * time.Second)

	held, err := l.Held(ctx, "feed_process_lock")
	require.NoError(t, err)
	assert.False(t, held, "expired lock should not count as held")

	second, ok, err := l.Acquire(ctx, "feed_process_lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, first, second)

	// The stale holder can no longer release the new holder's lock.
	assert.ErrorIs(t, l.Release(ctx, "feed_process_lock", first), core.ErrLockNotHeld)
	held, err = l.Held(ctx, "feed_process_lock")
	require.NoError(t, err)
	assert.True(t, held)
}

func TestGormLocker_ReleaseAllowsReacquire(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocker(t)

	token, ok, err := l.Acquire(ctx, "feed_process_lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, "feed_process_lock", token))

	held, err := l.Held(ctx, "feed_process_lock")
	require.NoError(t, err)
	assert.False(t, held)

	_, ok, err = l.Acquire(ctx, "feed_process_lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGormLocker_LocksAreIndependentByName(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocker(t)

	_, ok, err := l.Acquire(ctx, "a_process_lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "b_process_lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGormLocker_ReleaseUnknownReturnsErrLockNotHeld(t *testing.T) {
	l, _ := newTestLocker(t)

	err := l.Release(context.Background(), "missing", "token")
	assert.ErrorIs(t, err, core.ErrLockNotHeld)
}
