package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chatlog-bot/internal/model"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scope := store.Acquire(ctx)

	first, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 1001, Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	assert.True(t, first.IsActive)

	again, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 1001})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, scope.db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateDistinctIdentities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scope := store.Acquire(ctx)

	a, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 1})
	require.NoError(t, err)
	b, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 2})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)

	var count int64
	require.NoError(t, scope.db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGetOrCreateConcurrentFirstContact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scope := store.Acquire(ctx)
			_, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 777, Username: "racer"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, store.Acquire(ctx).db.Model(&model.User{}).Where("telegram_id = ?", 777).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// A rival writer inserts the same telegram_id between the lookup and the
// insert; the unique index rejects our insert and GetOrCreate must hand back
// the rival's row instead of an error.
func TestGetOrCreateDuplicateInsertRace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var once sync.Once
	err := store.db.Callback().Create().Before("gorm:begin_transaction").Register("test:rival_insert", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*model.User); !ok {
			return
		}
		once.Do(func() {
			now := time.Now().UTC()
			require.NoError(t, store.db.Exec(
				"INSERT INTO users (telegram_id, username, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				int64(555), "rival", true, now, now,
			).Error)
		})
	})
	require.NoError(t, err)

	scope := store.Acquire(ctx)
	user, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 555, Username: "loser"})
	require.NoError(t, err)
	assert.Equal(t, "rival", user.Username)

	var count int64
	require.NoError(t, scope.db.Model(&model.User{}).Where("telegram_id = ?", 555).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStatsCountsLive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scope := store.Acquire(ctx)

	user, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 42, Username: "bob"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, scope.Messages.Save(ctx, user.ID, i, "ping", 42))
	}

	stats, err := scope.Users.Stats(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int64(3), stats.MessageCount)
	assert.Equal(t, user.ID, stats.User.ID)
	assert.Equal(t, user.CreatedAt.Unix(), stats.CreatedAt.Unix())

	require.NoError(t, scope.Messages.Save(ctx, user.ID, 99, "one more", 42))
	stats, err = scope.Users.Stats(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.MessageCount)
}

func TestStatsUnknownIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stats, err := store.Acquire(ctx).Users.Stats(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestListActiveSkipsInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scope := store.Acquire(ctx)

	active, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 1})
	require.NoError(t, err)
	inactive, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 2})
	require.NoError(t, err)
	require.NoError(t, scope.db.Model(inactive).Update("is_active", false).Error)

	users, err := scope.Users.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, active.ID, users[0].ID)
}
