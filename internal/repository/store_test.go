package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chatlog-bot/internal/model"
)

func TestTransactCommitsOnNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Transact(ctx, func(scope *Scope) error {
		_, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 100})
		return err
	})
	require.NoError(t, err)

	user, err := store.Acquire(ctx).Users.FindByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
}

func TestTransactRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transact(ctx, func(scope *Scope) error {
		if _, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 200}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Acquire(ctx).Users.FindByTelegramID(ctx, 200)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// Mirrors one full chat: first contact with "hi", then "hello", then a stats
// request.
func TestMessageFlowScenario(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// "hi" arrives from identity 1001.
	scope := store.Acquire(ctx)
	user, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 1001, Username: "scenario"})
	require.NoError(t, err)
	require.NoError(t, scope.Messages.Save(ctx, user.ID, 1, "hi", 1001))

	stats, err := scope.Users.Stats(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MessageCount)

	// "hello" arrives in a fresh cycle, then the stats command.
	scope = store.Acquire(ctx)
	user, err = scope.Users.GetOrCreate(ctx, Identity{TelegramID: 1001})
	require.NoError(t, err)
	require.NoError(t, scope.Messages.Save(ctx, user.ID, 2, "hello", 1001))

	stats, err = scope.Users.Stats(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.MessageCount)

	messages, err := scope.Messages.RecentByUser(ctx, user.ID, 5)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Text)
	assert.Equal(t, "hi", messages[1].Text)
}

// A failure later in the handling cycle must not take down rows already
// written by earlier steps.
func TestCommittedRowsSurviveLaterFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scope := store.Acquire(ctx)

	user, err := scope.Users.GetOrCreate(ctx, Identity{TelegramID: 300})
	require.NoError(t, err)
	require.NoError(t, scope.Messages.Save(ctx, user.ID, 1, "kept", 300))

	// Simulated store-level failure: a constraint violation in the same cycle.
	dup := model.User{TelegramID: 300}
	err = scope.db.Create(&dup).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var users, messages int64
	require.NoError(t, scope.db.Model(&model.User{}).Count(&users).Error)
	require.NoError(t, scope.db.Model(&model.Message{}).Count(&messages).Error)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(1), messages)
}
