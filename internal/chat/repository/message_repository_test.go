package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"service_marketplace/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore properties every MessageRepository must hold
func exerciseStore(t *testing.T, newRepo func(t *testing.T) MessageRepository) {
	t.Run("append is last in history", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, err := repo.Append(ctx, "alice", "bob", "first")
		require.NoError(t, err)
		msg, err := repo.Append(ctx, "bob", "alice", "second")
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())

		history, err := repo.History(ctx, "alice", "bob")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, msg.ID, history[len(history)-1].ID)
		assert.True(t, history[0].CreatedAt.Before(history[1].CreatedAt))
	})

	t.Run("history is symmetric", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			_, err := repo.Append(ctx, "alice", "bob", fmt.Sprintf("a%d", i))
			require.NoError(t, err)
			_, err = repo.Append(ctx, "bob", "alice", fmt.Sprintf("b%d", i))
			require.NoError(t, err)
		}
		ab, err := repo.History(ctx, "alice", "bob")
		require.NoError(t, err)
		ba, err := repo.History(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
		assert.Len(t, ab, 10)
	})

	t.Run("history of strangers is empty", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Append(context.Background(), "alice", "bob", "hi")
		require.NoError(t, err)

		history, err := repo.History(context.Background(), "alice", "carol")
		require.NoError(t, err)
		assert.NotNil(t, history)
		assert.Empty(t, history)
	})

	t.Run("distinct peers in both directions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, err := repo.Append(ctx, "alice", "bob", "to bob")
		require.NoError(t, err)
		_, err = repo.Append(ctx, "alice", "bob", "again")
		require.NoError(t, err)
		_, err = repo.Append(ctx, "carol", "alice", "to alice")
		require.NoError(t, err)
		_, err = repo.Append(ctx, "bob", "carol", "unrelated")
		require.NoError(t, err)

		peers, err := repo.DistinctPeers(ctx, "alice")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"bob", "carol"}, peers)

		none, err := repo.DistinctPeers(ctx, "dave")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("validation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		cases := []struct{ sender, receiver, body string }{
			{"alice", "bob", ""},
			{"alice", "bob", " \n\t"},
			{"", "bob", "hi"},
			{"alice", "", "hi"},
			{"al ice", "bob", "hi"},
		}
		for _, c := range cases {
			_, err := repo.Append(ctx, c.sender, c.receiver, c.body)
			assert.ErrorIs(t, err, domain.ErrValidation, "%+v", c)
		}

		_, err := repo.History(ctx, "", "bob")
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = repo.DistinctPeers(ctx, "")
		assert.ErrorIs(t, err, domain.ErrValidation)

		history, err := repo.History(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("self chat is stored once", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, err := repo.Append(ctx, "alice", "alice", "note")
		require.NoError(t, err)

		history, err := repo.History(ctx, "alice", "alice")
		require.NoError(t, err)
		assert.Len(t, history, 1)

		peers, err := repo.DistinctPeers(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, peers)
	})

	t.Run("concurrent appends keep per pair order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for _, pair := range [][2]string{{"alice", "bob"}, {"carol", "dave"}, {"erin", "frank"}} {
			wg.Add(1)
			go func(sender, receiver string) {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					_, err := repo.Append(ctx, sender, receiver, fmt.Sprintf("%03d", i))
					assert.NoError(t, err)
				}
			}(pair[0], pair[1])
		}
		wg.Wait()

		history, err := repo.History(ctx, "bob", "alice")
		require.NoError(t, err)
		require.Len(t, history, 20)
		for i, m := range history {
			assert.Equal(t, fmt.Sprintf("%03d", i), m.Body)
		}
	})
}

func TestMemoryMessageRepository(t *testing.T) {
	exerciseStore(t, func(t *testing.T) MessageRepository {
		return NewMemoryMessageRepository(NewClock(nil))
	})
}

func TestMemoryMessageRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryMessageRepository(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Append(ctx, "alice", "bob", "hi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClock_StrictlyIncreasing(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.FixedZone("X", 3600))
	clock := NewClock(func() time.Time { return frozen })

	first := clock.Next()
	second := clock.Next()
	third := clock.Next()

	assert.Equal(t, time.UTC, first.Location())
	assert.Equal(t, 0, first.Nanosecond()%int(time.Millisecond))
	assert.Equal(t, time.Millisecond, second.Sub(first))
	assert.Equal(t, time.Millisecond, third.Sub(second))
}

func TestClock_FollowsWallClockForward(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := NewClock(func() time.Time { return now })

	a := clock.Next()
	now = now.Add(time.Second)
	b := clock.Next()
	assert.Equal(t, time.Second, b.Sub(a))

	// wall clock stepping back never reorders
	now = now.Add(-time.Hour)
	c := clock.Next()
	assert.True(t, c.After(b))
}
