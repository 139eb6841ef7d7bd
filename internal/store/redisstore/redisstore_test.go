package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
	"github.com/brfoley76/PromptingHumanAgent/internal/store/storetest"
)

func openTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(client, "test:")
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := openTestStore(t)
		return s
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	s, mr := openTestStore(t)
	ctx := context.Background()
	key := proficiency.ItemKey("s1", "cat")

	err := s.Update(ctx, []proficiency.Key{key}, func(tx *store.Txn) error {
		return tx.Put(store.Entry{Record: proficiency.NewRecord(key, proficiency.DefaultPrior())})
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:rec:s1/item/cat"))
	members, err := mr.SMembers("test:student:s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1/item/cat"}, members)
}

func TestRedisStore_WatchConflict(t *testing.T) {
	s, mr := openTestStore(t)
	ctx := context.Background()
	key := proficiency.ItemKey("s1", "cat")

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer other.Close()

	err := s.Update(ctx, []proficiency.Key{key}, func(tx *store.Txn) error {
		// Another writer touches the watched key mid-unit.
		raw := `{"student_id":"s1","level":"item","identifier":"cat","alpha":5,"beta":1}`
		require.NoError(t, other.Set(ctx, "test:rec:s1/item/cat", raw, 0).Err())
		return tx.Put(store.Entry{Record: proficiency.NewRecord(key, proficiency.DefaultPrior())})
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.0, got.Alpha, "the concurrent write wins")
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}
