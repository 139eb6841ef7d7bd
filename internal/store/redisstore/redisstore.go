// Package redisstore implements store.Store on Redis. Each unit of work
// runs as a WATCH/MULTI optimistic transaction over the record keys it
// touches; a concurrent write to any of them aborts the unit with
// store.ErrConflict.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "pha:"

// Store is a Redis-backed store.Store.
type Store struct {
	client *redis.Client
	prefix string
}

var _ store.Store = (*Store)(nil)

// New wraps an existing client. An empty prefix uses DefaultPrefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Open connects to the server at url (redis://[:password@]host:port/db)
// and verifies the connection. Keys are namespaced under prefix.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return New(client, prefix), nil
}

func (s *Store) recordKey(k proficiency.Key) string { return s.prefix + "rec:" + k.String() }
func (s *Store) studentKey(id string) string        { return s.prefix + "student:" + id }
func (s *Store) studentsKey() string                { return s.prefix + "students" }

func (s *Store) Update(ctx context.Context, keys []proficiency.Key, fn func(*store.Txn) error) error {
	keys = store.SortedKeys(keys)
	if len(keys) == 0 {
		return fn(store.NewTxn(nil, nil))
	}
	recKeys := make([]string, len(keys))
	for i, k := range keys {
		recKeys[i] = s.recordKey(k)
	}

	var fnErr error
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		loaded, err := s.mget(ctx, tx, keys, recKeys)
		if err != nil {
			return err
		}
		txn := store.NewTxn(keys, loaded)
		if err := fn(txn); err != nil {
			fnErr = err
			return err
		}
		writes := txn.Writes()
		if len(writes) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, e := range writes {
				b, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("encode %s: %w", e.Key, err)
				}
				pipe.Set(ctx, s.recordKey(e.Key), b, 0)
				pipe.SAdd(ctx, s.studentKey(e.StudentID), e.Key.String())
				pipe.SAdd(ctx, s.studentsKey(), e.StudentID)
			}
			return nil
		})
		return err
	}, recKeys...)

	switch {
	case fnErr != nil:
		return fnErr
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("redis: %w", store.ErrConflict)
	case err != nil:
		return fmt.Errorf("redis: update: %w", err)
	}
	return nil
}

func (s *Store) mget(ctx context.Context, c redis.Cmdable, keys []proficiency.Key, recKeys []string) (map[proficiency.Key]store.Entry, error) {
	vals, err := c.MGet(ctx, recKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: mget: %w", err)
	}
	out := make(map[proficiency.Key]store.Entry, len(keys))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		e, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("redis: decode %s: %w", keys[i], err)
		}
		out[keys[i]] = e
	}
	return out, nil
}

func decode(raw string) (store.Entry, error) {
	var e store.Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return store.Entry{}, err
	}
	return e, nil
}

func (s *Store) Get(ctx context.Context, key proficiency.Key) (store.Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.recordKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return store.Entry{}, false, nil
	}
	if err != nil {
		return store.Entry{}, false, fmt.Errorf("redis: get %s: %w", key, err)
	}
	e, err := decode(raw)
	if err != nil {
		return store.Entry{}, false, fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return e, true, nil
}

func (s *Store) List(ctx context.Context, studentID string) ([]store.Entry, error) {
	students := []string{studentID}
	if studentID == "" {
		var err error
		if students, err = s.Students(ctx); err != nil {
			return nil, err
		}
	}

	var out []store.Entry
	for _, sid := range students {
		members, err := s.client.SMembers(ctx, s.studentKey(sid)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: list %s: %w", sid, err)
		}
		if len(members) == 0 {
			continue
		}
		recKeys := make([]string, len(members))
		for i, m := range members {
			recKeys[i] = s.prefix + "rec:" + m
		}
		// One MGET per student: a unit's writes are seen all or nothing.
		vals, err := s.client.MGet(ctx, recKeys...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: list %s: %w", sid, err)
		}
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			e, err := decode(raw)
			if err != nil {
				return nil, fmt.Errorf("redis: decode %s: %w", members[i], err)
			}
			out = append(out, e)
		}
	}
	store.SortEntries(out)
	return out, nil
}

func (s *Store) Students(ctx context.Context) ([]string, error) {
	out, err := s.client.SMembers(ctx, s.studentsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: students: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
