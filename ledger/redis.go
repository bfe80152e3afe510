package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records in Redis so several processes can share one
// ledger. Transactions WATCH every key they read and commit with MULTI/EXEC;
// a watched key changing underneath aborts the commit with ErrConflict.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. Every key is namespaced by prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Update function
func (s *RedisStore) Update(ctx context.Context, fn func(txn Txn) error) error {
	return s.run(ctx, false, fn)
}

// View function
func (s *RedisStore) View(ctx context.Context, fn func(txn Txn) error) error {
	return s.run(ctx, true, fn)
}

// Close function
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) run(ctx context.Context, readOnly bool, fn func(txn Txn) error) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		t := &redisTxn{
			ctx:      ctx,
			tx:       tx,
			store:    s,
			readOnly: readOnly,
			watched:  make(map[Key]bool),
			pending:  make(map[Key]memPending),
		}
		if err := fn(t); err != nil {
			return err
		}
		if readOnly || len(t.pending) == 0 {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, p := range t.pending {
				if p.deleted {
					pipe.Del(ctx, s.redisKey(key))
					continue
				}
				pipe.Set(ctx, s.redisKey(key), p.value, 0)
			}
			return nil
		})
		return err
	})
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func (s *RedisStore) redisKey(key Key) string {
	return s.prefix + string(key)
}

type redisTxn struct {
	ctx      context.Context
	tx       *redis.Tx
	store    *RedisStore
	readOnly bool
	watched  map[Key]bool
	pending  map[Key]memPending
}

func (t *redisTxn) lookup(key Key) ([]byte, bool, error) {
	if p, ok := t.pending[key]; ok {
		return p.value, !p.deleted, nil
	}
	rk := t.store.redisKey(key)
	if !t.readOnly && !t.watched[key] {
		if err := t.tx.Watch(t.ctx, rk).Err(); err != nil {
			return nil, false, fmt.Errorf("watch %s: %w", key, err)
		}
		t.watched[key] = true
	}
	value, err := t.tx.Get(t.ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (t *redisTxn) Allocate(key Key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, live, err := t.lookup(key)
	if err != nil {
		return err
	}
	if live {
		return ErrExists
	}
	t.pending[key] = memPending{value: clone(value)}
	return nil
}

func (t *redisTxn) Read(key Key) ([]byte, error) {
	value, live, err := t.lookup(key)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

func (t *redisTxn) Write(key Key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, live, err := t.lookup(key)
	if err != nil {
		return err
	}
	if !live {
		return ErrNotFound
	}
	t.pending[key] = memPending{value: clone(value)}
	return nil
}

func (t *redisTxn) Deallocate(key Key) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, live, err := t.lookup(key)
	if err != nil {
		return err
	}
	if !live {
		return ErrNotFound
	}
	t.pending[key] = memPending{deleted: true}
	return nil
}

func (t *redisTxn) Scan(prefix Key, fn func(key Key, value []byte) error) error {
	keys := make(map[Key]struct{})
	match := t.store.redisKey(prefix) + "*"
	iter := t.tx.Scan(t.ctx, 0, match, 100).Iterator()
	for iter.Next(t.ctx) {
		keys[Key(strings.TrimPrefix(iter.Val(), t.store.prefix))] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	for key := range t.pending {
		if strings.HasPrefix(string(key), string(prefix)) {
			keys[key] = struct{}{}
		}
	}

	sorted := make([]Key, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, key := range sorted {
		value, live, err := t.lookup(key)
		if err != nil {
			return err
		}
		if !live {
			continue
		}
		if err := fn(key, clone(value)); err != nil {
			return err
		}
	}
	return nil
}
