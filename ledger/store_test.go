package ledger

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadgerStore(t *testing.T) Store {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	store, err := OpenBadger(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("skipping redis store tests: %v", err)
	}

	prefix := "ledger-test-" + t.Name() + "-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			_ = client.Del(context.Background(), keys...).Err()
		}
		_ = client.Close()
	})
	return NewRedisStore(client, prefix)
}

var backends = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store { return NewMemoryStore() },
	"badger": newBadgerStore,
	"redis":  newRedisStore,
}

func forEachBackend(t *testing.T, test func(t *testing.T, store Store)) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			test(t, open(t))
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		key := RecordKey("event", "abc")

		require.NoError(t, store.Update(ctx, func(txn Txn) error {
			return txn.Allocate(key, []byte("v1"))
		}))

		err := store.Update(ctx, func(txn Txn) error {
			return txn.Allocate(key, []byte("again"))
		})
		assert.True(t, errors.Is(err, ErrExists), "got %v", err)

		require.NoError(t, store.Update(ctx, func(txn Txn) error {
			return txn.Write(key, []byte("v2"))
		}))

		require.NoError(t, store.View(ctx, func(txn Txn) error {
			got, err := txn.Read(key)
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)
			return nil
		}))

		require.NoError(t, store.Update(ctx, func(txn Txn) error {
			return txn.Deallocate(key)
		}))

		err = store.View(ctx, func(txn Txn) error {
			_, err := txn.Read(key)
			return err
		})
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

		err = store.Update(ctx, func(txn Txn) error {
			return txn.Write(key, []byte("v3"))
		})
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

		err = store.Update(ctx, func(txn Txn) error {
			return txn.Deallocate(key)
		})
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})
}

func TestStoreRollsBackOnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		boom := errors.New("boom")

		err := store.Update(ctx, func(txn Txn) error {
			require.NoError(t, txn.Allocate(RecordKey("ticket", "t1"), []byte("x")))
			return boom
		})
		assert.Equal(t, boom, err)

		err = store.View(ctx, func(txn Txn) error {
			_, err := txn.Read(RecordKey("ticket", "t1"))
			return err
		})
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})
}

func TestStoreViewIsReadOnly(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		err := store.View(context.Background(), func(txn Txn) error {
			return txn.Allocate(RecordKey("event", "x"), []byte("x"))
		})
		assert.True(t, errors.Is(err, ErrReadOnly), "got %v", err)
	})
}

func TestStoreScanPrefix(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		require.NoError(t, store.Update(ctx, func(txn Txn) error {
			for _, addr := range []string{"b", "a", "c"} {
				if err := txn.Allocate(RecordKey("ticket", addr), []byte(addr)); err != nil {
					return err
				}
			}
			return txn.Allocate(RecordKey("event", "z"), []byte("z"))
		}))

		var seen []string
		require.NoError(t, store.View(ctx, func(txn Txn) error {
			return txn.Scan(KindPrefix("ticket"), func(key Key, value []byte) error {
				assert.Equal(t, key.Address(), string(value))
				seen = append(seen, key.Address())
				return nil
			})
		}))
		assert.Equal(t, []string{"a", "b", "c"}, seen)
	})
}

func TestStoreConflictHasOneWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		key := RecordKey("ticket", "contended")
		require.NoError(t, store.Update(ctx, func(txn Txn) error {
			return txn.Allocate(key, []byte("minted"))
		}))

		err := store.Update(ctx, func(txn Txn) error {
			if _, err := txn.Read(key); err != nil {
				return err
			}
			// a second writer commits while this transaction is open
			require.NoError(t, store.Update(ctx, func(inner Txn) error {
				return inner.Write(key, []byte("winner"))
			}))
			return txn.Write(key, []byte("loser"))
		})
		assert.True(t, errors.Is(err, ErrConflict), "got %v", err)

		require.NoError(t, store.View(ctx, func(txn Txn) error {
			got, err := txn.Read(key)
			require.NoError(t, err)
			assert.Equal(t, []byte("winner"), got)
			return nil
		}))
	})
}

func TestRecordHelpers(t *testing.T) {
	type record struct {
		Name  string
		Count int
	}
	store := NewMemoryStore()
	ctx := context.Background()
	key := RecordKey("event", "r")

	require.NoError(t, store.Update(ctx, func(txn Txn) error {
		return AllocateRecord(txn, key, record{Name: "Concert", Count: 1})
	}))
	require.NoError(t, store.Update(ctx, func(txn Txn) error {
		var r record
		if err := ReadRecord(txn, key, &r); err != nil {
			return err
		}
		r.Count++
		return WriteRecord(txn, key, r)
	}))

	var got record
	require.NoError(t, store.View(ctx, func(txn Txn) error {
		return ReadRecord(txn, key, &got)
	}))
	assert.Equal(t, record{Name: "Concert", Count: 2}, got)
}
