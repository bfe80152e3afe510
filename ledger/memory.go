package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memEntry struct {
	value   []byte
	version uint64
}

type memPending struct {
	value   []byte
	deleted bool
}

// MemoryStore keeps records in process memory. Transactions are optimistic:
// every key a transaction reads is checked against its version at commit.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[Key]memEntry
	version uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Key]memEntry)}
}

type memTxn struct {
	store    *MemoryStore
	readOnly bool
	reads    map[Key]uint64
	pending  map[Key]memPending
}

// Update function
func (s *MemoryStore) Update(ctx context.Context, fn func(txn Txn) error) error {
	return s.run(ctx, false, fn)
}

// View function
func (s *MemoryStore) View(ctx context.Context, fn func(txn Txn) error) error {
	return s.run(ctx, true, fn)
}

// Close function
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) run(ctx context.Context, readOnly bool, fn func(txn Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := &memTxn{
		store:    s,
		readOnly: readOnly,
		reads:    make(map[Key]uint64),
		pending:  make(map[Key]memPending),
	}
	if err := fn(txn); err != nil {
		return err
	}
	if readOnly || len(txn.pending) == 0 {
		return nil
	}
	return txn.commit()
}

func (t *memTxn) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, seen := range t.reads {
		if s.data[key].version != seen {
			return ErrConflict
		}
	}
	for key, p := range t.pending {
		if p.deleted {
			delete(s.data, key)
			continue
		}
		s.version++
		s.data[key] = memEntry{value: p.value, version: s.version}
	}
	return nil
}

// lookup returns the value visible to the transaction and whether it is live.
func (t *memTxn) lookup(key Key) ([]byte, bool) {
	if p, ok := t.pending[key]; ok {
		return p.value, !p.deleted
	}
	t.store.mu.RLock()
	e, ok := t.store.data[key]
	t.store.mu.RUnlock()
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = e.version
	}
	return e.value, ok
}

func (t *memTxn) Allocate(key Key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, live := t.lookup(key); live {
		return ErrExists
	}
	t.pending[key] = memPending{value: clone(value)}
	return nil
}

func (t *memTxn) Read(key Key) ([]byte, error) {
	value, live := t.lookup(key)
	if !live {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

func (t *memTxn) Write(key Key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, live := t.lookup(key); !live {
		return ErrNotFound
	}
	t.pending[key] = memPending{value: clone(value)}
	return nil
}

func (t *memTxn) Deallocate(key Key) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, live := t.lookup(key); !live {
		return ErrNotFound
	}
	t.pending[key] = memPending{deleted: true}
	return nil
}

func (t *memTxn) Scan(prefix Key, fn func(key Key, value []byte) error) error {
	keys := make(map[Key]struct{})
	t.store.mu.RLock()
	for key := range t.store.data {
		if strings.HasPrefix(string(key), string(prefix)) {
			keys[key] = struct{}{}
		}
	}
	t.store.mu.RUnlock()
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
		value, live := t.lookup(key)
		if !live {
			continue
		}
		if err := fn(key, clone(value)); err != nil {
			return err
		}
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
