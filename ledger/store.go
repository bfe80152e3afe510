// Package ledger is the record store the ticketing program runs on. Records
// are addressed by key, created and destroyed explicitly, and mutated only
// inside Update transactions that either commit whole or not at all.
package ledger

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a key holds no record.
	ErrNotFound = errors.New("record not found")
	// ErrExists is returned when allocating over a live record.
	ErrExists = errors.New("record already exists")
	// ErrConflict is returned when a concurrent transaction committed a write
	// to a record this transaction read or wrote. The losing transaction
	// applies nothing.
	ErrConflict = errors.New("write conflict")
	// ErrReadOnly is returned by mutations inside a View transaction.
	ErrReadOnly = errors.New("read-only transaction")
)

// Kind namespaces record keys.
type Kind string

// Key addresses one record.
type Key string

// RecordKey builds the key of a record of the given kind.
func RecordKey(kind Kind, addr string) Key {
	return Key(string(kind) + "/" + addr)
}

// KindPrefix is the scan prefix covering every record of a kind.
func KindPrefix(kind Kind) Key {
	return Key(string(kind) + "/")
}

// Address returns the part of the key after the kind prefix.
func (k Key) Address() string {
	_, addr, ok := strings.Cut(string(k), "/")
	if !ok {
		return ""
	}
	return addr
}

// Txn is the view of the store inside one transaction.
type Txn interface {
	// Allocate creates a record. It fails with ErrExists if the key is live.
	Allocate(key Key, value []byte) error
	// Read returns the record stored under key or ErrNotFound.
	Read(key Key) ([]byte, error)
	// Write replaces an existing record. It fails with ErrNotFound if the key
	// was never allocated or has been freed.
	Write(key Key, value []byte) error
	// Deallocate frees a record and its storage.
	Deallocate(key Key) error
	// Scan visits live records whose key starts with prefix in key order.
	Scan(prefix Key, fn func(key Key, value []byte) error) error
}

// Store is implemented by the badger, redis and in-memory backends.
type Store interface {
	// Update runs fn in a read-write transaction. If fn returns an error
	// nothing is written. Commit fails with ErrConflict when another
	// transaction changed a record this one touched.
	Update(ctx context.Context, fn func(txn Txn) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(txn Txn) error) error
	Close() error
}
