package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"
)

const dbManifest = "MANIFEST"

// BadgerStore keeps records in a badger database on local disk. Badger's
// serializable snapshot isolation gives the store its conflict detection.
type BadgerStore struct {
	Database *badger.DB
}

// badgerLogger demotes badger's chatty info output to debug.
type badgerLogger struct {
	logrus.FieldLogger
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.FieldLogger.Debugf(format, args...)
}

// DBexists function
func DBexists(path string) bool {
	if _, err := os.Stat(filepath.Join(path, dbManifest)); os.IsNotExist(err) {
		return false
	}
	return true
}

// OpenBadger opens or creates the database at path.
func OpenBadger(path string, log logrus.FieldLogger) (*BadgerStore, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if !DBexists(path) {
		log.WithField("path", path).Info("no existing ledger found, creating one")
	}

	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{log.WithField("component", "badger")})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{Database: db}, nil
}

// Update function
func (s *BadgerStore) Update(ctx context.Context, fn func(txn Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.Database.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict
	}
	return err
}

// View function
func (s *BadgerStore) View(ctx context.Context, fn func(txn Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Database.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, readOnly: true})
	})
}

// Close function
func (s *BadgerStore) Close() error {
	return s.Database.Close()
}

type badgerTxn struct {
	txn      *badger.Txn
	readOnly bool
}

func (t *badgerTxn) live(key Key) (bool, error) {
	_, err := t.txn.Get([]byte(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (t *badgerTxn) Allocate(key Key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	live, err := t.live(key)
	if err != nil {
		return err
	}
	if live {
		return ErrExists
	}
	return t.txn.Set([]byte(key), value)
}

func (t *badgerTxn) Read(key Key) ([]byte, error) {
	item, err := t.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Write(key Key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	live, err := t.live(key)
	if err != nil {
		return err
	}
	if !live {
		return ErrNotFound
	}
	return t.txn.Set([]byte(key), value)
}

func (t *badgerTxn) Deallocate(key Key) error {
	if t.readOnly {
		return ErrReadOnly
	}
	live, err := t.live(key)
	if err != nil {
		return err
	}
	if !live {
		return ErrNotFound
	}
	return t.txn.Delete([]byte(key))
}

func (t *badgerTxn) Scan(prefix Key, fn func(key Key, value []byte) error) error {
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(Key(item.KeyCopy(nil)), value); err != nil {
			return err
		}
	}
	return nil
}
