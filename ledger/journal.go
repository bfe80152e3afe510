package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

const (
	journalKind Kind = "journal"
	lastHashKey Key  = "journal-lh"
)

// ErrBrokenChain is returned by Verify when a block's hash or link is wrong.
var ErrBrokenChain = errors.New("journal chain broken")

// Block is one entry of the journal: an opaque payload linked to the
// previous block by hash.
type Block struct {
	Hash      []byte
	PrevHash  []byte
	Height    uint64
	Timestamp int64
	Data      []byte
}

// DeriveHash function
func (b *Block) DeriveHash() []byte {
	var meta [16]byte
	binary.BigEndian.PutUint64(meta[:8], b.Height)
	binary.BigEndian.PutUint64(meta[8:], uint64(b.Timestamp))

	info := bytes.Join([][]byte{b.PrevHash, meta[:], b.Data}, []byte{})
	hash := blake3.Sum256(info)
	return hash[:]
}

// IsGenesis reports whether the block starts the chain.
func (b *Block) IsGenesis() bool {
	return len(b.PrevHash) == 0
}

func blockKey(hash []byte) Key {
	return RecordKey(journalKind, hex.EncodeToString(hash))
}

// Journal is an append-only, hash-linked log kept in the same store as the
// records. Appends are serialized inside the process; a second process
// appending to the same store loses with ErrConflict.
type Journal struct {
	store Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewJournal function
func NewJournal(store Store) *Journal {
	return &Journal{store: store, now: time.Now}
}

// Append adds data as the next block and returns it.
func (j *Journal) Append(ctx context.Context, data []byte) (*Block, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var block *Block
	err := j.store.Update(ctx, func(txn Txn) error {
		block = &Block{Timestamp: j.now().Unix(), Data: data}

		lastHash, err := txn.Read(lastHashKey)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			var prev Block
			if err := ReadRecord(txn, blockKey(lastHash), &prev); err != nil {
				return fmt.Errorf("read last block: %w", err)
			}
			block.PrevHash = lastHash
			block.Height = prev.Height + 1
		}
		block.Hash = block.DeriveHash()

		if err := AllocateRecord(txn, blockKey(block.Hash), block); err != nil {
			return err
		}
		if block.IsGenesis() {
			return txn.Allocate(lastHashKey, block.Hash)
		}
		return txn.Write(lastHashKey, block.Hash)
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// LastHash returns the hash of the newest block, or nil for an empty journal.
func (j *Journal) LastHash(ctx context.Context) ([]byte, error) {
	var lastHash []byte
	err := j.store.View(ctx, func(txn Txn) error {
		h, err := txn.Read(lastHashKey)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		lastHash = h
		return err
	})
	return lastHash, err
}

// Iterator walks the journal from the newest block back to genesis.
type Iterator struct {
	CurrentHash []byte
	store       Store
	ctx         context.Context
}

// Iterator function
func (j *Journal) Iterator(ctx context.Context) (*Iterator, error) {
	lastHash, err := j.LastHash(ctx)
	if err != nil {
		return nil, err
	}
	return &Iterator{CurrentHash: lastHash, store: j.store, ctx: ctx}, nil
}

// Next returns the next older block, or nil once genesis has been returned.
func (iter *Iterator) Next() (*Block, error) {
	if len(iter.CurrentHash) == 0 {
		return nil, nil
	}

	var block Block
	err := iter.store.View(iter.ctx, func(txn Txn) error {
		return ReadRecord(txn, blockKey(iter.CurrentHash), &block)
	})
	if err != nil {
		return nil, err
	}

	iter.CurrentHash = block.PrevHash
	return &block, nil
}

// Verify recomputes every hash and link from the newest block to genesis.
func (j *Journal) Verify(ctx context.Context) error {
	iter, err := j.Iterator(ctx)
	if err != nil {
		return err
	}
	expect := iter.CurrentHash
	for {
		block, err := iter.Next()
		if err != nil {
			return err
		}
		if block == nil {
			return nil
		}
		if !bytes.Equal(block.Hash, expect) || !bytes.Equal(block.DeriveHash(), block.Hash) {
			return fmt.Errorf("%w: block %x at height %d", ErrBrokenChain, block.Hash, block.Height)
		}
		if block.IsGenesis() != (block.Height == 0) {
			return fmt.Errorf("%w: height %d", ErrBrokenChain, block.Height)
		}
		expect = block.PrevHash
	}
}
