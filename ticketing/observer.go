package ticketing

import (
	"context"

	"github.com/jlynch25/golang-ticketing/ledger"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/sirupsen/logrus"
)

// Change describes one committed mutation.
type Change struct {
	Op            Op             `json:"op"`
	Caller        wallet.Address `json:"caller"`
	Event         *Event         `json:"event,omitempty"`
	Ticket        *Ticket        `json:"ticket,omitempty"`
	PreviousOwner wallet.Address `json:"previous_owner,omitempty"`
	At            int64          `json:"at"`
}

// Observer is told about every change after it commits. Observers cannot
// fail or undo an operation.
type Observer interface {
	Observe(ctx context.Context, change Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, change Change)

// Observe function
func (f ObserverFunc) Observe(ctx context.Context, change Change) { f(ctx, change) }

// JournalObserver appends every change to the journal.
func JournalObserver(journal *ledger.Journal, log logrus.FieldLogger) Observer {
	return ObserverFunc(func(ctx context.Context, change Change) {
		data, err := ledger.Marshal(change)
		if err != nil {
			log.WithError(err).WithField("op", change.Op).Error("encode journal entry")
			return
		}
		block, err := journal.Append(ctx, data)
		if err != nil {
			log.WithError(err).WithField("op", change.Op).Error("append journal entry")
			return
		}
		log.WithFields(logrus.Fields{"op": change.Op, "height": block.Height}).Debugf("journal block %x", block.Hash)
	})
}

// DecodeChange reads a change back out of a journal block.
func DecodeChange(block *ledger.Block) (Change, error) {
	var change Change
	err := ledger.Unmarshal(block.Data, &change)
	return change, err
}
