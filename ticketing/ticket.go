package ticketing

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jlynch25/golang-ticketing/ledger"
	"github.com/jlynch25/golang-ticketing/metadata"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/zeebo/blake3"
)

const (
	ticketKind   ledger.Kind = "ticket"
	metadataKind ledger.Kind = "metadata"

	// MaxSeatLen and MaxCategoryLen bound the text a ticket record holds.
	MaxSeatLen     = 32
	MaxCategoryLen = 32
)

// Ticket is one admission right. Event is the event it was minted for and is
// never rewritten; Owner is who holds it now.
type Ticket struct {
	Address  wallet.Address `json:"address"`
	Event    wallet.Address `json:"event"`
	Owner    wallet.Address `json:"owner"`
	Seat     string         `json:"seat"`
	Category string         `json:"category"`
	Scanned  bool           `json:"scanned"`
	Mint     wallet.Address `json:"mint"`
	Metadata string         `json:"metadata"`
}

// MintRequest carries the caller supplied fields of a new ticket.
type MintRequest struct {
	Seat     string
	Category string
	Metadata string
}

func ticketKey(addr wallet.Address) ledger.Key {
	return ledger.RecordKey(ticketKind, addr.String())
}

// metadataClaimKey marks a metadata reference as attached. The key hashes the
// canonical spelling so every form ParseRef accepts claims the same slot.
func metadataClaimKey(ref metadata.Ref) ledger.Key {
	sum := blake3.Sum256([]byte(ref.String()))
	return ledger.RecordKey(metadataKind, hex.EncodeToString(sum[:]))
}

// validate checks the request and returns its parsed metadata reference.
func (r MintRequest) validate() (metadata.Ref, error) {
	switch {
	case strings.TrimSpace(r.Seat) == "":
		return metadata.Ref{}, ErrSeatRequired
	case len(r.Seat) > MaxSeatLen:
		return metadata.Ref{}, textTooLong("seat", MaxSeatLen)
	case strings.TrimSpace(r.Category) == "":
		return metadata.Ref{}, ErrCategoryRequired
	case len(r.Category) > MaxCategoryLen:
		return metadata.Ref{}, textTooLong("category", MaxCategoryLen)
	case r.Metadata == "":
		return metadata.Ref{}, ErrMetadataRequired
	}
	ref, err := metadata.ParseRef(r.Metadata)
	if err != nil {
		if errors.Is(err, metadata.ErrInvalidRef) {
			return metadata.Ref{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		return metadata.Ref{}, err
	}
	return ref, nil
}
