package ticketing

import (
	"strings"

	"github.com/jlynch25/golang-ticketing/ledger"
	"github.com/jlynch25/golang-ticketing/wallet"
)

const (
	eventKind ledger.Kind = "event"

	// MaxNameLen and MaxVenueLen bound the text an event record holds.
	MaxNameLen  = 32
	MaxVenueLen = 32
)

// Event is one ticketed event. Name, Venue and Date are fixed at creation;
// the record lives until its authority closes it.
type Event struct {
	Address   wallet.Address `json:"address"`
	Name      string         `json:"name"`
	Venue     string         `json:"venue"`
	Date      int64          `json:"date"`
	Authority wallet.Address `json:"authority"`
}

func eventKey(addr wallet.Address) ledger.Key {
	return ledger.RecordKey(eventKind, addr.String())
}

func validateEvent(name, venue string, date int64) error {
	switch {
	case strings.TrimSpace(name) == "":
		return ErrNameRequired
	case len(name) > MaxNameLen:
		return textTooLong("name", MaxNameLen)
	case strings.TrimSpace(venue) == "":
		return ErrVenueRequired
	case len(venue) > MaxVenueLen:
		return textTooLong("venue", MaxVenueLen)
	case date < 0:
		return ErrInvalidDate
	}
	return nil
}
