package ticketing

import (
	"errors"
	"fmt"

	"github.com/jlynch25/golang-ticketing/ledger"
)

// Every error returned by Program wraps exactly one of these.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = ledger.ErrNotFound
	ErrAlreadyVerified = errors.New("ticket has already been scanned")
	ErrConflict        = ledger.ErrConflict
)

var (
	ErrNameRequired     = fmt.Errorf("%w: event name is required", ErrInvalidArgument)
	ErrVenueRequired    = fmt.Errorf("%w: venue is required", ErrInvalidArgument)
	ErrInvalidDate      = fmt.Errorf("%w: date must be a non-negative unix timestamp", ErrInvalidArgument)
	ErrSeatRequired     = fmt.Errorf("%w: seat is required", ErrInvalidArgument)
	ErrCategoryRequired = fmt.Errorf("%w: category is required", ErrInvalidArgument)
	ErrMetadataRequired = fmt.Errorf("%w: metadata reference is required", ErrInvalidArgument)
	ErrInvalidMetadata  = fmt.Errorf("%w: invalid metadata reference", ErrInvalidArgument)
	ErrMetadataInUse    = fmt.Errorf("%w: metadata is already attached to a ticket", ErrInvalidArgument)
	ErrNewOwnerRequired = fmt.Errorf("%w: new owner is required", ErrInvalidArgument)
	ErrInvalidNewOwner  = fmt.Errorf("%w: invalid new owner address", ErrInvalidArgument)
	ErrSelfTransfer     = fmt.Errorf("%w: ticket already belongs to the new owner", ErrInvalidArgument)
	ErrUnknownOp        = fmt.Errorf("%w: unknown instruction", ErrInvalidArgument)

	ErrMissingSigner     = fmt.Errorf("%w: missing or malformed signer", ErrUnauthorized)
	ErrNotEventAuthority = fmt.Errorf("%w: signer is not the event authority", ErrUnauthorized)
	ErrNotTicketOwner    = fmt.Errorf("%w: signer does not own the ticket", ErrUnauthorized)
	ErrNotVerifier       = fmt.Errorf("%w: signer may not verify this ticket", ErrUnauthorized)

	ErrEventNotFound  = fmt.Errorf("event: %w", ErrNotFound)
	ErrTicketNotFound = fmt.Errorf("ticket: %w", ErrNotFound)
)

func textTooLong(field string, max int) error {
	return fmt.Errorf("%w: %s longer than %d bytes", ErrInvalidArgument, field, max)
}
