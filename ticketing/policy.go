package ticketing

import (
	"fmt"

	"github.com/jlynch25/golang-ticketing/wallet"
)

// VerifyPolicy selects who may check a ticket in.
type VerifyPolicy string

const (
	// VerifyByEventAuthority lets only the event's authority verify. The
	// event must still be open.
	VerifyByEventAuthority VerifyPolicy = "event-authority"
	// VerifyByTicketOwner lets the current holder self check-in.
	VerifyByTicketOwner VerifyPolicy = "ticket-owner"
	// VerifyByAuthorityOrOwner accepts either.
	VerifyByAuthorityOrOwner VerifyPolicy = "authority-or-owner"
)

// ParseVerifyPolicy function
func ParseVerifyPolicy(s string) (VerifyPolicy, error) {
	switch p := VerifyPolicy(s); p {
	case VerifyByEventAuthority, VerifyByTicketOwner, VerifyByAuthorityOrOwner:
		return p, nil
	case "":
		return VerifyByEventAuthority, nil
	}
	return "", fmt.Errorf("%w: unknown verify policy %q", ErrInvalidArgument, s)
}

// needsEvent reports whether the policy consults the event's authority.
func (p VerifyPolicy) needsEvent() bool {
	return p == VerifyByEventAuthority || p == VerifyByAuthorityOrOwner
}

// authorize is the single capability check every mutation goes through.
func authorize(caller, authority wallet.Address) bool {
	return !caller.IsZero() && caller == authority
}

// mayVerify applies the policy. event is nil when the ticket's event has
// been closed.
func (p VerifyPolicy) mayVerify(caller wallet.Address, ticket *Ticket, event *Event) bool {
	byOwner := authorize(caller, ticket.Owner)
	byAuthority := event != nil && authorize(caller, event.Authority)

	switch p {
	case VerifyByTicketOwner:
		return byOwner
	case VerifyByAuthorityOrOwner:
		return byOwner || byAuthority
	default:
		return byAuthority
	}
}

func validateCaller(caller wallet.Address) error {
	if err := caller.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingSigner, err)
	}
	return nil
}
