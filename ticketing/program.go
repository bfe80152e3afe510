// Package ticketing is the event and ticket state machine. Every operation
// takes the calling identity explicitly, checks it against the authority
// stored on the records it touches and applies its change in one store
// transaction, so a failed operation leaves nothing behind.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jlynch25/golang-ticketing/ledger"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/sirupsen/logrus"
)

const (
	programKind    ledger.Kind = "program"
	programVersion             = 1
)

// DefaultProgramID identifies the program when none is configured.
var DefaultProgramID = wallet.AddressFromPublicKey([]byte("decentralized-ticketing"))

// ProgramState is the record Initialize leaves behind.
type ProgramState struct {
	ID            wallet.Address `json:"id"`
	Version       int            `json:"version"`
	InitializedAt int64          `json:"initialized_at"`
}

// Program runs ticketing operations against a record store.
type Program struct {
	id         wallet.Address
	store      ledger.Store
	policy     VerifyPolicy
	minter     Minter
	newAddress func() (wallet.Address, error)
	observers  []Observer
	log        logrus.FieldLogger
	now        func() time.Time
}

// Option configures a Program.
type Option func(*Program)

// WithProgramID function
func WithProgramID(id wallet.Address) Option {
	return func(p *Program) { p.id = id }
}

// WithVerifyPolicy function
func WithVerifyPolicy(policy VerifyPolicy) Option {
	return func(p *Program) { p.policy = policy }
}

// WithMinter function
func WithMinter(m Minter) Option {
	return func(p *Program) { p.minter = m }
}

// WithAddressSource replaces the generator of new record addresses.
func WithAddressSource(fn func() (wallet.Address, error)) Option {
	return func(p *Program) { p.newAddress = fn }
}

// WithObserver function
func WithObserver(o Observer) Option {
	return func(p *Program) { p.observers = append(p.observers, o) }
}

// WithLogger function
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Program) { p.log = log }
}

// WithClock function
func WithClock(now func() time.Time) Option {
	return func(p *Program) { p.now = now }
}

// NewProgram function
func NewProgram(store ledger.Store, opts ...Option) *Program {
	p := &Program{
		id:         DefaultProgramID,
		store:      store,
		policy:     VerifyByEventAuthority,
		minter:     AddressMinter{},
		newAddress: wallet.NewAddress,
		log:        logrus.StandardLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the program id.
func (p *Program) ID() wallet.Address { return p.id }

// Policy returns the verify policy in force.
func (p *Program) Policy() VerifyPolicy { return p.policy }

// Initialize records the program state once and returns it on every call.
func (p *Program) Initialize(ctx context.Context) (*ProgramState, error) {
	key := ledger.RecordKey(programKind, p.id.String())
	state := &ProgramState{ID: p.id, Version: programVersion, InitializedAt: p.now().Unix()}
	created := false

	err := p.store.Update(ctx, func(txn ledger.Txn) error {
		err := ledger.ReadRecord(txn, key, state)
		if errors.Is(err, ledger.ErrNotFound) {
			created = true
			return ledger.AllocateRecord(txn, key, state)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	p.log.WithField("program", p.id).Infof("Greetings from: %s", p.id)
	if created {
		p.notify(ctx, Change{Op: OpInitialize})
	}
	return state, nil
}

// InitializeEvent allocates a new event whose authority is caller.
func (p *Program) InitializeEvent(ctx context.Context, caller wallet.Address, name, venue string, date int64) (*Event, error) {
	if err := validateCaller(caller); err != nil {
		return nil, err
	}
	if err := validateEvent(name, venue, date); err != nil {
		return nil, err
	}
	addr, err := p.newAddress()
	if err != nil {
		return nil, fmt.Errorf("event address: %w", err)
	}

	event := &Event{
		Address:   addr,
		Name:      name,
		Venue:     venue,
		Date:      date,
		Authority: caller,
	}
	err = p.store.Update(ctx, func(txn ledger.Txn) error {
		return ledger.AllocateRecord(txn, eventKey(addr), event)
	})
	if err != nil {
		return nil, allocationError(err)
	}

	p.log.WithFields(logrus.Fields{"op": OpInitializeEvent, "caller": caller, "event": addr}).Info("event initialized")
	p.notify(ctx, Change{Op: OpInitializeEvent, Caller: caller, Event: event})
	return event, nil
}

// CloseEvent frees the event record. Tickets minted for it are left alone.
func (p *Program) CloseEvent(ctx context.Context, caller wallet.Address, addr wallet.Address) error {
	if err := validateCaller(caller); err != nil {
		return err
	}

	var event Event
	err := p.store.Update(ctx, func(txn ledger.Txn) error {
		if err := readEvent(txn, addr, &event); err != nil {
			return err
		}
		if !authorize(caller, event.Authority) {
			return ErrNotEventAuthority
		}
		return txn.Deallocate(eventKey(addr))
	})
	if err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{"op": OpCloseEvent, "caller": caller, "event": addr}).Infof("Event closed: %s", addr)
	p.notify(ctx, Change{Op: OpCloseEvent, Caller: caller, Event: &event})
	return nil
}

// MintTicket issues a ticket for an open event. Only the event authority may
// mint, and the authority holds the ticket until it is transferred.
func (p *Program) MintTicket(ctx context.Context, caller wallet.Address, eventAddr wallet.Address, req MintRequest) (*Ticket, error) {
	if err := validateCaller(caller); err != nil {
		return nil, err
	}
	ref, err := req.validate()
	if err != nil {
		return nil, err
	}

	// Check authority before asking the minter for a unit.
	err = p.store.View(ctx, func(txn ledger.Txn) error {
		var event Event
		if err := readEvent(txn, eventAddr, &event); err != nil {
			return err
		}
		if !authorize(caller, event.Authority) {
			return ErrNotEventAuthority
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	mint, err := p.minter.NewMint(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("mint ownership unit: %w", err)
	}
	addr, err := p.newAddress()
	if err != nil {
		return nil, fmt.Errorf("ticket address: %w", err)
	}

	ticket := &Ticket{
		Address:  addr,
		Event:    eventAddr,
		Owner:    caller,
		Seat:     req.Seat,
		Category: req.Category,
		Scanned:  false,
		Mint:     mint,
		Metadata: req.Metadata,
	}
	err = p.store.Update(ctx, func(txn ledger.Txn) error {
		// the event is read again so a concurrent close conflicts with this mint
		var event Event
		if err := readEvent(txn, eventAddr, &event); err != nil {
			return err
		}
		if !authorize(caller, event.Authority) {
			return ErrNotEventAuthority
		}
		err := txn.Allocate(metadataClaimKey(ref), []byte(addr))
		if errors.Is(err, ledger.ErrExists) {
			return ErrMetadataInUse
		}
		if err != nil {
			return err
		}
		return ledger.AllocateRecord(txn, ticketKey(addr), ticket)
	})
	if err != nil {
		return nil, allocationError(err)
	}

	p.log.WithFields(logrus.Fields{
		"op":       OpMintTicket,
		"caller":   caller,
		"event":    eventAddr,
		"ticket":   addr,
		"seat":     req.Seat,
		"category": req.Category,
	}).Info("ticket minted")
	p.notify(ctx, Change{Op: OpMintTicket, Caller: caller, Ticket: ticket})
	return ticket, nil
}

// VerifyTicket checks a ticket in. It succeeds once per ticket.
func (p *Program) VerifyTicket(ctx context.Context, caller wallet.Address, addr wallet.Address) (*Ticket, error) {
	if err := validateCaller(caller); err != nil {
		return nil, err
	}

	var ticket Ticket
	err := p.store.Update(ctx, func(txn ledger.Txn) error {
		if err := readTicket(txn, addr, &ticket); err != nil {
			return err
		}

		var event *Event
		if p.policy.needsEvent() {
			var e Event
			err := readEvent(txn, ticket.Event, &e)
			switch {
			case err == nil:
				event = &e
			case errors.Is(err, ErrNotFound) && p.policy == VerifyByAuthorityOrOwner:
			default:
				return err
			}
		}
		if !p.policy.mayVerify(caller, &ticket, event) {
			return ErrNotVerifier
		}

		if ticket.Scanned {
			return ErrAlreadyVerified
		}
		ticket.Scanned = true
		return ledger.WriteRecord(txn, ticketKey(addr), &ticket)
	})
	if err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{"op": OpVerifyTicket, "caller": caller, "ticket": addr}).Info("ticket verified")
	p.notify(ctx, Change{Op: OpVerifyTicket, Caller: caller, Ticket: &ticket})
	return &ticket, nil
}

// TransferTicket hands a ticket from its current owner to newOwner.
func (p *Program) TransferTicket(ctx context.Context, caller wallet.Address, addr wallet.Address, newOwner wallet.Address) (*Ticket, error) {
	if err := validateCaller(caller); err != nil {
		return nil, err
	}
	if newOwner.IsZero() {
		return nil, ErrNewOwnerRequired
	}
	if err := newOwner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNewOwner, err)
	}

	var ticket Ticket
	var previous wallet.Address
	err := p.store.Update(ctx, func(txn ledger.Txn) error {
		if err := readTicket(txn, addr, &ticket); err != nil {
			return err
		}
		if !authorize(caller, ticket.Owner) {
			return ErrNotTicketOwner
		}
		if newOwner == ticket.Owner {
			return ErrSelfTransfer
		}
		previous = ticket.Owner
		ticket.Owner = newOwner
		return ledger.WriteRecord(txn, ticketKey(addr), &ticket)
	})
	if err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"op":     OpTransferTicket,
		"caller": caller,
		"ticket": addr,
		"to":     newOwner,
	}).Info("ticket transferred")
	p.notify(ctx, Change{Op: OpTransferTicket, Caller: caller, Ticket: &ticket, PreviousOwner: previous})
	return &ticket, nil
}

// GetEvent function
func (p *Program) GetEvent(ctx context.Context, addr wallet.Address) (*Event, error) {
	var event Event
	err := p.store.View(ctx, func(txn ledger.Txn) error {
		return readEvent(txn, addr, &event)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetTicket function
func (p *Program) GetTicket(ctx context.Context, addr wallet.Address) (*Ticket, error) {
	var ticket Ticket
	err := p.store.View(ctx, func(txn ledger.Txn) error {
		return readTicket(txn, addr, &ticket)
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListTickets returns every ticket minted for the event, including after the
// event has been closed.
func (p *Program) ListTickets(ctx context.Context, eventAddr wallet.Address) ([]Ticket, error) {
	var tickets []Ticket
	err := p.store.View(ctx, func(txn ledger.Txn) error {
		return txn.Scan(ledger.KindPrefix(ticketKind), func(key ledger.Key, value []byte) error {
			var t Ticket
			if err := ledger.Unmarshal(value, &t); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			if t.Event == eventAddr {
				tickets = append(tickets, t)
			}
			return nil
		})
	})
	return tickets, err
}

func (p *Program) notify(ctx context.Context, change Change) {
	change.At = p.now().Unix()
	for _, o := range p.observers {
		o.Observe(ctx, change)
	}
}

func readEvent(txn ledger.Txn, addr wallet.Address, event *Event) error {
	err := ledger.ReadRecord(txn, eventKey(addr), event)
	if errors.Is(err, ledger.ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}

func readTicket(txn ledger.Txn, addr wallet.Address, ticket *Ticket) error {
	err := ledger.ReadRecord(txn, ticketKey(addr), ticket)
	if errors.Is(err, ledger.ErrNotFound) {
		return ErrTicketNotFound
	}
	return err
}

// allocationError reports a fresh address colliding with a live record as a
// conflict; the caller may retry with a new address.
func allocationError(err error) error {
	if errors.Is(err, ledger.ErrExists) {
		return fmt.Errorf("%w: record address already allocated", ErrConflict)
	}
	return err
}
