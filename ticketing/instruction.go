package ticketing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/sirupsen/logrus"
)

// Op names a program operation.
type Op string

const (
	OpInitialize      Op = "initialize"
	OpInitializeEvent Op = "initialize_event"
	OpMintTicket      Op = "mint_ticket"
	OpVerifyTicket    Op = "verify_ticket"
	OpTransferTicket  Op = "transfer_ticket"
	OpCloseEvent      Op = "close_event"
	OpGetEvent        Op = "get_event"
	OpGetTicket       Op = "get_ticket"
	OpListTickets     Op = "list_tickets"
)

// Instruction is one operation with its arguments, in the form it travels
// between nodes. The caller is never part of it.
type Instruction struct {
	ID       string         `cbor:"id" json:"id"`
	Op       Op             `cbor:"op" json:"op"`
	Event    wallet.Address `cbor:"event,omitempty" json:"event,omitempty"`
	Ticket   wallet.Address `cbor:"ticket,omitempty" json:"ticket,omitempty"`
	NewOwner wallet.Address `cbor:"new_owner,omitempty" json:"new_owner,omitempty"`
	Name     string         `cbor:"name,omitempty" json:"name,omitempty"`
	Venue    string         `cbor:"venue,omitempty" json:"venue,omitempty"`
	Date     int64          `cbor:"date,omitempty" json:"date,omitempty"`
	Seat     string         `cbor:"seat,omitempty" json:"seat,omitempty"`
	Category string         `cbor:"category,omitempty" json:"category,omitempty"`
	Metadata string         `cbor:"metadata,omitempty" json:"metadata,omitempty"`
}

// NewInstruction returns an instruction with a fresh id.
func NewInstruction(op Op) Instruction {
	return Instruction{ID: uuid.NewString(), Op: op}
}

// Result holds whatever an executed instruction produced.
type Result struct {
	Program *ProgramState `cbor:"program,omitempty" json:"program,omitempty"`
	Event   *Event        `cbor:"event,omitempty" json:"event,omitempty"`
	Ticket  *Ticket       `cbor:"ticket,omitempty" json:"ticket,omitempty"`
	Tickets []Ticket      `cbor:"tickets,omitempty" json:"tickets,omitempty"`
}

// Execute dispatches an instruction on behalf of caller.
func (p *Program) Execute(ctx context.Context, caller wallet.Address, ins Instruction) (Result, error) {
	var (
		res Result
		err error
	)

	switch ins.Op {
	case OpInitialize:
		res.Program, err = p.Initialize(ctx)
	case OpInitializeEvent:
		res.Event, err = p.InitializeEvent(ctx, caller, ins.Name, ins.Venue, ins.Date)
	case OpMintTicket:
		res.Ticket, err = p.MintTicket(ctx, caller, ins.Event, MintRequest{
			Seat:     ins.Seat,
			Category: ins.Category,
			Metadata: ins.Metadata,
		})
	case OpVerifyTicket:
		res.Ticket, err = p.VerifyTicket(ctx, caller, ins.Ticket)
	case OpTransferTicket:
		res.Ticket, err = p.TransferTicket(ctx, caller, ins.Ticket, ins.NewOwner)
	case OpCloseEvent:
		err = p.CloseEvent(ctx, caller, ins.Event)
	case OpGetEvent:
		res.Event, err = p.GetEvent(ctx, ins.Event)
	case OpGetTicket:
		res.Ticket, err = p.GetTicket(ctx, ins.Ticket)
	case OpListTickets:
		res.Tickets, err = p.ListTickets(ctx, ins.Event)
	default:
		err = fmt.Errorf("%w %q", ErrUnknownOp, ins.Op)
	}

	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{"op": ins.Op, "id": ins.ID, "caller": caller}).Debug("instruction failed")
		return Result{}, err
	}
	return res, nil
}
