package network

import (
	"context"
	"fmt"
	"time"

	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/jlynch25/golang-ticketing/wallet"
)

// Client submits instructions to one remote node. Every instruction runs as
// the identity of the local node, whatever caller is passed to the helper
// methods.
type Client struct {
	node    *Node
	addr    string
	Timeout time.Duration
}

// NewClient function
func NewClient(node *Node, addr string) *Client {
	return &Client{node: node, addr: addr, Timeout: executeTimeout + dialTimeout}
}

// Identity returns the identity the remote node sees.
func (c *Client) Identity() wallet.Address { return c.node.Identity() }

// Submit executes ins on the remote node.
func (c *Client) Submit(ctx context.Context, ins ticketing.Instruction) (ticketing.Result, error) {
	if ins.ID == "" {
		ins.ID = ticketing.NewInstruction(ins.Op).ID
	}

	rctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	obj, err := c.node.node.RequestMessage(rctx, c.addr, instructionMessage{Instruction: ins})
	if err != nil {
		return ticketing.Result{}, fmt.Errorf("request %s: %w", c.addr, err)
	}
	reply, ok := obj.(resultMessage)
	if !ok {
		return ticketing.Result{}, fmt.Errorf("request %s: unexpected reply %T", c.addr, obj)
	}
	if err := reply.err(); err != nil {
		return ticketing.Result{}, err
	}
	return reply.Result, nil
}

// MintTicket function
func (c *Client) MintTicket(ctx context.Context, _ wallet.Address, event wallet.Address, req ticketing.MintRequest) (*ticketing.Ticket, error) {
	ins := ticketing.NewInstruction(ticketing.OpMintTicket)
	ins.Event, ins.Seat, ins.Category, ins.Metadata = event, req.Seat, req.Category, req.Metadata
	res, err := c.Submit(ctx, ins)
	return res.Ticket, err
}

// ListTickets function
func (c *Client) ListTickets(ctx context.Context, event wallet.Address) ([]ticketing.Ticket, error) {
	ins := ticketing.NewInstruction(ticketing.OpListTickets)
	ins.Event = event
	res, err := c.Submit(ctx, ins)
	return res.Tickets, err
}
