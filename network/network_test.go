package network

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jlynch25/golang-ticketing/ledger"
	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/perlin-network/noise"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeRoundTrip(t *testing.T) {
	cases := map[error]string{
		ticketing.ErrSeatRequired:      CodeInvalidArgument,
		ticketing.ErrNotEventAuthority: CodeUnauthorized,
		ticketing.ErrTicketNotFound:    CodeNotFound,
		ticketing.ErrAlreadyVerified:   CodeAlreadyVerified,
		ticketing.ErrConflict:          CodeConflict,
		errors.New("disk full"):        CodeInternal,
	}
	sentinels := map[string]error{
		CodeInvalidArgument: ticketing.ErrInvalidArgument,
		CodeUnauthorized:    ticketing.ErrUnauthorized,
		CodeNotFound:        ticketing.ErrNotFound,
		CodeAlreadyVerified: ticketing.ErrAlreadyVerified,
		CodeConflict:        ticketing.ErrConflict,
		CodeInternal:        ErrInternal,
	}

	for err, code := range cases {
		assert.Equal(t, code, ErrorCode(err), err.Error())

		remote := resultMessage{Code: code, Message: err.Error()}.err()
		assert.ErrorIs(t, remote, sentinels[code])
		assert.EqualError(t, remote, err.Error())
	}
	assert.Equal(t, CodeOK, ErrorCode(nil))
	assert.NoError(t, resultMessage{}.err())
}

func TestMessagesRoundTrip(t *testing.T) {
	ins := ticketing.NewInstruction(ticketing.OpMintTicket)
	ins.Event, ins.Seat, ins.Category, ins.Metadata = "event", "A1", "VIP", "ipfs://QmA1"

	decoded, err := unmarshalInstructionMessage(instructionMessage{Instruction: ins}.Marshal())
	require.NoError(t, err)
	assert.Equal(t, ins, decoded.Instruction)

	reply := resultMessage{
		ID:     ins.ID,
		Result: ticketing.Result{Ticket: &ticketing.Ticket{Address: "ticket", Seat: "A1", Category: "VIP"}},
	}
	back, err := unmarshalResultMessage(reply.Marshal())
	require.NoError(t, err)
	assert.Equal(t, reply, back)

	_, err = unmarshalResultMessage([]byte{0xff})
	assert.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	_, priv, err := noise.GenerateKeys(nil)
	require.NoError(t, err)

	key, err := ParsePrivateKey(hex.EncodeToString(priv[:]))
	require.NoError(t, err)
	assert.Equal(t, priv, key)

	_, err = ParsePrivateKey("zz")
	assert.Error(t, err)
	_, err = ParsePrivateKey("abcd")
	assert.Error(t, err)
}

func newServingNode(t *testing.T) *Node {
	t.Helper()
	log, _ := test.NewNullLogger()
	program := ticketing.NewProgram(ledger.NewMemoryStore(), ticketing.WithLogger(log))
	node, err := NewNode(Config{Host: net.IPv4(127, 0, 0, 1)}, program, log)
	require.NoError(t, err)
	t.Cleanup(func() { node.Close() })
	return node
}

func TestServeRunsAsCaller(t *testing.T) {
	node := newServingNode(t)
	ctx := context.Background()
	_, authority, err := noise.GenerateKeys(nil)
	require.NoError(t, err)
	caller := IdentityOf(authority.Public())

	create := ticketing.NewInstruction(ticketing.OpInitializeEvent)
	create.Name, create.Venue, create.Date = "Concert", "Stadium", 1735689600
	reply := node.serve(ctx, caller, create)
	require.Equal(t, CodeOK, reply.Code, reply.Message)
	assert.Equal(t, create.ID, reply.ID)
	require.NotNil(t, reply.Result.Event)
	assert.Equal(t, caller, reply.Result.Event.Authority)

	pub, _, err := noise.GenerateKeys(nil)
	require.NoError(t, err)
	mint := ticketing.NewInstruction(ticketing.OpMintTicket)
	mint.Event, mint.Seat, mint.Category, mint.Metadata = reply.Result.Event.Address, "A1", "VIP", "ipfs://QmA1"
	denied := node.serve(ctx, IdentityOf(pub), mint)
	assert.Equal(t, CodeUnauthorized, denied.Code)
	assert.ErrorIs(t, denied.err(), ticketing.ErrUnauthorized)

	unknown := node.serve(ctx, caller, ticketing.NewInstruction("burn_ticket"))
	assert.Equal(t, CodeInvalidArgument, unknown.Code)
}

func TestServeWithoutProgram(t *testing.T) {
	log, _ := test.NewNullLogger()
	node, err := NewNode(Config{Host: net.IPv4(127, 0, 0, 1)}, nil, log)
	require.NoError(t, err)
	defer node.Close()

	reply := node.serve(context.Background(), "", ticketing.NewInstruction(ticketing.OpInitialize))
	assert.Equal(t, CodeInternal, reply.Code)
	assert.ErrorIs(t, reply.err(), ErrInternal)
}

func TestClientSubmitOverLoopback(t *testing.T) {
	server := newServingNode(t)
	require.NoError(t, server.Listen())

	log, _ := test.NewNullLogger()
	local, err := NewNode(Config{Host: net.IPv4(127, 0, 0, 1)}, nil, log)
	require.NoError(t, err)
	defer local.Close()
	require.NoError(t, local.Listen())

	client := NewClient(local, server.Addr())
	ctx := context.Background()

	create := ticketing.NewInstruction(ticketing.OpInitializeEvent)
	create.Name, create.Venue, create.Date = "Concert", "Stadium", 1735689600
	res, err := client.Submit(ctx, create)
	require.NoError(t, err)
	require.NotNil(t, res.Event)
	assert.Equal(t, client.Identity(), res.Event.Authority)

	for i, seat := range []string{"A1", "A2"} {
		_, err := client.MintTicket(ctx, "", res.Event.Address, ticketing.MintRequest{
			Seat:     seat,
			Category: "VIP",
			Metadata: fmt.Sprintf("ipfs://QmSeat%d", i),
		})
		require.NoError(t, err)
	}
	tickets, err := client.ListTickets(ctx, res.Event.Address)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	verify := ticketing.NewInstruction(ticketing.OpVerifyTicket)
	verify.Ticket = tickets[0].Address
	_, err = client.Submit(ctx, verify)
	require.NoError(t, err)
	_, err = client.Submit(ctx, verify)
	assert.ErrorIs(t, err, ticketing.ErrAlreadyVerified)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, CodeAlreadyVerified, remote.Code)
}

func closeWithin(t *testing.T, node *Node, limit time.Duration) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- node.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(limit):
		t.Fatalf("Close blocked for %s", limit)
	}
}

func TestCloseWithoutListen(t *testing.T) {
	log, _ := test.NewNullLogger()
	node, err := NewNode(Config{Host: net.IPv4(127, 0, 0, 1)}, nil, log)
	require.NoError(t, err)
	closeWithin(t, node, 3*time.Second)
}

func TestCloseAfterFailedListen(t *testing.T) {
	first := newServingNode(t)
	require.NoError(t, first.Listen())

	_, portText, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)
	port, err := strconv.ParseUint(portText, 10, 16)
	require.NoError(t, err)

	log, _ := test.NewNullLogger()
	second, err := NewNode(Config{Host: net.IPv4(127, 0, 0, 1), Port: uint16(port)}, nil, log)
	require.NoError(t, err)
	require.Error(t, second.Listen())

	closeWithin(t, second, 3*time.Second)
}
