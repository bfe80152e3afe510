// Package network serves a ticketing program to peers over noise. Each
// request is executed as the identity the sender authenticated with during
// the noise handshake, so a peer can only ever act as itself.
package network

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/perlin-network/noise"
	"github.com/perlin-network/noise/kademlia"
	"github.com/sirupsen/logrus"
)

const (
	printedLength = 8 // printedLength is the prefix of a peer key shown in logs.

	dialTimeout    = 3 * time.Second
	executeTimeout = 10 * time.Second
)

// Config describes how a node binds and identifies itself.
type Config struct {
	Host    net.IP
	Port    uint16
	Address string
	// PrivateKey is the node's identity. A fresh key is generated when zero.
	PrivateKey noise.PrivateKey
}

// Node is a noise node with a kademlia overlay.
type Node struct {
	node    *noise.Node
	overlay *kademlia.Protocol
	program *ticketing.Program
	log     logrus.FieldLogger

	// listening is set once Listen succeeds. noise only releases Close
	// after its listener has started.
	listening atomic.Bool
}

// ParsePrivateKey decodes a hex encoded noise private key.
func ParsePrivateKey(s string) (noise.PrivateKey, error) {
	var key noise.PrivateKey
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return key, fmt.Errorf("node key: %w", err)
	}
	if len(raw) != noise.SizePrivateKey {
		return key, fmt.Errorf("node key: want %d bytes, got %d", noise.SizePrivateKey, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// IdentityOf returns the ledger identity a noise key acts as.
func IdentityOf(pub noise.PublicKey) wallet.Address {
	return wallet.AddressFromPublicKey(pub[:])
}

// NewNode creates a node. program may be nil for a node that only submits
// instructions to others.
func NewNode(cfg Config, program *ticketing.Program, log logrus.FieldLogger) (*Node, error) {
	opts := []noise.NodeOption{
		noise.WithNodeBindHost(cfg.Host),
		noise.WithNodeBindPort(cfg.Port),
	}
	if cfg.Address != "" {
		opts = append(opts, noise.WithNodeAddress(cfg.Address))
	}
	if cfg.PrivateKey != (noise.PrivateKey{}) {
		opts = append(opts, noise.WithNodePrivateKey(cfg.PrivateKey))
	}

	node, err := noise.NewNode(opts...)
	if err != nil {
		return nil, err
	}

	n := &Node{node: node, program: program, log: log}

	node.RegisterMessage(instructionMessage{}, unmarshalInstructionMessage)
	node.RegisterMessage(resultMessage{}, unmarshalResultMessage)
	node.Handle(n.handle)

	events := kademlia.Events{
		OnPeerAdmitted: func(id noise.ID) {
			n.log.Infof("Learned about a new peer %s(%s).", id.Address, id.ID.String()[:printedLength])
		},
		OnPeerEvicted: func(id noise.ID) {
			n.log.Infof("Forgotten a peer %s(%s).", id.Address, id.ID.String()[:printedLength])
		},
	}
	n.overlay = kademlia.New(kademlia.WithProtocolEvents(events))
	node.Bind(n.overlay.Protocol())

	return n, nil
}

// Listen starts accepting peers.
func (n *Node) Listen() error {
	if err := n.node.Listen(); err != nil {
		return err
	}
	n.listening.Store(true)
	n.log.WithField("identity", n.Identity()).Infof("Listening on %s(%s)", n.node.Addr(), n.node.ID().ID.String()[:printedLength])
	return nil
}

// Addr returns the address peers reach this node at.
func (n *Node) Addr() string { return n.node.Addr() }

// Identity returns the ledger identity of this node.
func (n *Node) Identity() wallet.Address { return IdentityOf(n.node.ID().ID) }

// Close stops the node. A node that never listened holds nothing to
// release.
func (n *Node) Close() error {
	if !n.listening.Load() {
		return nil
	}
	return n.node.Close()
}

// Bootstrap pings each address so the overlay learns about it.
func (n *Node) Bootstrap(ctx context.Context, addresses ...string) {
	for _, addr := range addresses {
		pctx, cancel := context.WithTimeout(ctx, dialTimeout)
		_, err := n.node.Ping(pctx, addr)
		cancel()

		if err != nil {
			n.log.WithError(err).Warnf("Failed to ping bootstrap node (%s). Skipping...", addr)
			continue
		}
	}
}

// Discover uses kademlia to find peers of the peers already known.
func (n *Node) Discover() []noise.ID {
	ids := n.overlay.Discover()
	if len(ids) > 0 {
		n.log.Infof("Discovered %d peer(s): [%v]", len(ids), describe(ids))
	} else {
		n.log.Info("Did not discover any peers.")
	}
	return ids
}

// Peers returns every peer in the routing table.
func (n *Node) Peers() []noise.ID {
	return n.overlay.Table().Peers()
}

func describe(ids []noise.ID) string {
	var str []string
	for _, id := range ids {
		str = append(str, fmt.Sprintf("%s(%s)", id.Address, id.ID.String()[:printedLength]))
	}
	return strings.Join(str, ", ")
}

// handle answers instruction requests from peers.
func (n *Node) handle(ctx noise.HandlerContext) error {
	if !ctx.IsRequest() {
		return nil
	}

	obj, err := ctx.DecodeMessage()
	if err != nil {
		return nil
	}
	msg, ok := obj.(instructionMessage)
	if !ok {
		return nil
	}

	caller := IdentityOf(ctx.ID().ID)
	n.log.WithFields(logrus.Fields{
		"op":     msg.Instruction.Op,
		"id":     msg.Instruction.ID,
		"caller": caller,
		"peer":   ctx.ID().Address,
	}).Debug("Received instruction")

	execCtx, cancel := context.WithTimeout(context.Background(), executeTimeout)
	defer cancel()
	return ctx.SendMessage(n.serve(execCtx, caller, msg.Instruction))
}

// serve executes one instruction and packs the outcome for the wire.
func (n *Node) serve(ctx context.Context, caller wallet.Address, ins ticketing.Instruction) resultMessage {
	reply := resultMessage{ID: ins.ID}
	if n.program == nil {
		reply.Code, reply.Message = CodeInternal, "node does not serve a ticketing program"
		return reply
	}

	res, err := n.program.Execute(ctx, caller, ins)
	if err != nil {
		reply.Code, reply.Message = ErrorCode(err), err.Error()
		if reply.Code == CodeInternal {
			n.log.WithError(err).WithField("op", ins.Op).Error("instruction failed")
		}
		return reply
	}
	reply.Result = res
	return reply
}
