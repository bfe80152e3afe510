// Package notify publishes ticket lifecycle changes to a RabbitMQ topic
// exchange so box offices, gates and wallets can follow a ledger without
// polling it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/jlynch25/golang-ticketing/wallet"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Routing keys published on the exchange.
const (
	KeyProgramInitialized = "program.initialized"
	KeyEventCreated       = "event.created"
	KeyEventClosed        = "event.closed"
	KeyTicketMinted       = "ticket.minted"
	KeyTicketVerified     = "ticket.verified"
	KeyTicketTransferred  = "ticket.transferred"
)

// RoutingKey maps an operation to its routing key. Read-only operations
// have none.
func RoutingKey(op ticketing.Op) (string, bool) {
	switch op {
	case ticketing.OpInitialize:
		return KeyProgramInitialized, true
	case ticketing.OpInitializeEvent:
		return KeyEventCreated, true
	case ticketing.OpCloseEvent:
		return KeyEventClosed, true
	case ticketing.OpMintTicket:
		return KeyTicketMinted, true
	case ticketing.OpVerifyTicket:
		return KeyTicketVerified, true
	case ticketing.OpTransferTicket:
		return KeyTicketTransferred, true
	}
	return "", false
}

// Message is the JSON body of every notification.
type Message struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	At            time.Time         `json:"at"`
	Caller        wallet.Address    `json:"caller,omitempty"`
	Event         *ticketing.Event  `json:"event,omitempty"`
	Ticket        *ticketing.Ticket `json:"ticket,omitempty"`
	PreviousOwner wallet.Address    `json:"previous_owner,omitempty"`
}

// NewMessage function
func NewMessage(key string, change ticketing.Change) Message {
	return Message{
		ID:            uuid.NewString(),
		Type:          key,
		At:            time.Unix(change.At, 0).UTC(),
		Caller:        change.Caller,
		Event:         change.Event,
		Ticket:        change.Ticket,
		PreviousOwner: change.PreviousOwner,
	}
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type connection interface {
	IsClosed() bool
	Close() error
}

// Publisher is a ticketing.Observer that forwards changes to an exchange.
type Publisher struct {
	url      string
	exchange string
	log      logrus.FieldLogger

	// dial is swapped in tests.
	dial func(url, exchange string) (connection, channel, error)

	mu   sync.Mutex
	conn connection
	ch   channel
}

// NewPublisher dials the broker and declares a durable topic exchange.
func NewPublisher(url, exchange string, log logrus.FieldLogger) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange, log: log.WithField("exchange", exchange), dial: dialExchange}
	if err := p.ensureConnection(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureConnection() error {
	if p.ch != nil && (p.conn == nil || !p.conn.IsClosed()) {
		return nil
	}
	// the broker already dropped both; closing releases the handles
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}

	conn, ch, err := p.dial(p.url, p.exchange)
	if err != nil {
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

// dialExchange connects and declares a durable topic exchange.
func dialExchange(url, exchange string) (connection, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return conn, ch, nil
}

// Publish sends one message, reconnecting first if the connection dropped.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnection(); err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		p.exchange,
		msg.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.At,
			Type:         msg.Type,
			Body:         body,
		},
	)
}

// Observe function
func (p *Publisher) Observe(ctx context.Context, change ticketing.Change) {
	key, ok := RoutingKey(change.Op)
	if !ok {
		return
	}
	msg := NewMessage(key, change)
	if err := p.Publish(ctx, msg); err != nil {
		p.log.WithError(err).WithField("type", key).Error("publish notification")
		return
	}
	p.log.WithFields(logrus.Fields{"type": key, "id": msg.ID}).Debug("Published notification")
}

// Close function
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
