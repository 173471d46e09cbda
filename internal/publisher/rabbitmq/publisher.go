package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/logger"
	"github.com/oshokin/geofence-monitor/internal/monitor"
	"github.com/oshokin/geofence-monitor/internal/provider"
)

var _ monitor.Subscriber = (*Publisher)(nil)

// Message types, also used as routing keys.
const (
	TypeEnter       = "geofence.enter"
	TypeExit        = "geofence.exit"
	TypeError       = "geofence.error"
	TypeStateChange = "geofence.state"
)

const (
	// defaultPublishTimeout bounds one publish when no timeout is configured.
	defaultPublishTimeout = 5 * time.Second
	// defaultBufferSize is how many messages may wait for the broker.
	defaultBufferSize = 256
)

// Option configures a Publisher.
type Option func(*Publisher)

// WithBufferSize sets how many messages may wait for the broker before new
// ones are dropped.
func WithBufferSize(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.bufferSize = size
		}
	}
}

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Message is the JSON body of every published event.
type Message struct {
	// Type is one of the Type* constants.
	Type string `json:"type"`
	// Identifier is the fence of an enter or exit event.
	Identifier string `json:"identifier,omitempty"`
	// Stale marks transitions of fences missing from the session snapshot.
	Stale bool `json:"stale,omitempty"`
	// SessionID is the monitoring session of a transition.
	SessionID string `json:"session_id,omitempty"`
	// State is the new monitoring state of a state change.
	State string `json:"state,omitempty"`
	// PreviousState is the old monitoring state of a state change.
	PreviousState string `json:"previous_state,omitempty"`
	// Reason describes an error or a failed state.
	Reason string `json:"reason,omitempty"`
	// Code is the provider status code of an error, if any.
	Code int `json:"code,omitempty"`
	// Timestamp is when the event was received or produced.
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is a monitor.Subscriber that forwards events to an exchange.
// Callbacks only enqueue; one worker publishes in order. Publish failures
// and messages dropped on a full buffer are logged and never reach the
// manager.
type Publisher struct {
	// conn is nil when the publisher was built around an existing channel.
	conn *amqp.Connection
	// ch is the channel used for publishing.
	ch Channel
	// exchange is the fanout exchange name.
	exchange string
	// timeout bounds one publish.
	timeout time.Duration
	// now stamps events that carry no time of their own.
	now func() time.Time
	// logCtx carries the publisher logger.
	logCtx context.Context //nolint:containedctx // Only used for logging.

	// bufferSize is the capacity of queue.
	bufferSize int
	// queue feeds the worker.
	queue chan Message
	// quit is closed by Close; done is closed when the worker exits.
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string, timeout time.Duration, opts ...Option) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	p, err := New(ch, exchange, timeout, opts...)
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	p.conn = conn

	return p, nil
}

// New declares a durable fanout exchange on ch and starts the publishing
// worker. Close stops it.
func New(ch Channel, exchange string, timeout time.Duration, opts ...Option) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	p := &Publisher{
		ch:         ch,
		exchange:   exchange,
		timeout:    timeout,
		now:        time.Now,
		logCtx:     logger.WithKV(logger.WithName(context.Background(), "rabbitmq"), "exchange", exchange),
		bufferSize: defaultBufferSize,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.queue = make(chan Message, p.bufferSize)

	go p.run()

	return p, nil
}

// IsClosed reports whether the broker connection is gone.
func (p *Publisher) IsClosed() bool {
	return p.conn != nil && p.conn.IsClosed()
}

// Close publishes what is still buffered, stops the worker and releases the
// channel and the connection. Messages arriving after Close are dropped.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
		<-p.done

		p.closeErr = p.ch.Close()

		if p.conn != nil {
			p.closeErr = errors.Join(p.closeErr, p.conn.Close())
		}
	})

	return p.closeErr
}

// OnEnter implements monitor.Subscriber.
func (p *Publisher) OnEnter(event domain.TransitionEvent) {
	p.enqueue(transitionMessage(TypeEnter, event))
}

// OnExit implements monitor.Subscriber.
func (p *Publisher) OnExit(event domain.TransitionEvent) {
	p.enqueue(transitionMessage(TypeExit, event))
}

// OnError implements monitor.Subscriber.
func (p *Publisher) OnError(err error) {
	msg := Message{
		Type:      TypeError,
		Reason:    err.Error(),
		Timestamp: p.now(),
	}

	var providerErr *provider.ProviderError
	if errors.As(err, &providerErr) {
		msg.Code = providerErr.Code
		msg.Reason = providerErr.Reason
	}

	p.enqueue(msg)
}

// OnStateChange implements monitor.Subscriber.
func (p *Publisher) OnStateChange(previous, current domain.Status) {
	p.enqueue(Message{
		Type:          TypeStateChange,
		State:         current.State.String(),
		PreviousState: previous.State.String(),
		Reason:        current.Reason,
		Timestamp:     p.now(),
	})
}

func transitionMessage(kind string, event domain.TransitionEvent) Message {
	return Message{
		Type:       kind,
		Identifier: event.FenceIdentifier,
		Stale:      event.Stale,
		SessionID:  event.SessionID,
		Timestamp:  event.ReceivedAt,
	}
}

// enqueue hands msg to the worker without blocking.
func (p *Publisher) enqueue(msg Message) {
	select {
	case <-p.quit:
		logger.DebugKV(p.logCtx, "Dropping event after close", "type", msg.Type)

		return
	default:
	}

	select {
	case p.queue <- msg:
	default:
		logger.WarnKV(p.logCtx, "Publish buffer full, dropping event", "type", msg.Type, "buffer", p.bufferSize)
	}
}

// run publishes queued messages until Close, then flushes the buffer.
func (p *Publisher) run() {
	defer close(p.done)

	for {
		select {
		case msg := <-p.queue:
			p.publish(msg)
		case <-p.quit:
			for {
				select {
				case msg := <-p.queue:
					p.publish(msg)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) publish(msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorKV(p.logCtx, "Failed to encode event", "type", msg.Type, "error", err)

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, msg.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.Timestamp,
		Type:         msg.Type,
		Body:         body,
	})
	if err != nil {
		logger.ErrorKV(p.logCtx, "Failed to publish event", "type", msg.Type, "error", err)

		return
	}

	logger.DebugKV(p.logCtx, "Event published", "type", msg.Type)
}
