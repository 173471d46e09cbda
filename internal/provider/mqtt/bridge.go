package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/geofence-monitor/internal/logger"
	"github.com/oshokin/geofence-monitor/internal/provider"
)

const (
	// commandStartSuffix is the topic suffix of start commands.
	commandStartSuffix = "/commands/start"
	// commandStopSuffix is the topic suffix of stop commands.
	commandStopSuffix = "/commands/stop"
	// eventsSuffix is the topic suffix under which events arrive.
	eventsSuffix = "/events/"
	// disconnectQuiesce is how long Disconnect waits for pending work, in ms.
	disconnectQuiesce = 250
)

var (
	// errTimeout is returned when the broker does not acknowledge in time.
	errTimeout = errors.New("mqtt operation timed out")
	// errNotConnected is returned when commands are sent while offline.
	errNotConnected = errors.New("mqtt client is not connected")
)

// Client is the subset of paho.Client used by the bridge.
type Client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// Settings configures a Bridge.
type Settings struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string
	// ClientID identifies the connection to the broker.
	ClientID string
	// TopicPrefix is prepended to every topic.
	TopicPrefix string
	// QoS is used for commands and the event subscription.
	QoS byte
	// Timeout bounds connect, subscribe and publish acknowledgements.
	Timeout time.Duration
}

// Bridge implements provider.Provider over MQTT.
type Bridge struct {
	// client is the broker connection.
	client Client
	// settings holds topics, QoS and timeouts.
	settings Settings
	// logCtx carries the bridge logger for broker callbacks.
	logCtx context.Context //nolint:containedctx // Only used for logging.

	// mu protects handlers.
	mu       sync.RWMutex
	handlers map[provider.EventKind][]provider.Handler

	// ready is closed after the first successful event subscription.
	ready     chan struct{}
	readyOnce sync.Once
}

// NewBridge wraps an existing, connected client.
func NewBridge(client Client, settings Settings) *Bridge {
	settings.TopicPrefix = strings.TrimSuffix(settings.TopicPrefix, "/")

	return &Bridge{
		client:   client,
		settings: settings,
		logCtx:   logger.WithKV(logger.WithName(context.Background(), "mqtt"), "broker", settings.Broker),
		handlers: make(map[provider.EventKind][]provider.Handler),
		ready:    make(chan struct{}),
	}
}

// Dial connects to the broker and waits until the event subscription is in
// place, so no confirmation can be missed. The subscription is renewed on
// every reconnect.
func Dial(ctx context.Context, settings Settings) (*Bridge, error) {
	b := NewBridge(nil, settings)

	opts := paho.NewClientOptions().
		AddBroker(settings.Broker).
		SetClientID(settings.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(settings.Timeout).
		SetOrderMatters(true).
		SetOnConnectHandler(func(paho.Client) {
			if err := b.Listen(context.Background()); err != nil {
				logger.ErrorKV(b.logCtx, "Event subscription failed", "error", err)
			}
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.WarnKV(b.logCtx, "Connection to broker lost", "error", err)
		})

	client := paho.NewClient(opts)
	b.client = client

	if err := b.wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	select {
	case <-b.ready:
	case <-ctx.Done():
		client.Disconnect(disconnectQuiesce)

		return nil, ctx.Err()
	case <-time.After(b.settings.Timeout):
		client.Disconnect(disconnectQuiesce)

		return nil, fmt.Errorf("mqtt subscribe events: %w", errTimeout)
	}

	logger.InfoKV(b.logCtx, "Connected to broker", "topic_prefix", b.settings.TopicPrefix)

	return b, nil
}

// StartMonitoring publishes a start command carrying the fence list.
func (b *Bridge) StartMonitoring(ctx context.Context, payload string) error {
	return b.publish(ctx, b.settings.TopicPrefix+commandStartSuffix, payload)
}

// StopMonitoringAll publishes a stop command.
func (b *Bridge) StopMonitoringAll(ctx context.Context) error {
	return b.publish(ctx, b.settings.TopicPrefix+commandStopSuffix, "")
}

// Subscribe registers handler for one event kind.
func (b *Bridge) Subscribe(kind provider.EventKind, handler provider.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[kind] = append(b.handlers[kind], handler)
}

// IsConnected reports whether the broker connection is up.
func (b *Bridge) IsConnected() bool {
	return b.client != nil && b.client.IsConnected()
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	if b.client == nil {
		return
	}

	b.client.Disconnect(disconnectQuiesce)
	logger.Info(b.logCtx, "Disconnected from broker")
}

// eventsFilter is the wildcard subscription for every event name.
func (b *Bridge) eventsFilter() string {
	return b.settings.TopicPrefix + eventsSuffix + "+"
}

// Listen subscribes to the event topics and waits for the broker
// acknowledgement. Dial calls it on every (re)connect; callers of NewBridge
// call it once themselves.
func (b *Bridge) Listen(ctx context.Context) error {
	token := b.client.Subscribe(b.eventsFilter(), b.settings.QoS, b.handleMessage)
	if err := b.wait(ctx, token); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.eventsFilter(), err)
	}

	logger.DebugKV(b.logCtx, "Subscribed to events", "filter", b.eventsFilter())
	b.readyOnce.Do(func() { close(b.ready) })

	return nil
}

// handleMessage maps a broker message to a provider event.
func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	prefix := b.settings.TopicPrefix + eventsSuffix

	name, found := strings.CutPrefix(msg.Topic(), prefix)
	if !found {
		logger.WarnKV(b.logCtx, "Message outside the event namespace", "topic", msg.Topic())

		return
	}

	kind, ok := provider.ParseEventKind(name)
	if !ok {
		logger.WarnKV(b.logCtx, "Ignoring unknown event", "topic", msg.Topic())

		return
	}

	b.mu.RLock()
	handlers := b.handlers[kind]
	b.mu.RUnlock()

	event := provider.RawEvent{Kind: kind, Payload: string(msg.Payload())}

	logger.DebugKV(b.logCtx, "Event received", "kind", kind, "bytes", len(event.Payload))

	for _, h := range handlers {
		h(event)
	}
}

// publish sends a command and waits for the broker acknowledgement.
func (b *Bridge) publish(ctx context.Context, topic, payload string) error {
	if !b.IsConnected() {
		return errNotConnected
	}

	if err := b.wait(ctx, b.client.Publish(topic, b.settings.QoS, false, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	logger.DebugKV(b.logCtx, "Command published", "topic", topic, "bytes", len(payload))

	return nil
}

// wait blocks until the token completes, ctx ends or the timeout passes.
func (b *Bridge) wait(ctx context.Context, token paho.Token) error {
	timeout := b.settings.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errTimeout
	}
}
