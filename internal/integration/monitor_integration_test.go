package integration

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/monitor"
	"github.com/oshokin/geofence-monitor/internal/provider"
	"github.com/oshokin/geofence-monitor/internal/provider/mqtt"
)

// doneToken is a completed paho.Token.
type doneToken struct {
	done chan struct{}
}

func newDoneToken() *doneToken {
	done := make(chan struct{})
	close(done)

	return &doneToken{done: done}
}

func (d *doneToken) Wait() bool                     { return true }
func (d *doneToken) WaitTimeout(time.Duration) bool { return true }
func (d *doneToken) Done() <-chan struct{}          { return d.done }
func (d *doneToken) Error() error                   { return nil }

type message struct {
	topic   string
	payload []byte
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 1 }
func (m *message) Retained() bool    { return false }
func (m *message) Topic() string     { return m.topic }
func (m *message) MessageID() uint16 { return 0 }
func (m *message) Payload() []byte   { return m.payload }
func (m *message) Ack()              {}

// device plays the broker and the provider module behind it: every command
// is confirmed on the matching event topic.
type device struct {
	prefix string

	mu       sync.Mutex
	commands []string
	payloads []string
	callback paho.MessageHandler
}

func (d *device) IsConnected() bool { return true }

func (d *device) Publish(topic string, _ byte, _ bool, payload any) paho.Token {
	command := strings.TrimPrefix(topic, d.prefix+"/commands/")
	text, _ := payload.(string)

	d.mu.Lock()
	d.commands = append(d.commands, command)
	d.payloads = append(d.payloads, text)
	d.mu.Unlock()

	switch command {
	case "start":
		d.emit(provider.EventMonitoringStarted, text)
	case "stop":
		d.emit(provider.EventMonitoringStopped, "")
	}

	return newDoneToken()
}

func (d *device) Subscribe(_ string, _ byte, callback paho.MessageHandler) paho.Token {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	return newDoneToken()
}

func (d *device) Disconnect(uint) {}

func (d *device) emit(kind provider.EventKind, payload string) {
	d.mu.Lock()
	callback := d.callback
	d.mu.Unlock()

	callback(nil, &message{topic: d.prefix + "/events/" + kind.String(), payload: []byte(payload)})
}

func (d *device) sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.commands...)
}

// TestMonitorOverMQTT drives the manager through the MQTT bridge from start
// to stop, including a provider-side removal and a provider error.
func TestMonitorOverMQTT(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	dev := &device{prefix: "geofence"}
	bridge := mqtt.NewBridge(dev, mqtt.Settings{TopicPrefix: "geofence", QoS: 1, Timeout: time.Second})

	mgr, err := monitor.New(bridge)
	require.NoError(t, err)
	require.NoError(t, bridge.Listen(ctx))

	enters := make(chan domain.TransitionEvent, 4)
	failures := make(chan error, 4)

	mgr.Subscribe(monitor.SubscriberFuncs{
		Enter: func(event domain.TransitionEvent) { enters <- event },
		Error: func(err error) { failures <- err },
	})

	_, err = mgr.SetFences([]domain.Fence{
		{Identifier: "home", Center: domain.Coordinate{Latitude: 52.52, Longitude: 13.405}, Radius: 100},
		{Identifier: "work", Center: domain.Coordinate{Latitude: 52.5, Longitude: 13.4}, Radius: 250},
	})
	require.NoError(t, err)

	go func() {
		_ = mgr.Run(ctx) //nolint:errcheck // Run returns nil on cancel.
	}()

	stateIs := func(state domain.State) func() bool {
		return func() bool { return mgr.Status().State == state }
	}

	require.NoError(t, mgr.Start())
	require.Eventually(t, stateIs(domain.StateActive), 5*time.Second, 10*time.Millisecond)

	dev.emit(provider.EventEntered, `[{"identifier":"home"}]`)

	select {
	case event := <-enters:
		require.Equal(t, "home", event.FenceIdentifier)
		require.False(t, event.Stale)
		require.NotEmpty(t, event.SessionID)
	case <-time.After(5 * time.Second):
		t.Fatal("enter event was not delivered")
	}

	dev.emit(provider.EventRegionsRemoved, "")
	require.Eventually(t, func() bool { return len(dev.sent()) == 2 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, stateIs(domain.StateActive), 5*time.Second, 10*time.Millisecond)

	dev.emit(provider.EventError, `{"errorcode":1000}`)

	select {
	case err := <-failures:
		var providerErr *provider.ProviderError
		require.True(t, errors.As(err, &providerErr))
		require.Equal(t, provider.CodeNotAvailable, providerErr.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("provider error was not delivered")
	}

	require.Equal(t, domain.StateActive, mgr.Status().State)

	require.NoError(t, mgr.Stop())
	require.Eventually(t, stateIs(domain.StateIdle), 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"start", "start", "stop"}, dev.sent())
}
