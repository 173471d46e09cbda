package monitor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/provider"
)

// providerCall is one recorded call to fakeProvider.
type providerCall struct {
	// operation is "start" or "stop".
	operation string
	// payload is the fence list sent with start.
	payload string
}

// fakeProvider records calls and replays events on demand.
type fakeProvider struct {
	// mu protects every field below.
	mu sync.Mutex
	// handlers are the registered event handlers per kind.
	handlers map[provider.EventKind][]provider.Handler
	// calls lists start/stop calls in order.
	calls []providerCall
	// startErr is returned by StartMonitoring when set.
	startErr error
	// release, when set, blocks every call until it is closed.
	release chan struct{}
	// running and maxRunning count calls that have not returned yet.
	running    int
	maxRunning int
}

// newFakeProvider creates an empty fake.
func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		handlers: make(map[provider.EventKind][]provider.Handler),
	}
}

// StartMonitoring records a start call.
func (f *fakeProvider) StartMonitoring(_ context.Context, payload string) error {
	f.call(providerCall{operation: "start", payload: payload})

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.startErr
}

// StopMonitoringAll records a stop call.
func (f *fakeProvider) StopMonitoringAll(context.Context) error {
	f.call(providerCall{operation: "stop"})

	return nil
}

// call records c and waits for release, if set.
func (f *fakeProvider) call(c providerCall) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.running++
	f.maxRunning = max(f.maxRunning, f.running)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	f.mu.Lock()
	f.running--
	f.mu.Unlock()
}

// concurrency returns the largest number of calls seen running at once.
func (f *fakeProvider) concurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.maxRunning
}

// Subscribe registers a handler.
func (f *fakeProvider) Subscribe(kind provider.EventKind, handler provider.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[kind] = append(f.handlers[kind], handler)
}

// emit delivers an event to the registered handlers.
func (f *fakeProvider) emit(kind provider.EventKind, payload string) {
	f.mu.Lock()
	handlers := append([]provider.Handler(nil), f.handlers[kind]...)
	f.mu.Unlock()

	for _, h := range handlers {
		h(provider.RawEvent{Kind: kind, Payload: payload})
	}
}

// recorded returns a copy of the calls.
func (f *fakeProvider) recorded() []providerCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]providerCall(nil), f.calls...)
}

// recorder is a Subscriber that keeps everything it receives.
type recorder struct {
	mu      sync.Mutex
	enters  []domain.TransitionEvent
	exits   []domain.TransitionEvent
	errs    []error
	changes []change
}

// OnEnter implements Subscriber.
func (r *recorder) OnEnter(event domain.TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enters = append(r.enters, event)
}

// OnExit implements Subscriber.
func (r *recorder) OnExit(event domain.TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exits = append(r.exits, event)
}

// OnError implements Subscriber.
func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs = append(r.errs, err)
}

// OnStateChange implements Subscriber.
func (r *recorder) OnStateChange(previous, current domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.changes = append(r.changes, change{from: previous, to: current})
}

// snapshot returns copies of the recorded values.
func (r *recorder) snapshot() (enters, exits []domain.TransitionEvent, errs []error, changes []change) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.TransitionEvent(nil), r.enters...),
		append([]domain.TransitionEvent(nil), r.exits...),
		append([]error(nil), r.errs...),
		append([]change(nil), r.changes...)
}

// runManager builds a manager with a recorder and runs its loop.
// The returned stop function cancels the loop and waits for it to exit.
func runManager(t *testing.T, p *fakeProvider, opts ...Option) (*Manager, *recorder, func()) {
	t.Helper()

	m, err := New(p, opts...)
	require.NoError(t, err)

	rec := new(recorder)
	m.Subscribe(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = m.Run(ctx) //nolint:errcheck // Run only fails when started twice.
	}()

	return m, rec, func() {
		cancel()
		<-done
	}
}

// sampleFences is the fence list of the sample application.
func sampleFences() []domain.Fence {
	return []domain.Fence{{
		Identifier: "test",
		Center:     domain.Coordinate{Latitude: 55.625, Longitude: -111.870},
		Radius:     50,
	}}
}

// status is a shorthand for a non-failed Status.
func status(s domain.State) domain.Status {
	return domain.Status{State: s}
}
