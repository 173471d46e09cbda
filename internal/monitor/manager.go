package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/logger"
	"github.com/oshokin/geofence-monitor/internal/provider"
)

// Option configures a Manager.
type Option func(*Manager)

// WithDuplicateWindow suppresses a repeated enter (or exit) of the same fence
// arriving within window of the previous one in the same session.
// Zero, the default, passes every event through.
func WithDuplicateWindow(window time.Duration) Option {
	return func(m *Manager) {
		if window > 0 {
			m.normalizer.window = window
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// messageKind enumerates mailbox messages.
type messageKind int

const (
	messageStart messageKind = iota + 1
	messageStop
	messageEvent
	messageSubmitDone
)

// message is one unit of work for the manager loop.
type message struct {
	kind messageKind
	// event is set for messageEvent.
	event provider.RawEvent
	// receivedAt is when the message was enqueued.
	receivedAt time.Time
	// flight and err are set for messageSubmitDone; err is nil when the
	// call succeeded.
	flight uint64
	err    *provider.ProviderError
}

// Manager is the geofence monitoring manager.
type Manager struct {
	// provider is the external geofencing capability.
	provider provider.Provider
	// registry holds the fences sent with every start request.
	registry *Registry
	// normalizer is only used from the loop.
	normalizer *normalizer
	// now is the clock used for event timestamps.
	now func() time.Time
	// logCtx carries the named logger for calls made outside the loop.
	logCtx context.Context //nolint:containedctx // Only used for logging.

	// stateMu guards machine, session, flight, callInFlight and held together.
	stateMu sync.RWMutex
	machine machine
	// session is the snapshot of the last issued start request.
	session *session
	// flight numbers provider calls so late submit failures can be ignored.
	flight uint64
	// callInFlight is set while a provider call has not returned yet.
	callInFlight bool
	// held is the command waiting for the in-flight call to return.
	held command

	// queueMu guards queue and closed.
	queueMu sync.Mutex
	queue   []message
	closed  bool
	// wake signals the loop that queue is not empty.
	wake chan struct{}

	// running makes Run single-use.
	running atomic.Bool

	// subMu guards subscribers and nextSubscriberID.
	subMu            sync.RWMutex
	subscribers      []subscription
	nextSubscriberID uint64
}

// New creates a manager bound to the provider and subscribes to all provider
// events. Nothing happens until Run is called; requests made before that are
// queued.
func New(p provider.Provider, opts ...Option) (*Manager, error) {
	if p == nil {
		return nil, ErrNilProvider
	}

	m := &Manager{
		provider:   p,
		registry:   NewRegistry(),
		normalizer: newNormalizer(0),
		now:        time.Now,
		logCtx:     logger.WithName(context.Background(), "monitor"),
		wake:       make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(m)
	}

	for _, kind := range provider.Kinds() {
		p.Subscribe(kind, func(event provider.RawEvent) {
			event.Kind = kind

			err := m.enqueue(message{kind: messageEvent, event: event, receivedAt: m.now()})
			if err != nil {
				logger.DebugKV(m.logCtx, "Dropping provider event after close", "kind", kind)
			}
		})
	}

	return m, nil
}

// Run processes requests and provider events until ctx is canceled.
// It may be called once; afterwards every request returns ErrClosed.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	defer m.close()

	ctx = logger.WithName(ctx, "monitor")
	logger.Info(ctx, "Monitor loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Monitor loop stopped")

			return nil
		case <-m.wake:
			for _, msg := range m.takeQueue() {
				m.handle(ctx, msg)
			}
		}
	}
}

// Start requests monitoring of the registry. It never blocks; the outcome
// is reported through OnStateChange and OnError.
//
// The fence list is read when the start request is sent to the provider,
// not when Start is called, so a SetFences made right after Start may
// still be part of that request.
func (m *Manager) Start() error {
	return m.enqueue(message{kind: messageStart, receivedAt: m.now()})
}

// Stop requests that monitoring ends. It never blocks.
func (m *Manager) Stop() error {
	return m.enqueue(message{kind: messageStop, receivedAt: m.now()})
}

// SetFences replaces the registry and returns the previous list.
// Monitoring is not restarted; the new list is used by the next start.
func (m *Manager) SetFences(fences []domain.Fence) ([]domain.Fence, error) {
	previous, err := m.registry.SetFences(fences)
	if err != nil {
		logger.WarnKV(m.logCtx, "Rejected fence list", "error", err)

		return nil, err
	}

	logger.InfoKV(m.logCtx, "Fence list replaced", "fences", len(fences), "previous", len(previous))

	return previous, nil
}

// CurrentFences returns a snapshot of the registry.
func (m *Manager) CurrentFences() []domain.Fence {
	return m.registry.CurrentFences()
}

// FenceCount returns the number of registered fences.
func (m *Manager) FenceCount() int {
	return m.registry.Len()
}

// Status returns the current monitoring status.
func (m *Manager) Status() domain.Status {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	return m.machine.status
}

// Subscribe registers s and returns a function that removes it.
func (m *Manager) Subscribe(s Subscriber) (unsubscribe func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextSubscriberID++
	id := m.nextSubscriberID
	m.subscribers = append(m.subscribers, subscription{id: id, subscriber: s})

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()

		for i, sub := range m.subscribers {
			if sub.id == id {
				m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)

				return
			}
		}
	}
}

// pendingIntent returns the queued request; used by tests.
func (m *Manager) pendingIntent() intent {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	return m.machine.pending
}

// enqueue appends to the mailbox without blocking.
func (m *Manager) enqueue(msg message) error {
	m.queueMu.Lock()

	if m.closed {
		m.queueMu.Unlock()

		return ErrClosed
	}

	m.queue = append(m.queue, msg)
	m.queueMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}

	return nil
}

// takeQueue removes and returns every queued message.
func (m *Manager) takeQueue() []message {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	queue := m.queue
	m.queue = nil

	return queue
}

// close rejects further requests.
func (m *Manager) close() {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	m.closed = true
	m.queue = nil
}

// handle applies one message under stateMu and notifies subscribers after
// releasing it, so callbacks may call back into the manager.
func (m *Manager) handle(ctx context.Context, msg message) {
	m.stateMu.Lock()
	outbox := m.apply(ctx, msg)
	m.stateMu.Unlock()

	m.dispatch(ctx, outbox)
}

// apply runs the transition for msg and issues the resulting provider call.
func (m *Manager) apply(ctx context.Context, msg message) []notification {
	var (
		outbox []notification
		cmd    command
	)

	switch msg.kind {
	case messageStart:
		cmd = m.machine.requestStart()
		logger.DebugKV(ctx, "Start requested", "state", m.machine.status, "pending", m.machine.pending)
	case messageStop:
		cmd = m.machine.requestStop()
		logger.DebugKV(ctx, "Stop requested", "state", m.machine.status, "pending", m.machine.pending)
	case messageSubmitDone:
		cmd, outbox = m.applySubmitDone(ctx, msg)
	case messageEvent:
		cmd, outbox = m.applyEvent(ctx, msg)
	}

	outbox = m.appendChanges(ctx, outbox)
	outbox = append(outbox, m.issue(ctx, cmd)...)

	return m.appendChanges(ctx, outbox)
}

// applyEvent routes a provider event.
func (m *Manager) applyEvent(ctx context.Context, msg message) (command, []notification) {
	event := msg.event

	switch event.Kind {
	case provider.EventEntered, provider.EventExited:
		return commandNone, m.applyTransition(ctx, event, msg.receivedAt)
	case provider.EventError:
		providerErr := provider.DecodeError(event.Payload)
		logger.ErrorKV(ctx, "Provider reported an error",
			"code", providerErr.Code,
			"reason", providerErr.Reason,
			"state", m.machine.status,
		)

		m.machine.failed(providerErr.Error())

		return commandNone, []notification{func(s Subscriber) { s.OnError(providerErr) }}
	case provider.EventRegionsRemoved:
		cmd, ok := m.machine.removed()
		if !ok {
			logger.DebugKV(ctx, "Ignoring regions removal", "state", m.machine.status)

			return commandNone, nil
		}

		logger.WarnKV(ctx, "Provider removed regions, restarting with current fences", "payload", event.Payload)

		return cmd, nil
	case provider.EventMonitoringStarted:
		cmd, ok := m.machine.started()
		if !ok {
			logger.WarnKV(ctx, "Unexpected start confirmation", "state", m.machine.status)
		}

		return cmd, nil
	case provider.EventMonitoringStopped:
		cmd, ok := m.machine.stopped()
		if !ok {
			logger.WarnKV(ctx, "Unexpected stop confirmation", "state", m.machine.status)
		}

		return cmd, nil
	}

	logger.WarnKV(ctx, "Ignoring unknown provider event", "kind", event.Kind)

	return commandNone, nil
}

// applyTransition normalizes an enter/exit event into notifications.
func (m *Manager) applyTransition(ctx context.Context, event provider.RawEvent, now time.Time) []notification {
	events, suppressed, err := m.normalizer.normalize(event, m.session, now)
	if err != nil {
		logger.WarnKV(ctx, "Dropping malformed provider event", "kind", event.Kind, "error", err)

		return []notification{func(s Subscriber) { s.OnError(err) }}
	}

	if suppressed > 0 {
		logger.DebugKV(ctx, "Suppressed duplicate transitions", "kind", event.Kind, "count", suppressed)
	}

	outbox := make([]notification, 0, len(events))

	for _, e := range events {
		if e.Stale {
			logger.WarnKV(ctx, "Transition for a fence outside the monitored snapshot",
				"kind", e.Kind, "identifier", e.FenceIdentifier, "session_id", e.SessionID)
		} else {
			logger.InfoKV(ctx, "Fence transition", "kind", e.Kind, "identifier", e.FenceIdentifier)
		}

		if e.Kind == domain.TransitionEnter {
			outbox = append(outbox, func(s Subscriber) { s.OnEnter(e) })
		} else {
			outbox = append(outbox, func(s Subscriber) { s.OnExit(e) })
		}
	}

	return outbox
}

// applySubmitDone records that the provider call returned and releases a
// held command. A failure fails the in-flight transition unless the call
// was superseded; then it is only logged.
func (m *Manager) applySubmitDone(ctx context.Context, msg message) (command, []notification) {
	m.callInFlight = false

	var outbox []notification

	switch {
	case msg.err == nil:
	case msg.flight != m.flight:
		logger.DebugKV(ctx, "Ignoring failure of a superseded provider call", "error", msg.err)
	default:
		logger.ErrorKV(ctx, "Provider call failed", "error", msg.err, "state", m.machine.status)
		m.machine.failed(msg.err.Error())

		providerErr := msg.err
		outbox = append(outbox, func(s Subscriber) { s.OnError(providerErr) })
	}

	cmd := m.held
	m.held = commandNone

	if cmd != commandNone && !m.machine.expects(cmd) {
		logger.DebugKV(ctx, "Dropping held provider call", "command", cmd, "state", m.machine.status)

		cmd = commandNone
	}

	return cmd, outbox
}

// issue executes cmd, or holds it while the previous provider call has not
// returned. Holding claims a new flight so a late failure of the previous
// call no longer counts.
func (m *Manager) issue(ctx context.Context, cmd command) []notification {
	if cmd == commandNone {
		return nil
	}

	m.flight++

	if m.callInFlight {
		logger.DebugKV(ctx, "Holding provider call until the previous one returns", "command", cmd)

		m.held = cmd

		return nil
	}

	return m.execute(ctx, cmd)
}

// execute issues the provider call requested by the machine. The call runs
// in its own goroutine; issue guarantees only one is in flight.
func (m *Manager) execute(ctx context.Context, cmd command) []notification {
	switch cmd {
	case commandStart:
		fences := m.registry.CurrentFences()

		payload, err := provider.EncodeFences(fences)
		if err != nil {
			providerErr := &provider.ProviderError{Reason: err.Error(), Err: err}
			m.machine.failed(providerErr.Error())

			return []notification{func(s Subscriber) { s.OnError(providerErr) }}
		}

		m.session = newSession(uuid.NewString(), fences, m.now())
		m.normalizer.reset()
		m.callInFlight = true

		if len(fences) == 0 {
			logger.Warn(ctx, "Starting monitoring with an empty fence list")
		}

		logger.InfoKV(ctx, "Requesting provider start", "session_id", m.session.id, "fences", len(fences))

		go m.submit(ctx, m.flight, "start", func(ctx context.Context) error {
			return m.provider.StartMonitoring(ctx, payload)
		})
	case commandStop:
		m.callInFlight = true

		logger.InfoKV(ctx, "Requesting provider stop", "session_id", m.session.sessionID())

		go m.submit(ctx, m.flight, "stop", m.provider.StopMonitoringAll)
	case commandNone:
	}

	return nil
}

// submit performs one provider call and reports its return, successful or
// not, back to the loop.
func (m *Manager) submit(ctx context.Context, flight uint64, operation string, call func(context.Context) error) {
	done := message{
		kind:   messageSubmitDone,
		flight: flight,
	}

	if err := call(ctx); err != nil {
		done.err = provider.NewSubmitError(operation, err)
	}

	done.receivedAt = m.now()

	if enqueueErr := m.enqueue(done); enqueueErr != nil && done.err != nil {
		logger.DebugKV(ctx, "Dropping provider call failure after close", "error", done.err)
	}
}

// appendChanges turns recorded transitions into notifications.
func (m *Manager) appendChanges(ctx context.Context, outbox []notification) []notification {
	for _, c := range m.machine.drain() {
		logger.InfoKV(ctx, "Monitoring state changed", "from", c.from, "to", c.to)

		outbox = append(outbox, func(s Subscriber) { s.OnStateChange(c.from, c.to) })
	}

	return outbox
}

// dispatch delivers notifications to a snapshot of the subscribers.
func (m *Manager) dispatch(ctx context.Context, outbox []notification) {
	if len(outbox) == 0 {
		return
	}

	m.subMu.RLock()
	subscribers := make([]Subscriber, 0, len(m.subscribers))

	for _, sub := range m.subscribers {
		subscribers = append(subscribers, sub.subscriber)
	}
	m.subMu.RUnlock()

	for _, n := range outbox {
		for _, s := range subscribers {
			m.notify(ctx, s, n)
		}
	}
}

// notify calls one subscriber; a panicking subscriber does not stop the loop.
func (m *Manager) notify(ctx context.Context, s Subscriber, n notification) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Subscriber panicked", "panic", r)
		}
	}()

	n(s)
}
