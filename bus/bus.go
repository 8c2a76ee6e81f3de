package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/logging"
)

const (
	defaultHistorySize    = 1000
	defaultRequestTimeout = 30 * time.Second

	// busAuthor is the sender identity of bus-generated annotation events.
	busAuthor = "bus"
)

// Handler processes one delivered message and returns an optional result.
// Handlers must respect the supplied context and must not block indefinitely.
type Handler func(ctx context.Context, msg core.Message) (any, error)

// Filter decides whether a subscription wants a particular message.
type Filter func(msg core.Message) bool

// Subscription binds an agent identity to a handler, an optional filter and
// a priority used to order delivery when multiple handlers qualify.
type Subscription struct {
	Agent    string
	Handler  Handler
	Filter   Filter
	Priority int
}

func (s Subscription) matches(msg core.Message) bool {
	return s.Filter == nil || s.Filter(msg)
}

// Options configures a Bus.
type Options struct {
	// HistorySize bounds the message history ring buffer.
	HistorySize int
	// RequestTimeout is the default deadline for Request calls.
	RequestTimeout time.Duration
	// Logger receives delivery diagnostics (defaults to NoOp).
	Logger logging.Logger
}

// Bus routes messages between subscribed agents. All methods are safe for
// concurrent use; the subscription table, pending-request table and history
// buffer share a single internal lock.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]Subscription
	pending map[string]chan core.Message
	history *ring

	requestTimeout time.Duration
	logger         logging.Logger
}

// New constructs a Bus with optional overrides.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		HistorySize:    defaultHistorySize,
		RequestTimeout: defaultRequestTimeout,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Bus{
		subs:           make(map[string][]Subscription),
		pending:        make(map[string]chan core.Message),
		history:        newRing(opts.HistorySize),
		requestTimeout: opts.RequestTimeout,
		logger:         opts.Logger,
	}
}

// SubscribeOptions customize a Subscribe call.
type SubscribeOptions struct {
	Filter   Filter
	Priority int
}

// WithFilter restricts the subscription to messages accepted by the predicate.
func WithFilter(f Filter) func(*SubscribeOptions) {
	return func(o *SubscribeOptions) { o.Filter = f }
}

// WithSubscribePriority orders handler invocation when multiple
// subscriptions qualify for the same agent (higher fires first).
func WithSubscribePriority(p int) func(*SubscribeOptions) {
	return func(o *SubscribeOptions) { o.Priority = p }
}

// Subscribe registers a handler for the agent. An agent may hold many
// subscriptions; registering the same tuple twice creates a second entry
// (callers are responsible for deduplication).
func (b *Bus) Subscribe(agentName string, handler Handler, optFns ...func(*SubscribeOptions)) {
	var opts SubscribeOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	sub := Subscription{Agent: agentName, Handler: handler, Filter: opts.Filter, Priority: opts.Priority}

	b.mu.Lock()
	defer b.mu.Unlock()

	// insert keeping descending priority order, stable for equal priorities
	list := b.subs[agentName]
	pos := len(list)
	for i, existing := range list {
		if sub.Priority > existing.Priority {
			pos = i
			break
		}
	}
	list = append(list, Subscription{})
	copy(list[pos+1:], list[pos:])
	list[pos] = sub
	b.subs[agentName] = list
}

// Unsubscribe removes all subscriptions for the agent. No-op if the agent is
// unknown.
func (b *Bus) Unsubscribe(agentName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, agentName)
}

// Publish routes the message according to its kind:
//   - Direct: delivers to the receiver's matching subscriptions in priority
//     order, awaiting each handler; a handler error aborts delivery and is
//     returned to the caller as a *DeliveryError.
//   - Broadcast: delivers to every subscriber except the sender concurrently;
//     handler failures are isolated, recorded in history and never returned.
//   - Event: like Broadcast but fire-and-forget (no waiting beyond dispatch).
//   - Request: blocks for a correlated response (see Request); the response
//     itself is discarded, use Request directly to obtain it.
//   - Response: delivered to the receiver with isolated failures (audit path).
//
// Expired messages are recorded in history but not delivered.
func (b *Bus) Publish(ctx context.Context, msg core.Message) error {
	if msg.Kind == core.KindRequest {
		_, err := b.Request(ctx, msg)
		return err
	}

	b.record(msg)

	if msg.Expired(time.Now()) {
		b.logger.Debug("bus.publish.expired", "message_id", msg.ID, "kind", string(msg.Kind))
		return nil
	}

	switch msg.Kind {
	case core.KindDirect:
		return b.deliverDirect(ctx, msg)
	case core.KindBroadcast:
		b.deliverBroadcast(ctx, msg, true)
		return nil
	case core.KindEvent:
		b.deliverBroadcast(ctx, msg, false)
		return nil
	case core.KindResponse:
		b.deliverIsolated(ctx, msg)
		return nil
	default:
		return fmt.Errorf("unknown message kind: %q", msg.Kind)
	}
}

// Request publishes a request-kind message and blocks until a matching
// Respond occurs, the timeout elapses (ErrRequestTimeout) or the context is
// cancelled. The pending-response registration is always released.
func (b *Bus) Request(ctx context.Context, msg core.Message, optFns ...func(*RequestOptions)) (core.Message, error) {
	opts := RequestOptions{Timeout: b.requestTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}

	msg.Kind = core.KindRequest

	waiter := make(chan core.Message, 1)
	b.mu.Lock()
	b.pending[msg.ID] = waiter
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, msg.ID)
		b.mu.Unlock()
	}()

	b.record(msg)

	if err := b.deliverDirect(ctx, msg); err != nil {
		return core.Message{}, err
	}

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	select {
	case resp := <-waiter:
		return resp, nil
	case <-timer.C:
		return core.Message{}, fmt.Errorf("no response to message %s within %s: %w", msg.ID, opts.Timeout, ErrRequestTimeout)
	case <-ctx.Done():
		return core.Message{}, ctx.Err()
	}
}

// RequestOptions customize a Request call.
type RequestOptions struct {
	Timeout time.Duration
}

// WithRequestTimeout overrides the bus default deadline for one request.
func WithRequestTimeout(d time.Duration) func(*RequestOptions) {
	return func(o *RequestOptions) { o.Timeout = d }
}

// Respond resolves any pending request awaiting the original message's ID,
// then publishes a response-kind message addressed to the original sender
// for audit purposes. At most one response is honored per request; if no
// caller is awaiting (already timed out, or already answered) the response
// is still recorded in history. This is not an error.
func (b *Bus) Respond(ctx context.Context, original core.Message, payload any) error {
	resp := core.NewResponse(original, payload)

	b.mu.Lock()
	waiter, ok := b.pending[original.ID]
	if ok {
		delete(b.pending, original.ID)
	}
	b.mu.Unlock()

	if ok {
		waiter <- resp // buffered; single send guaranteed by delete-under-lock
	}

	return b.Publish(ctx, resp)
}

// deliverDirect invokes the receiver's matching subscriptions in priority
// order, stopping at the first handler error.
func (b *Bus) deliverDirect(ctx context.Context, msg core.Message) error {
	subs := b.matchingSubs(msg.Receiver, msg)

	for _, sub := range subs {
		if _, err := sub.Handler(ctx, msg); err != nil {
			b.annotateError(msg, sub.Agent, err)
			return &DeliveryError{Agent: sub.Agent, MessageID: msg.ID, Err: err}
		}
	}

	b.logger.Debug("bus.deliver.direct", "message_id", msg.ID, "receiver", msg.Receiver, "handlers", len(subs))

	return nil
}

// deliverBroadcast fans the message out to every matching subscription except
// the sender's. Handler failures are isolated: they are annotated in history
// and never abort delivery to the remaining handlers. When wait is false the
// dispatch is fire-and-forget.
func (b *Bus) deliverBroadcast(ctx context.Context, msg core.Message, wait bool) {
	b.mu.RLock()
	var targets []Subscription
	for agent, list := range b.subs {
		if agent == msg.Sender {
			continue
		}
		for _, sub := range list {
			if sub.matches(msg) {
				targets = append(targets, sub)
			}
		}
	}
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range targets {
		wg.Add(1)
		go func(s Subscription) {
			defer wg.Done()
			if _, err := s.Handler(ctx, msg); err != nil {
				b.annotateError(msg, s.Agent, err)
			}
		}(sub)
	}

	if wait {
		wg.Wait()
	}

	b.logger.Debug("bus.deliver.broadcast", "message_id", msg.ID, "kind", string(msg.Kind), "handlers", len(targets))
}

// deliverIsolated delivers to the receiver like a direct message but isolates
// handler failures; used for response audit delivery.
func (b *Bus) deliverIsolated(ctx context.Context, msg core.Message) {
	for _, sub := range b.matchingSubs(msg.Receiver, msg) {
		if _, err := sub.Handler(ctx, msg); err != nil {
			b.annotateError(msg, sub.Agent, err)
		}
	}
}

// matchingSubs snapshots the receiver's matching subscriptions in priority
// order. Handlers run outside the lock.
func (b *Bus) matchingSubs(agent string, msg core.Message) []Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Subscription
	for _, sub := range b.subs[agent] {
		if sub.matches(msg) {
			out = append(out, sub)
		}
	}
	return out
}

// record appends the message to the history ring.
func (b *Bus) record(msg core.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.append(msg)
}

// annotateError records a handler failure in history as a bus-authored event
// correlated to the failed message.
func (b *Bus) annotateError(msg core.Message, agent string, err error) {
	evt := core.NewEvent(busAuthor, nil,
		core.WithMetadata("error", err.Error()),
		core.WithMetadata("failed_agent", agent),
	)
	evt.CorrelationID = msg.ID
	b.record(evt)

	b.logger.Warn("bus.handler.error", "message_id", msg.ID, "agent", agent, "error", err.Error())
}

// HistoryOptions filter a GetHistory call.
type HistoryOptions struct {
	Agent string
	Kind  core.Kind
	Limit int
}

// WithHistoryAgent keeps only messages sent or received by the agent.
func WithHistoryAgent(agent string) func(*HistoryOptions) {
	return func(o *HistoryOptions) { o.Agent = agent }
}

// WithHistoryKind keeps only messages of the given kind.
func WithHistoryKind(kind core.Kind) func(*HistoryOptions) {
	return func(o *HistoryOptions) { o.Kind = kind }
}

// WithHistoryLimit caps the number of returned messages (default 100).
func WithHistoryLimit(limit int) func(*HistoryOptions) {
	return func(o *HistoryOptions) { o.Limit = limit }
}

// GetHistory returns the most recent matching messages in chronological
// order, bounded by the ring buffer (oldest entries evicted first). This is
// an observability aid, not a delivery guarantee.
func (b *Bus) GetHistory(optFns ...func(*HistoryOptions)) []core.Message {
	opts := HistoryOptions{Limit: 100}
	for _, fn := range optFns {
		fn(&opts)
	}

	b.mu.RLock()
	all := b.history.snapshot()
	b.mu.RUnlock()

	matched := make([]core.Message, 0, len(all))
	for _, m := range all {
		if opts.Agent != "" && m.Sender != opts.Agent && m.Receiver != opts.Agent {
			continue
		}
		if opts.Kind != "" && m.Kind != opts.Kind {
			continue
		}
		matched = append(matched, m)
	}

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[len(matched)-opts.Limit:]
	}

	return matched
}

// pendingCount reports the number of unresolved requests. Test hook.
func (b *Bus) pendingCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pending)
}
