package vesselsync

import (
	"fmt"
	"sync"

	"github.com/coregx/vesselsync/model"
)

// EnvelopeHandler receives decoded envelopes dispatched by the registry.
type EnvelopeHandler func(topic string, envelope model.SyncEnvelope)

// subscription tracks the callbacks registered under one topic pattern.
// It is created on the first subscribe for the pattern and removed when its
// callback set becomes empty.
type subscription struct {
	pattern  string
	qos      byte
	handlers map[int]EnvelopeHandler
}

// SubscriptionRegistry tracks active logical subscriptions and their
// callbacks, dispatches inbound messages, and resubscribes everything after
// a reconnect.
//
// Inbound dispatch re-evaluates wildcard patterns locally (MatchTopic), so
// correctness does not depend on the broker's own wildcard forwarding and
// the matcher stays testable without a live broker.
//
// Thread safety: safe for concurrent use.
type SubscriptionRegistry struct {
	session BrokerSession
	logger  Logger

	mu     sync.RWMutex
	nextID int
	subs   map[string]*subscription
}

// RegistryOption configures a SubscriptionRegistry.
type RegistryOption func(*SubscriptionRegistry) error

// NewSubscriptionRegistry creates a new SubscriptionRegistry with the
// provided options.
//
// Required options:
//   - WithRegistrySession: the broker session
//   - WithRegistryLogger: logger instance
func NewSubscriptionRegistry(opts ...RegistryOption) (*SubscriptionRegistry, error) {
	r := &SubscriptionRegistry{
		subs: make(map[string]*subscription),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply registry option", err)
		}
	}

	// Validate required dependencies
	if r.session == nil {
		return nil, NewError(ErrCodeConfiguration, "BrokerSession is required (use WithRegistrySession)")
	}
	if r.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithRegistryLogger)")
	}

	return r, nil
}

// WithRegistrySession sets the broker session. Required.
func WithRegistrySession(session BrokerSession) RegistryOption {
	return func(r *SubscriptionRegistry) error {
		if session == nil {
			return fmt.Errorf("session cannot be nil")
		}
		r.session = session
		return nil
	}
}

// WithRegistryLogger sets the logger instance. Required.
func WithRegistryLogger(logger Logger) RegistryOption {
	return func(r *SubscriptionRegistry) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// Subscribe registers a callback for an entity class's topic and, when
// enableCatchup is set, for its catchup topic as well.
//
// The returned function removes the callback(s); when a topic's callback set
// becomes empty the broker-side subscription is dropped too.
func (r *SubscriptionRegistry) Subscribe(entityClass string, handler EnvelopeHandler, enableCatchup bool) (unsubscribe func(), err error) {
	if handler == nil {
		return nil, NewError(ErrCodeValidation, "handler is required")
	}

	policy := PolicyFor(entityClass)
	cancelMain := r.subscribePattern(TopicFor(entityClass), policy.QoS, handler)
	if !enableCatchup {
		return cancelMain, nil
	}

	cancelCatchup := r.subscribePattern(CatchupTopicFor(entityClass), CatchupPolicy.QoS, handler)
	return func() {
		cancelMain()
		cancelCatchup()
	}, nil
}

// SubscribePattern registers a callback under a raw topic pattern, which may
// contain + and # wildcards. Matching against inbound topics is evaluated
// locally by MatchTopic.
func (r *SubscriptionRegistry) SubscribePattern(pattern string, qos byte, handler EnvelopeHandler) (unsubscribe func(), err error) {
	if pattern == "" {
		return nil, NewError(ErrCodeValidation, "topic pattern is required")
	}
	if handler == nil {
		return nil, NewError(ErrCodeValidation, "handler is required")
	}
	return r.subscribePattern(pattern, qos, handler), nil
}

func (r *SubscriptionRegistry) subscribePattern(pattern string, qos byte, handler EnvelopeHandler) func() {
	r.mu.Lock()
	sub, exists := r.subs[pattern]
	if !exists {
		sub = &subscription{
			pattern:  pattern,
			qos:      qos,
			handlers: make(map[int]EnvelopeHandler),
		}
		r.subs[pattern] = sub
	}
	id := r.nextID
	r.nextID++
	sub.handlers[id] = handler
	r.mu.Unlock()

	// Broker-side subscription is attempted once here; if it fails (or the
	// session is offline) the next resubscribe-all cycle picks it up.
	if !exists && r.session.IsConnected() {
		if err := r.session.Subscribe(pattern, qos, r.Dispatch); err != nil {
			r.logger.Warnf("Broker subscribe for %s failed, will retry on reconnect: %v", pattern, err)
		} else {
			r.logger.Infof("Subscribed to %s (qos=%d)", pattern, qos)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.removeHandler(pattern, id) })
	}
}

func (r *SubscriptionRegistry) removeHandler(pattern string, id int) {
	r.mu.Lock()
	sub, ok := r.subs[pattern]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(sub.handlers, id)
	empty := len(sub.handlers) == 0
	if empty {
		delete(r.subs, pattern)
	}
	r.mu.Unlock()

	if empty && r.session.IsConnected() {
		if err := r.session.Unsubscribe(pattern); err != nil {
			r.logger.Warnf("Broker unsubscribe for %s failed: %v", pattern, err)
		}
	}
}

// Dispatch decodes an inbound payload and invokes every callback whose
// pattern matches the topic. Undecodable payloads are logged and dropped.
//
// Dispatch is the MessageHandler installed for every broker-side
// subscription.
func (r *SubscriptionRegistry) Dispatch(topic string, payload []byte) {
	envelope, err := model.DecodeEnvelope(payload)
	if err != nil {
		r.logger.Warnf("Dropping undecodable message on %s: %v", topic, err)
		return
	}

	r.mu.RLock()
	var handlers []EnvelopeHandler
	for pattern, sub := range r.subs {
		if MatchTopic(pattern, topic) {
			for _, h := range sub.handlers {
				handlers = append(handlers, h)
			}
		}
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(topic, envelope)
	}
}

// ResubscribeAll re-declares every registered topic on the broker. Invoked
// after each reconnect: the session is durable, but explicit resubscription
// keeps the registry authoritative regardless of broker-side state.
//
// Individual failures are logged, not retried; the next reconnect cycle
// retries them all. Returns the number of successful resubscriptions.
func (r *SubscriptionRegistry) ResubscribeAll() int {
	r.mu.RLock()
	patterns := make([]*subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		patterns = append(patterns, sub)
	}
	r.mu.RUnlock()

	resubscribed := 0
	for _, sub := range patterns {
		if err := r.session.Subscribe(sub.pattern, sub.qos, r.Dispatch); err != nil {
			r.logger.Errorf("Resubscribe to %s failed: %v", sub.pattern, err)
			continue
		}
		resubscribed++
	}

	r.logger.Infof("Resubscribed %d/%d topics", resubscribed, len(patterns))
	return resubscribed
}

// Count returns the number of active topic subscriptions.
func (r *SubscriptionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
