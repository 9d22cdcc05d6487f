package ndax

import (
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"ndax/pkg/core"
)

// SubscriptionID identifies one registered subscription.
type SubscriptionID int64

type subKey struct {
	endpoint   string
	instrument int64
}

// subscription holds everything needed to place, route, replay, and remove
// one feed registration.
type subscription struct {
	id  SubscriptionID
	key subKey

	// request is the wire subscribe payload, replayed on every reconnect.
	request any
	// events are the gateway push names routed to this subscription.
	events []string

	// unsubEndpoint/unsubRequest describe the wire unsubscribe. A nil
	// request means the feed has no wire-level removal.
	unsubEndpoint string
	unsubRequest  any

	handler func(*core.Frame)

	// active records whether the wire subscribe was sent in the current
	// connection epoch.
	active bool
}

// registry tracks feed registrations across connection epochs. Entries
// survive reconnects and replay once per epoch; they disappear only on
// explicit unsubscribe or client shutdown.
type registry struct {
	logger zerolog.Logger
	nextID atomic.Int64

	mu     sync.Mutex
	subs   map[SubscriptionID]*subscription
	byKey  map[subKey]SubscriptionID
	routes map[subKey]SubscriptionID
}

func newRegistry(logger zerolog.Logger) *registry {
	return &registry{
		logger: logger,
		subs:   make(map[SubscriptionID]*subscription),
		byKey:  make(map[subKey]SubscriptionID),
		routes: make(map[subKey]SubscriptionID),
	}
}

// add registers a subscription. Re-registering an identical
// (endpoint, instrument) pair replaces the prior handler in place, keeping
// the existing id and epoch state so no duplicate wire request is sent.
func (r *registry) add(key subKey, request any, events []string, unsubEndpoint string, unsubRequest any, handler func(*core.Frame)) *subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[key]; ok {
		existing := r.subs[id]
		existing.handler = handler
		existing.request = request
		r.logger.Debug().
			Str("endpoint", key.endpoint).
			Int64("instrument", key.instrument).
			Msg("subscription handler replaced")
		return existing
	}

	sub := &subscription{
		id:            SubscriptionID(r.nextID.Add(1)),
		key:           key,
		request:       request,
		events:        events,
		unsubEndpoint: unsubEndpoint,
		unsubRequest:  unsubRequest,
		handler:       handler,
	}
	r.subs[sub.id] = sub
	r.byKey[key] = sub.id
	for _, event := range events {
		r.routes[subKey{endpoint: event, instrument: key.instrument}] = sub.id
	}

	r.logger.Debug().
		Str("endpoint", key.endpoint).
		Int64("instrument", key.instrument).
		Int64("id", int64(sub.id)).
		Msg("subscription registered")

	return sub
}

// remove deletes a subscription and returns it for wire-level removal.
func (r *registry) remove(id SubscriptionID) (*subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return nil, core.ErrSubscriptionNotFound
	}

	delete(r.subs, id)
	delete(r.byKey, sub.key)
	for _, event := range sub.events {
		delete(r.routes, subKey{endpoint: event, instrument: sub.key.instrument})
	}
	return sub, nil
}

// markActive flips a subscription to wire-subscribed for the current epoch.
// It returns false when the subscription is already active or gone, so the
// caller sends at most one wire subscribe per epoch.
func (r *registry) markActive(id SubscriptionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok || sub.active {
		return false
	}
	sub.active = true
	return true
}

// markInactive undoes markActive after a failed wire subscribe.
func (r *registry) markInactive(id SubscriptionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subs[id]; ok {
		sub.active = false
	}
}

// resetEpoch clears the active flags after a disconnect so the next flush
// replays every subscription exactly once.
func (r *registry) resetEpoch() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subs {
		sub.active = false
	}
}

// pendingWire lists subscriptions that still need their wire subscribe in
// the current epoch.
func (r *registry) pendingWire() []*subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if !sub.active {
			pending = append(pending, sub)
		}
	}
	return pending
}

// route delivers an inbound push frame to the registered handler. Unmatched
// events are dropped with an anomaly report; the gateway may legitimately
// push for a feed that raced with an unsubscribe.
func (r *registry) route(frame *core.Frame) {
	instrument := eventInstrument(frame.Endpoint, frame.Payload)

	r.mu.Lock()
	id, ok := r.routes[subKey{endpoint: frame.Endpoint, instrument: instrument}]
	if !ok && instrument != 0 {
		id, ok = r.routes[subKey{endpoint: frame.Endpoint}]
	}
	var handler func(*core.Frame)
	if ok {
		if sub, exists := r.subs[id]; exists {
			handler = sub.handler
		}
	}
	r.mu.Unlock()

	if handler == nil {
		r.logger.Warn().
			Str("endpoint", frame.Endpoint).
			Int64("instrument", instrument).
			Str("code", string(core.ErrCodeUnmatched)).
			Msg("dropping event with no subscription")
		return
	}

	handler(frame)
}

// size returns the number of registered subscriptions.
func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// eventInstrument extracts the routing instrument from a push payload.
// Object payloads carry InstrumentId or AccountId; row payloads carry the
// instrument inside the first row.
func eventInstrument(endpoint string, payload []byte) int64 {
	switch endpoint {
	case core.EventLevel1Update:
		var p struct {
			InstrumentID int64 `json:"InstrumentId"`
		}
		if err := sonic.Unmarshal(payload, &p); err == nil {
			return p.InstrumentID
		}
	case core.EventLevel2Update:
		var rows []core.Level2Level
		if err := sonic.Unmarshal(payload, &rows); err == nil && len(rows) > 0 {
			return rows[0].ProductPairCode
		}
	case core.EventTickerUpdate:
		var rows []core.TickerUpdate
		if err := sonic.Unmarshal(payload, &rows); err == nil && len(rows) > 0 {
			return rows[0].InstrumentID
		}
	case core.EventTradeUpdate:
		var rows []core.TradeUpdate
		if err := sonic.Unmarshal(payload, &rows); err == nil && len(rows) > 0 {
			return rows[0].InstrumentID
		}
	default:
		var p struct {
			AccountID int64 `json:"AccountId"`
		}
		if err := sonic.Unmarshal(payload, &p); err == nil {
			return p.AccountID
		}
	}
	return 0
}
