package ndax

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"ndax/internal/rest"
	"ndax/pkg/core"
)

// request performs one request/reply round trip and decodes the reply into
// result. A nil result discards the payload after the reply arrives.
func (c *Client) request(ctx context.Context, endpoint string, payload, result any) error {
	conn, err := c.currentConn()
	if err != nil {
		return err
	}

	call, err := c.corr.submit(ctx, conn, endpoint, payload, c.config.RequestTimeout)
	if err != nil {
		return err
	}

	data, err := call.Wait(ctx)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return sonicUnmarshal(data, result, endpoint)
}

// Ping checks gateway liveness over the live session.
func (c *Client) Ping(ctx context.Context) error {
	var reply core.PingReply
	return c.request(ctx, core.EndpointPing, struct{}{}, &reply)
}

// GetAccountPositions returns the balances for the configured account.
func (c *Client) GetAccountPositions(ctx context.Context) ([]core.Position, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	var positions []core.Position
	err := c.request(ctx, core.EndpointGetAccountPositions, core.AccountPositionsRequest{
		OMSID:     c.config.OMSID,
		AccountID: c.creds.AccountID,
	}, &positions)
	return positions, err
}

// GetLevel1 returns the current top of book for an instrument.
func (c *Client) GetLevel1(ctx context.Context, instrumentID int64) (*core.Level1Update, error) {
	var level1 core.Level1Update
	err := c.request(ctx, core.EndpointGetLevel1, core.InstrumentRequest{
		OMSID:        c.config.OMSID,
		InstrumentID: instrumentID,
	}, &level1)
	if err != nil {
		return nil, err
	}
	return &level1, nil
}

// GetL2Snapshot returns a depth-bounded order book snapshot.
func (c *Client) GetL2Snapshot(ctx context.Context, instrumentID int64, depth int) ([]core.Level2Level, error) {
	var levels []core.Level2Level
	err := c.request(ctx, core.EndpointGetL2Snapshot, core.L2SnapshotRequest{
		OMSID:        c.config.OMSID,
		InstrumentID: instrumentID,
		Depth:        depth,
	}, &levels)
	return levels, err
}

// GetInstruments lists the tradable pairs on the OMS.
func (c *Client) GetInstruments(ctx context.Context) ([]core.Instrument, error) {
	var instruments []core.Instrument
	err := c.request(ctx, core.EndpointGetInstruments, struct {
		OMSID int64 `json:"OMSId"`
	}{OMSID: c.config.OMSID}, &instruments)
	return instruments, err
}

// MarketSummary fetches the public market ticker snapshot over HTTPS. It
// works without a live socket session.
func (c *Client) MarketSummary(ctx context.Context) (map[string]core.MarketSummary, error) {
	c.restOnce.Do(func() {
		client, err := rest.NewClient(rest.DefaultConfig(c.config.RESTBaseURL), c.logger)
		if err != nil {
			c.restErr = err
			return
		}
		c.mu.Lock()
		c.rest = client
		c.mu.Unlock()
	})
	if c.restErr != nil {
		return nil, c.restErr
	}

	c.mu.Lock()
	client := c.rest
	c.mu.Unlock()
	if client == nil {
		return nil, core.ErrClientClosed
	}
	return client.Ticker(ctx)
}

// SubscribeLevel1 registers a top-of-book feed for an instrument. The
// handler runs on the dispatch goroutine, so updates for one instrument
// arrive in gateway order; handlers must not block and must not call Stop.
func (c *Client) SubscribeLevel1(ctx context.Context, instrumentID int64, handler func(*core.Level1Update)) (SubscriptionID, error) {
	return c.subscribe(ctx, subscribeSpec{
		endpoint:      core.EndpointSubscribeLevel1,
		instrument:    instrumentID,
		request:       core.SubscribeLevel1Request{OMSID: c.config.OMSID, InstrumentID: instrumentID},
		events:        []string{core.EventLevel1Update},
		unsubEndpoint: core.EndpointUnsubscribeLevel1,
		unsubRequest:  core.UnsubscribeRequest{OMSID: c.config.OMSID, InstrumentID: instrumentID},
	}, func(frame *core.Frame) {
		var update core.Level1Update
		if err := frame.DecodePayload(&update); err != nil {
			c.dropEvent(frame, err)
			return
		}
		handler(&update)
	})
}

// SubscribeLevel2 registers a depth feed for an instrument. Each push
// carries one or more book rows.
func (c *Client) SubscribeLevel2(ctx context.Context, instrumentID int64, depth int, handler func([]core.Level2Level)) (SubscriptionID, error) {
	return c.subscribe(ctx, subscribeSpec{
		endpoint:      core.EndpointSubscribeLevel2,
		instrument:    instrumentID,
		request:       core.SubscribeLevel2Request{OMSID: c.config.OMSID, InstrumentID: instrumentID, Depth: depth},
		events:        []string{core.EventLevel2Update},
		unsubEndpoint: core.EndpointUnsubscribeLevel2,
		unsubRequest:  core.UnsubscribeRequest{OMSID: c.config.OMSID, InstrumentID: instrumentID},
	}, func(frame *core.Frame) {
		var rows []core.Level2Level
		if err := frame.DecodePayload(&rows); err != nil {
			c.dropEvent(frame, err)
			return
		}
		handler(rows)
	})
}

// SubscribeTicker registers an OHLCV candle feed for an instrument.
func (c *Client) SubscribeTicker(ctx context.Context, instrumentID int64, interval int, handler func([]core.TickerUpdate)) (SubscriptionID, error) {
	return c.subscribe(ctx, subscribeSpec{
		endpoint:      core.EndpointSubscribeTicker,
		instrument:    instrumentID,
		request:       core.SubscribeTickerRequest{OMSID: c.config.OMSID, InstrumentID: instrumentID, Interval: interval, IncludeLastCount: 100},
		events:        []string{core.EventTickerUpdate},
		unsubEndpoint: core.EndpointUnsubscribeTicker,
		unsubRequest:  core.UnsubscribeRequest{OMSID: c.config.OMSID, InstrumentID: instrumentID},
	}, func(frame *core.Frame) {
		var rows []core.TickerUpdate
		if err := frame.DecodePayload(&rows); err != nil {
			c.dropEvent(frame, err)
			return
		}
		handler(rows)
	})
}

// SubscribeTrades registers a public trade feed for an instrument.
func (c *Client) SubscribeTrades(ctx context.Context, instrumentID int64, handler func([]core.TradeUpdate)) (SubscriptionID, error) {
	return c.subscribe(ctx, subscribeSpec{
		endpoint:      core.EndpointSubscribeTrades,
		instrument:    instrumentID,
		request:       core.SubscribeTradesRequest{OMSID: c.config.OMSID, InstrumentID: instrumentID, IncludeLastCount: 100},
		events:        []string{core.EventTradeUpdate},
		unsubEndpoint: core.EndpointUnsubscribeTrades,
		unsubRequest:  core.UnsubscribeRequest{OMSID: c.config.OMSID, InstrumentID: instrumentID},
	}, func(frame *core.Frame) {
		var rows []core.TradeUpdate
		if err := frame.DecodePayload(&rows); err != nil {
			c.dropEvent(frame, err)
			return
		}
		handler(rows)
	})
}

// SubscribeAccountEvents registers the private account push feed: position
// changes, order state transitions, trades, and rejects. The gateway has no
// wire-level unsubscribe for this feed; Unsubscribe removes it locally.
func (c *Client) SubscribeAccountEvents(ctx context.Context, handler func(*core.AccountEvent)) (SubscriptionID, error) {
	if err := c.requireAuth(); err != nil {
		return 0, err
	}
	return c.subscribe(ctx, subscribeSpec{
		endpoint:   core.EndpointSubscribeAccountEvents,
		instrument: c.creds.AccountID,
		request:    core.SubscribeAccountEventsRequest{OMSID: c.config.OMSID, AccountID: c.creds.AccountID},
		events:     core.AccountEventNames,
	}, func(frame *core.Frame) {
		handler(&core.AccountEvent{Name: frame.Endpoint, Payload: frame.Payload})
	})
}

// Unsubscribe removes a registered subscription. When the feed has a
// wire-level removal and the session is live, the unsubscribe request is
// sent as well; the local registration is gone regardless.
func (c *Client) Unsubscribe(ctx context.Context, id SubscriptionID) error {
	sub, err := c.registry.remove(id)
	if err != nil {
		return err
	}

	if sub.unsubRequest == nil || !sub.active {
		return nil
	}
	conn, err := c.currentConn()
	if err != nil {
		return nil
	}

	call, err := c.corr.submitType(ctx, conn, core.MessageUnsubscribe, sub.unsubEndpoint, sub.unsubRequest, c.config.RequestTimeout)
	if err != nil {
		return err
	}
	if _, err := call.Wait(ctx); err != nil {
		return err
	}
	return nil
}

// subscribeSpec carries one feed registration from a typed wrapper into
// the registry.
type subscribeSpec struct {
	endpoint      string
	instrument    int64
	request       any
	events        []string
	unsubEndpoint string
	unsubRequest  any
}

// subscribe registers the feed and, when a session is live, places the
// wire subscribe. With no live session the registration is queued and
// flushed on the next authenticated connect.
func (c *Client) subscribe(ctx context.Context, spec subscribeSpec, handler func(*core.Frame)) (SubscriptionID, error) {
	if c.State() == StateClosed {
		return 0, core.ErrClientClosed
	}

	sub := c.registry.add(subKey{endpoint: spec.endpoint, instrument: spec.instrument},
		spec.request, spec.events, spec.unsubEndpoint, spec.unsubRequest, handler)

	if c.State() != StateAuthenticated {
		return sub.id, nil
	}
	if err := c.sendSubscribe(ctx, sub); err != nil {
		return sub.id, err
	}
	return sub.id, nil
}

// sendSubscribe places the wire subscribe for one registration, at most
// once per connection epoch. The acknowledgement is awaited off the caller
// path; a rejected subscribe re-arms the registration for the next epoch.
func (c *Client) sendSubscribe(ctx context.Context, sub *subscription) error {
	if !c.registry.markActive(sub.id) {
		return nil
	}

	conn, err := c.currentConn()
	if err != nil {
		c.registry.markInactive(sub.id)
		return err
	}

	call, err := c.corr.submitType(ctx, conn, core.MessageSubscribe, sub.key.endpoint, sub.request, c.config.RequestTimeout)
	if err != nil {
		c.registry.markInactive(sub.id)
		return err
	}

	id := sub.id
	c.wg.Go(func() {
		if _, err := call.Wait(context.Background()); err != nil {
			c.logger.Warn().
				Err(err).
				Str("endpoint", call.Endpoint).
				Msg("subscribe request failed")
			c.registry.markInactive(id)
		}
	})
	return nil
}

// flushSubscriptions replays every registration that has not yet been
// wire-subscribed in the current connection epoch.
func (c *Client) flushSubscriptions(ctx context.Context) {
	pending := c.registry.pendingWire()
	if len(pending) == 0 {
		return
	}

	c.logger.Info().Int("count", len(pending)).Msg("replaying subscriptions")
	for _, sub := range pending {
		if err := c.sendSubscribe(ctx, sub); err != nil {
			c.logger.Warn().
				Err(err).
				Str("endpoint", sub.key.endpoint).
				Msg("subscription replay failed")
		}
	}
}

func (c *Client) requireAuth() error {
	if c.State() == StateClosed {
		return core.ErrClientClosed
	}
	if c.auth.State() != AuthAuthenticated {
		return core.ErrNotAuthenticated
	}
	return nil
}

func (c *Client) dropEvent(frame *core.Frame, err error) {
	c.logger.Warn().
		Err(err).
		Str("endpoint", frame.Endpoint).
		Str("code", string(core.ErrCodeDecode)).
		Msg("dropping undecodable event")
}

func sonicUnmarshal(data []byte, v any, endpoint string) error {
	if err := sonic.Unmarshal(data, v); err != nil {
		return core.NewClientErrorWithEndpoint(core.ErrorTypeDecode, core.ErrCodeDecode, endpoint,
			fmt.Sprintf("invalid reply payload: %v", err))
	}
	return nil
}
