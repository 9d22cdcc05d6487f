package core

// Gateway endpoint names. Each is a logical operation or feed on the wire
// protocol; request and event names are listed separately because the
// gateway pushes events under their own names.
const (
	// Authentication handshake.
	EndpointAuthenticateUser = "AuthenticateUser"
	EndpointAuthenticate2FA  = "Authenticate2FA"
	EndpointLogOut           = "LogOut"

	// One-shot queries.
	EndpointPing                = "Ping"
	EndpointGetAccountPositions = "GetAccountPositions"
	EndpointGetLevel1           = "GetLevel1"
	EndpointGetL2Snapshot       = "GetL2Snapshot"
	EndpointGetInstruments      = "GetInstruments"

	// Market-data and account subscriptions.
	EndpointSubscribeLevel1        = "SubscribeLevel1"
	EndpointSubscribeLevel2        = "SubscribeLevel2"
	EndpointSubscribeTicker        = "SubscribeTicker"
	EndpointSubscribeTrades        = "SubscribeTrades"
	EndpointSubscribeAccountEvents = "SubscribeAccountEvents"

	EndpointUnsubscribeLevel1 = "UnsubscribeLevel1"
	EndpointUnsubscribeLevel2 = "UnsubscribeLevel2"
	EndpointUnsubscribeTicker = "UnsubscribeTicker"
	EndpointUnsubscribeTrades = "UnsubscribeTrades"

	// Event names pushed by the gateway on subscribed feeds.
	EventLevel1Update    = "Level1UpdateEvent"
	EventLevel2Update    = "Level2UpdateEvent"
	EventTickerUpdate    = "TickerDataUpdateEvent"
	EventTradeUpdate     = "TradeDataUpdateEvent"
	EventAccountPosition = "AccountPositionEvent"
	EventOrderState      = "OrderStateEvent"
	EventOrderTrade      = "OrderTradeEvent"
	EventNewOrderReject  = "NewOrderRejectEvent"
	EventCancelReject    = "CancelOrderRejectEvent"
)

// AccountEventNames lists every push the gateway may emit after a
// SubscribeAccountEvents request.
var AccountEventNames = []string{
	EventAccountPosition,
	EventOrderState,
	EventOrderTrade,
	EventNewOrderReject,
	EventCancelReject,
}
