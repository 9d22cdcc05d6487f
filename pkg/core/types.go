package core

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// MarketSide represents the side of the book an entry belongs to.
type MarketSide int

const (
	// SideBuy is the bid side.
	SideBuy MarketSide = iota
	// SideSell is the offer side.
	SideSell
)

// String returns the string representation of the side.
func (s MarketSide) String() string {
	return [...]string{"BUY", "SELL"}[s]
}

// BookAction describes how a level-2 row mutates the book.
type BookAction int

const (
	// ActionNew inserts a price level.
	ActionNew BookAction = iota
	// ActionUpdate replaces the quantity at a price level.
	ActionUpdate
	// ActionDelete removes a price level.
	ActionDelete
)

// String returns the string representation of the book action.
func (a BookAction) String() string {
	return [...]string{"NEW", "UPDATE", "DELETE"}[a]
}

// AuthenticateUserRequest is the first step of the login handshake.
type AuthenticateUserRequest struct {
	Username string `json:"UserName"`
	Password string `json:"Password"`
}

// Authenticate2FARequest submits the time-based second-factor code.
type Authenticate2FARequest struct {
	Code string `json:"Code"`
}

// AuthReply is the gateway response to either authentication step.
type AuthReply struct {
	Authenticated bool   `json:"Authenticated"`
	Requires2FA   bool   `json:"Requires2FA"`
	AuthType      string `json:"AuthType,omitempty"`
	SessionToken  string `json:"SessionToken,omitempty"`
	UserID        int64  `json:"UserId,omitempty"`
	TwoFAToken    string `json:"twoFaToken,omitempty"`
	ErrorMessage  string `json:"errormsg,omitempty"`
}

// GenericResult is the minimal acknowledgement payload used by several
// endpoints, including the error payload attached to MessageError frames.
type GenericResult struct {
	Result       bool   `json:"result"`
	ErrorMessage string `json:"errormsg,omitempty"`
	ErrorCode    int    `json:"errorcode,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// PingReply acknowledges a gateway-level ping request.
type PingReply struct {
	Msg string `json:"msg"`
}

// AccountPositionsRequest queries balances for one account.
type AccountPositionsRequest struct {
	OMSID     int64 `json:"OMSId"`
	AccountID int64 `json:"AccountId"`
}

// InstrumentRequest addresses a single instrument on one OMS.
type InstrumentRequest struct {
	OMSID        int64 `json:"OMSId"`
	InstrumentID int64 `json:"InstrumentId"`
}

// L2SnapshotRequest queries a bounded order-book snapshot.
type L2SnapshotRequest struct {
	OMSID        int64 `json:"OMSId"`
	InstrumentID int64 `json:"InstrumentId"`
	Depth        int   `json:"Depth"`
}

// SubscribeLevel1Request opens a top-of-book feed.
type SubscribeLevel1Request struct {
	OMSID        int64  `json:"OMSId"`
	InstrumentID int64  `json:"InstrumentId"`
	Symbol       string `json:"Symbol,omitempty"`
}

// SubscribeLevel2Request opens a depth feed.
type SubscribeLevel2Request struct {
	OMSID        int64 `json:"OMSId"`
	InstrumentID int64 `json:"InstrumentId"`
	Depth        int   `json:"Depth"`
}

// SubscribeTickerRequest opens an OHLCV feed.
type SubscribeTickerRequest struct {
	OMSID            int64 `json:"OMSId"`
	InstrumentID     int64 `json:"InstrumentId"`
	Interval         int   `json:"Interval"`
	IncludeLastCount int   `json:"IncludeLastCount"`
}

// SubscribeTradesRequest opens a public trade feed.
type SubscribeTradesRequest struct {
	OMSID            int64 `json:"OMSId"`
	InstrumentID     int64 `json:"InstrumentId"`
	IncludeLastCount int   `json:"IncludeLastCount"`
}

// SubscribeAccountEventsRequest opens the account push feed.
type SubscribeAccountEventsRequest struct {
	OMSID     int64 `json:"OMSId"`
	AccountID int64 `json:"AccountId"`
}

// UnsubscribeRequest closes an instrument-scoped feed.
type UnsubscribeRequest struct {
	OMSID        int64 `json:"OMSId"`
	InstrumentID int64 `json:"InstrumentId"`
}

// Level1Update is the top-of-book payload, pushed on the level-1 feed and
// returned by GetLevel1.
type Level1Update struct {
	OMSID               int64   `json:"OMSId"`
	InstrumentID        int64   `json:"InstrumentId"`
	BestBid             Decimal `json:"BestBid"`
	BestOffer           Decimal `json:"BestOffer"`
	BidQty              Decimal `json:"BidQty"`
	AskQty              Decimal `json:"AskQty"`
	LastTradedPx        Decimal `json:"LastTradedPx"`
	LastTradedQty       Decimal `json:"LastTradedQty"`
	LastTradeTime       int64   `json:"LastTradeTime"`
	SessionOpen         Decimal `json:"SessionOpen"`
	SessionHigh         Decimal `json:"SessionHigh"`
	SessionLow          Decimal `json:"SessionLow"`
	SessionClose        Decimal `json:"SessionClose"`
	CurrentDayVolume    Decimal `json:"CurrentDayVolume"`
	CurrentDayNumTrades int64   `json:"CurrentDayNumTrades"`
	Rolling24HrVolume   Decimal `json:"Rolling24HrVolume"`
	Rolling24NumTrades  int64   `json:"Rolling24NumTrades"`
	TimeStamp           string  `json:"TimeStamp"`
}

// Position is one product balance on an account.
type Position struct {
	OMSID             int64   `json:"OMSId"`
	AccountID         int64   `json:"AccountId"`
	ProductSymbol     string  `json:"ProductSymbol"`
	ProductID         int64   `json:"ProductId"`
	Amount            Decimal `json:"Amount"`
	Hold              Decimal `json:"Hold"`
	PendingDeposits   Decimal `json:"PendingDeposits"`
	PendingWithdraws  Decimal `json:"PendingWithdraws"`
	TotalDayDeposits  Decimal `json:"TotalDayDeposits"`
	TotalDayWithdraws Decimal `json:"TotalDayWithdraws"`
}

// Instrument describes one tradable pair.
type Instrument struct {
	InstrumentID   int64  `json:"InstrumentId"`
	Symbol         string `json:"Symbol"`
	Product1Symbol string `json:"Product1Symbol"`
	Product2Symbol string `json:"Product2Symbol"`
	SessionStatus  string `json:"SessionStatus"`
}

// Level2Level is one depth row. The gateway encodes rows as positional
// arrays; UnmarshalJSON maps them onto named fields.
type Level2Level struct {
	MDUpdateID       int64
	NumberOfAccounts int64
	ActionDateTime   int64
	ActionType       BookAction
	LastTradePrice   Decimal
	NumberOfOrders   int64
	Price            Decimal
	ProductPairCode  int64
	Quantity         Decimal
	Side             MarketSide
}

// UnmarshalJSON implements json.Unmarshaler for the positional row format.
func (l *Level2Level) UnmarshalJSON(data []byte) error {
	row, err := splitRow(data, 10)
	if err != nil {
		return fmt.Errorf("level2 row: %w", err)
	}

	fields := []any{
		&l.MDUpdateID, &l.NumberOfAccounts, &l.ActionDateTime,
		(*int)(&l.ActionType), &l.LastTradePrice, &l.NumberOfOrders,
		&l.Price, &l.ProductPairCode, &l.Quantity, (*int)(&l.Side),
	}
	return decodeRow(row, fields)
}

// TickerUpdate is one OHLCV row on the ticker feed.
type TickerUpdate struct {
	EndDateTime    int64
	High           Decimal
	Low            Decimal
	Open           Decimal
	Close          Decimal
	Volume         Decimal
	InsideBidPrice Decimal
	InsideAskPrice Decimal
	InstrumentID   int64
	BeginDateTime  int64
}

// UnmarshalJSON implements json.Unmarshaler for the positional row format.
func (t *TickerUpdate) UnmarshalJSON(data []byte) error {
	row, err := splitRow(data, 9)
	if err != nil {
		return fmt.Errorf("ticker row: %w", err)
	}

	fields := []any{
		&t.EndDateTime, &t.High, &t.Low, &t.Open, &t.Close,
		&t.Volume, &t.InsideBidPrice, &t.InsideAskPrice, &t.InstrumentID,
	}
	if err := decodeRow(row, fields); err != nil {
		return err
	}
	if len(row) > 9 {
		if err := sonic.Unmarshal(row[9], &t.BeginDateTime); err != nil {
			return fmt.Errorf("ticker row field 9: %w", err)
		}
	}
	return nil
}

// TradeUpdate is one execution row on the trade feed.
type TradeUpdate struct {
	TradeID       int64
	InstrumentID  int64
	Quantity      Decimal
	Price         Decimal
	Order1        int64
	Order2        int64
	TradeTime     int64
	Direction     int
	TakerSide     MarketSide
	BlockTrade    bool
	ClientOrderID int64
}

// UnmarshalJSON implements json.Unmarshaler for the positional row format.
func (t *TradeUpdate) UnmarshalJSON(data []byte) error {
	row, err := splitRow(data, 10)
	if err != nil {
		return fmt.Errorf("trade row: %w", err)
	}

	fields := []any{
		&t.TradeID, &t.InstrumentID, &t.Quantity, &t.Price,
		&t.Order1, &t.Order2, &t.TradeTime, &t.Direction,
		(*int)(&t.TakerSide), &t.BlockTrade,
	}
	if err := decodeRow(row, fields); err != nil {
		return err
	}
	if len(row) > 10 {
		if err := sonic.Unmarshal(row[10], &t.ClientOrderID); err != nil {
			return fmt.Errorf("trade row field 10: %w", err)
		}
	}
	return nil
}

// AccountEvent wraps one push from the account feed. Payload is the inner
// JSON document; Decode unmarshals it once the caller knows the shape.
type AccountEvent struct {
	Name    string
	Payload []byte
}

// Decode unmarshals the event payload into v.
func (e *AccountEvent) Decode(v any) error {
	if err := sonic.Unmarshal(e.Payload, v); err != nil {
		return NewClientErrorWithEndpoint(ErrorTypeDecode, ErrCodeDecode, e.Name, fmt.Sprintf("invalid payload: %v", err))
	}
	return nil
}

// MarketSummary is one pair entry from the public REST ticker snapshot.
type MarketSummary struct {
	ID            int64   `json:"id"`
	Last          Decimal `json:"last"`
	LowestAsk     Decimal `json:"lowestAsk"`
	HighestBid    Decimal `json:"highestBid"`
	PercentChange Decimal `json:"percentChange"`
	BaseVolume    Decimal `json:"baseVolume"`
	QuoteVolume   Decimal `json:"quoteVolume"`
	High24Hr      Decimal `json:"high24hr"`
	Low24Hr       Decimal `json:"low24hr"`
	IsFrozen      string  `json:"isFrozen"`
}

func splitRow(data []byte, minLen int) ([]json.RawMessage, error) {
	var row []json.RawMessage
	if err := sonic.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	if len(row) < minLen {
		return nil, fmt.Errorf("expected at least %d fields, got %d", minLen, len(row))
	}
	return row, nil
}

func decodeRow(row []json.RawMessage, fields []any) error {
	for i, dest := range fields {
		if err := sonic.Unmarshal(row[i], dest); err != nil {
			return fmt.Errorf("row field %d: %w", i, err)
		}
	}
	return nil
}
