package core

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"bare_number", `61234.5`, "61234.5", false},
		{"quoted_number", `"0.00000001"`, "1E-8", false},
		{"integer", `42`, "42", false},
		{"negative", `-1.25`, "-1.25", false},
		{"null", `null`, "0", false},
		{"empty_string", `""`, "0", false},
		{"garbage", `"abc"`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decimal
			err := sonic.Unmarshal([]byte(tt.data), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDecimal_MarshalJSON(t *testing.T) {
	var d Decimal
	require.NoError(t, sonic.Unmarshal([]byte(`"61234.50"`), &d))

	out, err := sonic.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "61234.50", string(out))
}

func TestLevel2Level_UnmarshalRow(t *testing.T) {
	raw := `[9789,1,1618888200000,0,61100.5,3,61099.25,1,0.42,1]`

	var level Level2Level
	require.NoError(t, sonic.Unmarshal([]byte(raw), &level))

	assert.Equal(t, int64(9789), level.MDUpdateID)
	assert.Equal(t, ActionNew, level.ActionType)
	assert.Equal(t, "61099.25", level.Price.String())
	assert.Equal(t, int64(1), level.ProductPairCode)
	assert.Equal(t, "0.42", level.Quantity.String())
	assert.Equal(t, SideSell, level.Side)
}

func TestLevel2Level_UnmarshalRow_TooShort(t *testing.T) {
	var level Level2Level
	err := sonic.Unmarshal([]byte(`[9789,1,1618888200000]`), &level)
	assert.Error(t, err)
}

func TestTickerUpdate_UnmarshalRow(t *testing.T) {
	raw := `[[1618888260000,61500,60900,61000,61450.5,12.5,61440,61460,1,1618888200000]]`

	var rows []TickerUpdate
	require.NoError(t, sonic.Unmarshal([]byte(raw), &rows))
	require.Len(t, rows, 1)

	tick := rows[0]
	assert.Equal(t, int64(1618888260000), tick.EndDateTime)
	assert.Equal(t, "61500", tick.High.String())
	assert.Equal(t, "61450.5", tick.Close.String())
	assert.Equal(t, int64(1), tick.InstrumentID)
	assert.Equal(t, int64(1618888200000), tick.BeginDateTime)
}

func TestTradeUpdate_UnmarshalRow(t *testing.T) {
	raw := `[194583,1,0.005,61230.25,880201,880202,1618888260123,1,0,false]`

	var trade TradeUpdate
	require.NoError(t, sonic.Unmarshal([]byte(raw), &trade))

	assert.Equal(t, int64(194583), trade.TradeID)
	assert.Equal(t, int64(1), trade.InstrumentID)
	assert.Equal(t, "0.005", trade.Quantity.String())
	assert.Equal(t, "61230.25", trade.Price.String())
	assert.Equal(t, SideBuy, trade.TakerSide)
	assert.False(t, trade.BlockTrade)
}

func TestAccountEvent_Decode(t *testing.T) {
	event := AccountEvent{
		Name:    EventAccountPosition,
		Payload: []byte(`{"OMSId":1,"AccountId":7,"ProductSymbol":"BTC","Amount":"1.5","Hold":"0.25"}`),
	}

	var position Position
	require.NoError(t, event.Decode(&position))
	assert.Equal(t, int64(7), position.AccountID)
	assert.Equal(t, "BTC", position.ProductSymbol)
	assert.Equal(t, "1.5", position.Amount.String())

	event.Payload = []byte(`nope`)
	err := event.Decode(&position)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestMarketSide_String(t *testing.T) {
	assert.Equal(t, "BUY", SideBuy.String())
	assert.Equal(t, "SELL", SideSell.String())
	assert.Equal(t, "NEW", ActionNew.String())
	assert.Equal(t, "UPDATE", ActionUpdate.String())
	assert.Equal(t, "DELETE", ActionDelete.String())
}
