package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopswift/storefront/services/common/users"
)

func TestMoney_JSONHasTwoFractionDigits(t *testing.T) {
	b, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{Price: NewMoney(decimal.NewFromInt(5))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":5.00}`, string(b))
	assert.Contains(t, string(b), "5.00")
}

func TestMoney_RoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "5.00", NewMoney(decimal.RequireFromString("4.995")).String())
	assert.Equal(t, "4.99", NewMoney(decimal.RequireFromString("4.9949")).String())
}

func TestMoney_UnmarshalAcceptsNumberAndString(t *testing.T) {
	var m Money
	require.NoError(t, json.Unmarshal([]byte(`19.999`), &m))
	assert.Equal(t, "20.00", m.String())

	require.NoError(t, json.Unmarshal([]byte(`"7.5"`), &m))
	assert.Equal(t, "7.50", m.String())
}

func TestParseMoney_Invalid(t *testing.T) {
	_, err := ParseMoney("abc")
	assert.Error(t, err)
}

func TestOrderView_UserIsResolvedSummary(t *testing.T) {
	view := OrderView{
		Order: Order{ID: "o1", User: "u1", TotalPrice: MustMoney("10")},
		User:  users.Summary{ID: "u1", Username: "ann", Email: "ann@example.com"},
	}
	b, err := json.Marshal(view)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	owner, ok := out["user"].(map[string]interface{})
	require.True(t, ok, "user should be an object")
	assert.Equal(t, "ann", owner["username"])
	assert.Equal(t, "o1", out["_id"])
}

func TestNewOrderEvent_CountsUnits(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	o := &Order{ID: "o1", User: "u1", OrderItems: []OrderItem{{Qty: 2}, {Qty: 3}}, TotalPrice: MustMoney("42")}

	evt := NewOrderEvent(EventOrderPaid, o, at)
	assert.Equal(t, 5, evt.ItemCount)
	assert.Equal(t, EventOrderPaid, evt.Type)
	assert.Equal(t, at, evt.OccurredAt)
}
