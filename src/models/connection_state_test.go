package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionState_Transitions(t *testing.T) {
	all := []MConnectionState{ConnectionIdle, ConnectionConnecting, ConnectionOpen, ConnectionClosed, ConnectionReconnecting}
	allowed := map[[2]MConnectionState]bool{
		{ConnectionIdle, ConnectionConnecting}:         true,
		{ConnectionConnecting, ConnectionOpen}:         true,
		{ConnectionConnecting, ConnectionClosed}:       true,
		{ConnectionOpen, ConnectionClosed}:             true,
		{ConnectionClosed, ConnectionReconnecting}:     true,
		{ConnectionReconnecting, ConnectionConnecting}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]MConnectionState{from, to}]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestConnectionState_IdleIsNeverReentered(t *testing.T) {
	var zero MConnectionState
	assert.Equal(t, ConnectionIdle, zero)
	for c := ConnectionIdle; c <= ConnectionReconnecting; c++ {
		assert.False(t, c.CanTransitionTo(ConnectionIdle), "%s -> IDLE", c)
	}
}

func TestConnectionState_JSON(t *testing.T) {
	out, err := json.Marshal(map[string]MConnectionState{"state": ConnectionReconnecting})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"RECONNECTING"}`, string(out))
	assert.Equal(t, "UNKNOWN", MConnectionState(42).String())

	var back map[string]MConnectionState
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, ConnectionReconnecting, back["state"])
	assert.Error(t, json.Unmarshal([]byte(`{"state":"HALF_OPEN"}`), &back))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPortfolioUpdate, KindOf("portfolio_update"))
	assert.Equal(t, KindTradeExecuted, KindOf("trade_executed"))
	assert.Equal(t, KindQuoteUpdate, KindOf("quote_update"))
	assert.Equal(t, KindInitialData, KindOf("initial_data"))
	assert.Equal(t, KindPong, KindOf("pong"))
	assert.Equal(t, KindUnknown, KindOf("PORTFOLIO_UPDATE"))
	assert.Equal(t, KindUnknown, KindOf(""))
}
