package utils

import (
	"time"
)

// MarketClock reports whether the configured exchange is trading right now.
// The relay shows it next to the connection state, so a quiet stream outside
// market hours does not look like an outage.
type MarketClock struct {
	Calendar *TradingCalendar
	Now      func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketClock(cal *TradingCalendar) *MarketClock {
	return &MarketClock{Calendar: cal, Now: time.Now}
}

// -----------------------------------------------------------------------------

func (mc *MarketClock) IsOpen() bool {
	return mc.Calendar.IsOpenOnMinute(mc.Now().UTC())
}

func (mc *MarketClock) IsTradingDay() bool {
	return mc.Calendar.IsTradingDay(mc.Now().UTC())
}

func (mc *MarketClock) MIC() string {
	return mc.Calendar.MIC
}
