package utils

import (
	"strings"
	"time"

	"dashboard-sync/src/logger"

	"github.com/scmhub/calendar"
)

// DefaultMIC is the National Stock Exchange of India, where the bot trades.
const DefaultMIC = "xnse"

// session is a plain weekday trading window used when no calendar loads.
type session struct {
	zone        string
	openHour    int
	openMinute  int
	closeHour   int
	closeMinute int
}

var fallbackSessions = map[string]session{
	"xnse": {"Asia/Kolkata", 9, 15, 15, 30},
	"xbom": {"Asia/Kolkata", 9, 15, 15, 30},
	"xnys": {"America/New_York", 9, 30, 16, 0},
	"xnas": {"America/New_York", 9, 30, 16, 0},
	"xlon": {"Europe/London", 8, 0, 16, 30},
}

// -----------------------------------------------------------------------------

// TradingCalendar answers trading-day and open-market questions for one
// exchange using scmhub/calendar.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
	session  session
}

// -----------------------------------------------------------------------------

// NewTradingCalendar loads the calendar for mic (ISO 10383, case-insensitive).
// Unknown MICs get a Mon-Fri fallback with the exchange's usual hours.
func NewTradingCalendar(mic string, log *logger.Logger) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = DefaultMIC
	}

	if cal := calendar.GetCalendar(mic); cal != nil {
		return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
	}

	sess, ok := fallbackSessions[mic]
	if !ok {
		sess = fallbackSessions[DefaultMIC]
	}
	loc, err := time.LoadLocation(sess.zone)
	if err != nil {
		loc = time.UTC
	}
	if log != nil {
		log.Warning("No calendar for MIC '%s'. Using Mon-Fri %02d:%02d-%02d:%02d %s.",
			mic, sess.openHour, sess.openMinute, sess.closeHour, sess.closeMinute, loc)
	}
	return &TradingCalendar{MIC: mic, Fallback: true, Timezone: loc, session: sess}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		minutes := t.Hour()*60 + t.Minute()
		open := tc.session.openHour*60 + tc.session.openMinute
		closing := tc.session.closeHour*60 + tc.session.closeMinute
		return minutes >= open && minutes < closing
	}

	return tc.Calendar.IsOpen(t)
}
