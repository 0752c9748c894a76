package angel

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// NSE session hours in IST.
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

var (
	sessionStart = fmt.Sprintf("%02d:%02d", OpenHour, OpenMinute)
	sessionEnd   = fmt.Sprintf("%02d:%02d", CloseHour, CloseMinute)
)

// isWeekday returns true if t is Mon–Fri in IST.
func isWeekday(t time.Time) bool {
	wd := t.In(IST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// lastCompleteDay is the latest calendar date whose daily candle is final
// at now. Before the close on a weekday today's candle is still forming.
func lastCompleteDay(now time.Time) time.Time {
	ist := now.In(IST)
	day := time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, time.UTC)
	hm := ist.Hour()*60 + ist.Minute()
	if isWeekday(ist) && hm < CloseHour*60+CloseMinute {
		return day.AddDate(0, 0, -1)
	}
	return day
}
