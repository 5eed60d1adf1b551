package early

import (
	"strings"
	"time"
)

// apiTimeLayout is the millisecond-precision, zone-less ISO 8601 form the API
// expects. Go truncates fractional seconds when formatting.
const apiTimeLayout = "2006-01-02T15:04:05.000"

// now is swapped in tests.
var now = time.Now

// ToAPITimestamp converts YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS into the API
// timestamp form. Input that already has fractional seconds is returned as
// is. Nothing is validated and no zone conversion happens.
func ToAPITimestamp(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == len("2006-01-02") {
		return s + "T00:00:00.000"
	}
	if !strings.Contains(s, ".") {
		return s + ".000"
	}
	return s
}

// NowAPITimestamp returns the current UTC time in API timestamp form.
func NowAPITimestamp() string {
	return FormatAPITimestamp(now())
}

// FormatAPITimestamp formats t in UTC in API timestamp form.
func FormatAPITimestamp(t time.Time) string {
	return t.UTC().Format(apiTimeLayout)
}

// EndOfDayAPITimestamp returns the last millisecond of a YYYY-MM-DD date.
func EndOfDayAPITimestamp(date string) string {
	return strings.TrimSpace(date) + "T23:59:59.999"
}
