// Package biztime centralizes wall-clock access. All storage and transport use UTC.
package biztime

import "time"

// nowFunc is swapped in tests that need a fixed clock.
var nowFunc = time.Now

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return nowFunc().UTC()
}

// AddDays returns t advanced by n whole days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// FromUnix converts provider epoch seconds to UTC. Zero maps to the zero time.
func FromUnix(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// SetNowFuncForTest overrides the clock and returns a restore function.
func SetNowFuncForTest(f func() time.Time) func() {
	prev := nowFunc
	nowFunc = f
	return func() { nowFunc = prev }
}
