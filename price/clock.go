package price

import "time"

// ToMilliseconds converts t to epoch milliseconds at whole second precision.
func ToMilliseconds(t time.Time) int64 {
	return t.Unix() * 1000
}

func FromMilliseconds(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Now returns the current UTC time truncated to the minute.
func Now() time.Time {
	return now().UTC().Truncate(time.Minute)
}

var now = time.Now

type Offset struct {
	Hours  int
	Days   int
	Months int
	Years  int
}

// Since returns the point in the past that lies offset before Now.
// Months and years are calendar offsets.
func Since(offset Offset) time.Time {
	return offset.Before(Now())
}

// Before steps back from t, using calendar arithmetic for months and years.
// A day past the end of the target month clamps to its last day, so March 31
// minus one month is February 28.
func (offset Offset) Before(t time.Time) time.Time {
	if offset.Years != 0 || offset.Months != 0 {
		year, month, day := t.Date()
		target := time.Date(year-offset.Years, month-time.Month(offset.Months), 1, 0, 0, 0, 0, t.Location())

		if last := daysIn(target.Year(), target.Month()); day > last {
			day = last
		}

		hour, min, sec := t.Clock()
		t = time.Date(target.Year(), target.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
	}

	return t.Add(-time.Duration(offset.Hours)*time.Hour - time.Duration(offset.Days)*24*time.Hour)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
