package access

import "time"

// WeekStart returns the Monday of the week containing t as YYYY-MM-DD,
// computed from t's local calendar fields. Going through time.Date in t's
// location rather than a UTC ISO conversion keeps the date from shifting
// by a day around midnight in timezones east of UTC.
func WeekStart(t time.Time) string {
	delta := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		delta = 6
	}
	y, m, d := t.Date()
	monday := time.Date(y, m, d-delta, 0, 0, 0, 0, t.Location())
	return monday.Format("2006-01-02")
}
