package domain

import "time"

// AsUTC stamps t as UTC while keeping its clock face. A value already in UTC
// is returned unchanged. This is a reinterpretation, not a conversion:
// 2024-03-01 09:00 in UTC+2 becomes 2024-03-01 09:00 UTC.
func AsUTC(t time.Time) time.Time {
	if t.Location() == time.UTC {
		return t
	}
	return time.Date(
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		time.UTC,
	)
}

// AsUTCPtr applies AsUTC to an optional time.
func AsUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := AsUTC(*t)
	return &u
}

