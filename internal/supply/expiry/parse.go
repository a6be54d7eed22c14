package expiry

import (
	"strings"
	"time"
)

// zonedLayouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// localLayouts are interpreted in the caller's location. "2/1/2006" also
// accepts zero-padded days and months.
var localLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2/1/2006",
}

// ParseDate reads an expiration date as delivered by the lot feeds: ISO
// dates, RFC 3339 timestamps or day-first "dd/mm/yyyy". Dates without an
// offset are placed in loc (UTC when nil). ok is false for empty or
// unparseable input, including impossible dates such as 31/02/2024.
func ParseDate(raw string, loc *time.Location) (t time.Time, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDatePtr is ParseDate for optional feed columns.
func ParseDatePtr(raw *string, loc *time.Location) *time.Time {
	if raw == nil {
		return nil
	}
	t, ok := ParseDate(*raw, loc)
	if !ok {
		return nil
	}
	return &t
}
