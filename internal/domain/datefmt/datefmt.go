// Package datefmt translates dates between the formats produced by HTML
// date/datetime-local inputs and the formats the events API exchanges.
// All functions are total: malformed input is passed through, never rejected.
package datefmt

import (
	"strings"
	"time"
	"unicode/utf8"
)

// EditableDateTimeLength is the length of a datetime-local value (YYYY-MM-DDTHH:mm).
const EditableDateTimeLength = len("2006-01-02T15:04")

// ToWireDate converts YYYY-MM-DD into DD/MM/YYYY.
// Anything that does not split into exactly three parts is returned unchanged.
func ToWireDate(ui string) string {
	parts := strings.Split(ui, "-")
	if len(parts) != 3 {
		return ui
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// FromWireDate converts DD/MM/YYYY back into YYYY-MM-DD.
// Anything that does not split into exactly three parts is returned unchanged.
func FromWireDate(wire string) string {
	parts := strings.Split(wire, "/")
	if len(parts) != 3 {
		return wire
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}

// ToEditableDateTime keeps the first 16 characters of a wire ISO timestamp.
// Characters are runes; an invalid byte counts as one character.
// No timezone conversion is performed.
func ToEditableDateTime(wire string) string {
	cut := 0
	for n := 0; n < EditableDateTimeLength && cut < len(wire); n++ {
		_, size := utf8.DecodeRuneInString(wire[cut:])
		cut += size
	}
	return wire[:cut]
}

// Schedule is the human readable span of an event.
type Schedule struct {
	StartDay  string
	StartTime string
	EndDay    string
	EndTime   string
	Full      string
	MultiDay  bool
}

const (
	dayLayout  = "02/01/2006"
	timeLayout = "15:04"
)

// wireLayouts are tried in order when parsing API timestamps.
var wireLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseWire parses an API timestamp. Values without an offset are read in loc.
func ParseWire(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range wireLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// FormatSchedule renders the start/end pair of an event for listing cards.
// Unparseable values are shown verbatim.
func FormatSchedule(start, end string, loc *time.Location) Schedule {
	st, okStart := ParseWire(start, loc)
	et, okEnd := ParseWire(end, loc)
	if !okStart {
		return Schedule{StartDay: start, EndDay: end, Full: strings.TrimSpace(start + " " + end)}
	}
	if !okEnd {
		et = st
	}

	sch := Schedule{
		StartDay:  st.Format(dayLayout),
		StartTime: st.Format(timeLayout),
		EndDay:    et.Format(dayLayout),
		EndTime:   et.Format(timeLayout),
	}
	sch.MultiDay = sch.StartDay != sch.EndDay

	switch {
	case sch.MultiDay:
		sch.Full = sch.StartDay + " " + sch.StartTime + " - " + sch.EndDay + " " + sch.EndTime
	case sch.StartTime != sch.EndTime:
		sch.Full = sch.StartDay + " das " + sch.StartTime + " às " + sch.EndTime
	default:
		sch.Full = sch.StartDay + " às " + sch.StartTime
	}
	return sch
}
