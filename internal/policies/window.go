package policies

import (
	"fmt"
	"strings"
	"time"
)

// ChangeWindow is a recurring weekly time span during which a rule blocks
// changes. Day boundaries wrap across the weekend when day_start sorts after
// day_end (e.g. Friday through Monday). The start boundary is inclusive, the
// end boundary exclusive.
type ChangeWindow struct {
	DayStart  string `yaml:"day_start" json:"day_start"`
	DayEnd    string `yaml:"day_end" json:"day_end"`
	TimeStart string `yaml:"time_start" json:"time_start"`
	TimeEnd   string `yaml:"time_end" json:"time_end"`
}

var weekdays = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

func parseWeekday(name string) (int, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return d, nil
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(v string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", v)
	}
	return h*60 + m, nil
}

// Validate checks that the window's days and times parse.
func (w ChangeWindow) Validate() error {
	if _, err := parseWeekday(w.DayStart); err != nil {
		return err
	}
	if _, err := parseWeekday(w.DayEnd); err != nil {
		return err
	}
	if _, err := parseClock(w.TimeStart); err != nil {
		return err
	}
	if _, err := parseClock(w.TimeEnd); err != nil {
		return err
	}
	return nil
}

// Contains reports whether now falls inside the window. Weekdays are
// normalized to 0=Monday..6=Sunday.
func (w ChangeWindow) Contains(now time.Time) bool {
	dayStart, err := parseWeekday(w.DayStart)
	if err != nil {
		return false
	}
	dayEnd, err := parseWeekday(w.DayEnd)
	if err != nil {
		return false
	}
	timeStart, err := parseClock(w.TimeStart)
	if err != nil {
		return false
	}
	timeEnd, err := parseClock(w.TimeEnd)
	if err != nil {
		return false
	}

	weekday := (int(now.Weekday()) + 6) % 7 // time.Weekday has Sunday=0
	minute := now.Hour()*60 + now.Minute()

	switch {
	case dayStart > dayEnd:
		// Weekend-wrap window, e.g. Friday through Monday.
		if weekday > dayStart || weekday < dayEnd {
			return true
		}
		if weekday == dayStart && minute >= timeStart {
			return true
		}
		if weekday == dayEnd && minute < timeEnd {
			return true
		}
		return false
	case dayStart == dayEnd:
		return weekday == dayStart && minute >= timeStart && minute < timeEnd
	default:
		if weekday > dayStart && weekday < dayEnd {
			return true
		}
		if weekday == dayStart && minute >= timeStart {
			return true
		}
		if weekday == dayEnd && minute < timeEnd {
			return true
		}
		return false
	}
}
