package policies

import (
	"testing"
	"time"
)

// mustTime builds a local time on a known weekday for window tests.
// 2025-06-02 is a Monday.
func mustTime(t *testing.T, day time.Weekday, hour, minute int) time.Time {
	t.Helper()
	base := time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
	offset := (int(day) - int(base.Weekday()) + 7) % 7
	return base.AddDate(0, 0, offset)
}

func TestChangeWindowWeekendWrap(t *testing.T) {
	w := ChangeWindow{DayStart: "friday", DayEnd: "monday", TimeStart: "22:00", TimeEnd: "06:00"}

	cases := []struct {
		name string
		day  time.Weekday
		hour int
		min  int
		want bool
	}{
		{"friday before start", time.Friday, 21, 59, false},
		{"friday at start", time.Friday, 22, 0, true},
		{"saturday any time", time.Saturday, 12, 0, true},
		{"sunday any time", time.Sunday, 3, 30, true},
		{"monday before end", time.Monday, 5, 59, true},
		{"monday at end", time.Monday, 6, 0, false},
		{"wednesday outside", time.Wednesday, 23, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := mustTime(t, tc.day, tc.hour, tc.min)
			if got := w.Contains(now); got != tc.want {
				t.Fatalf("Contains(%s %02d:%02d) = %v, want %v", tc.day, tc.hour, tc.min, got, tc.want)
			}
		})
	}
}

func TestChangeWindowSameDay(t *testing.T) {
	w := ChangeWindow{DayStart: "wednesday", DayEnd: "wednesday", TimeStart: "09:00", TimeEnd: "17:00"}

	if w.Contains(mustTime(t, time.Wednesday, 8, 59)) {
		t.Fatalf("before start should be outside")
	}
	if !w.Contains(mustTime(t, time.Wednesday, 9, 0)) {
		t.Fatalf("start boundary should be inside")
	}
	if !w.Contains(mustTime(t, time.Wednesday, 16, 59)) {
		t.Fatalf("just before end should be inside")
	}
	if w.Contains(mustTime(t, time.Wednesday, 17, 0)) {
		t.Fatalf("end boundary should be outside")
	}
	if w.Contains(mustTime(t, time.Thursday, 12, 0)) {
		t.Fatalf("other day should be outside")
	}
}

func TestChangeWindowForwardSpan(t *testing.T) {
	w := ChangeWindow{DayStart: "tuesday", DayEnd: "thursday", TimeStart: "18:00", TimeEnd: "08:00"}

	if w.Contains(mustTime(t, time.Tuesday, 17, 59)) {
		t.Fatalf("tuesday before start should be outside")
	}
	if !w.Contains(mustTime(t, time.Tuesday, 18, 0)) {
		t.Fatalf("tuesday at start should be inside")
	}
	if !w.Contains(mustTime(t, time.Wednesday, 12, 0)) {
		t.Fatalf("full interior day should be inside")
	}
	if !w.Contains(mustTime(t, time.Thursday, 7, 59)) {
		t.Fatalf("thursday before end should be inside")
	}
	if w.Contains(mustTime(t, time.Thursday, 8, 0)) {
		t.Fatalf("thursday at end should be outside")
	}
	if w.Contains(mustTime(t, time.Friday, 0, 0)) {
		t.Fatalf("day after span should be outside")
	}
}

func TestChangeWindowValidate(t *testing.T) {
	good := ChangeWindow{DayStart: "Friday", DayEnd: "monday", TimeStart: "22:00", TimeEnd: "06:00"}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}

	bad := []ChangeWindow{
		{DayStart: "fridayish", DayEnd: "monday", TimeStart: "22:00", TimeEnd: "06:00"},
		{DayStart: "friday", DayEnd: "monday", TimeStart: "25:00", TimeEnd: "06:00"},
		{DayStart: "friday", DayEnd: "monday", TimeStart: "22:00", TimeEnd: "06:75"},
		{DayStart: "friday", DayEnd: "monday", TimeStart: "nope", TimeEnd: "06:00"},
	}
	for i, w := range bad {
		if err := w.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
