package gametime

import (
	"math"
	"testing"
)

func TestGameHourArithmetic(t *testing.T) {
	c := New(2, 10, 30, 6, 20)
	want := 2*24 + 10 + 0.5
	if got := c.GameHour(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("GameHour = %v, want %v", got, want)
	}
	if got := c.HourFloat(); math.Abs(got-10.5) > 1e-9 {
		t.Fatalf("HourFloat = %v, want 10.5", got)
	}
	if c.Minute() != 30 {
		t.Fatalf("Minute = %d, want 30", c.Minute())
	}
}

func TestAdvanceFiresBoundaries(t *testing.T) {
	c := New(1, 22, 0, 6, 20)

	var hours []int
	var days []int
	c.OnHourChanged(func(h int) { hours = append(hours, h) })
	c.OnDayStarted(func(d int) { days = append(days, d) })

	// 22:00 -> 01:30 next day: hours 23, 0, 1 and one day start.
	c.Advance(3*60 + 30)

	wantHours := []int{23, 0, 1}
	if len(hours) != len(wantHours) {
		t.Fatalf("hour callbacks = %v, want %v", hours, wantHours)
	}
	for i := range wantHours {
		if hours[i] != wantHours[i] {
			t.Fatalf("hour callbacks = %v, want %v", hours, wantHours)
		}
	}
	if len(days) != 1 || days[0] != 2 {
		t.Fatalf("day callbacks = %v, want [2]", days)
	}
	if c.Day() != 2 || c.Hour() != 1 || c.Minute() != 30 {
		t.Fatalf("clock = day %d hour %d minute %d, want 2/1/30", c.Day(), c.Hour(), c.Minute())
	}
}

func TestDayStartsBeforeFirstHourOfDay(t *testing.T) {
	c := New(1, 23, 59, 6, 20)

	var order []string
	c.OnHourChanged(func(h int) {
		if h == 0 {
			order = append(order, "hour0")
		}
	})
	c.OnDayStarted(func(int) { order = append(order, "day") })

	c.Advance(1)
	if len(order) != 2 || order[0] != "day" || order[1] != "hour0" {
		t.Fatalf("callback order = %v, want [day hour0]", order)
	}
}

func TestNightWindowWrapsMidnight(t *testing.T) {
	c := New(1, 0, 0, 6, 20)

	cases := map[int]bool{
		0: true, 5: true, 6: false, 12: false, 19: false, 20: true, 23: true,
	}
	for hour, want := range cases {
		if got := c.IsNightAt(hour); got != want {
			t.Fatalf("IsNightAt(%d) = %v, want %v", hour, got, want)
		}
	}
}

func TestNightWindowWithoutWrap(t *testing.T) {
	// Degenerate config: sunset before sunrise means night sits inside
	// the day rather than wrapping it.
	c := New(1, 0, 0, 18, 4)

	cases := map[int]bool{
		0: false, 3: false, 4: true, 17: true, 18: false, 23: false,
	}
	for hour, want := range cases {
		if got := c.IsNightAt(hour); got != want {
			t.Fatalf("IsNightAt(%d) = %v, want %v", hour, got, want)
		}
	}
}

func TestSetTimeDoesNotFire(t *testing.T) {
	c := New(1, 0, 0, 6, 20)
	fired := false
	c.OnHourChanged(func(int) { fired = true })
	c.OnDayStarted(func(int) { fired = true })

	c.SetTime(9, 13, 45)
	if fired {
		t.Fatalf("SetTime fired callbacks")
	}
	if c.Day() != 9 || c.Hour() != 13 || c.Minute() != 45 {
		t.Fatalf("clock = %d/%d/%d, want 9/13/45", c.Day(), c.Hour(), c.Minute())
	}

	c.SetTime(-3, 99, -1)
	if c.Day() != 1 || c.Hour() != 0 || c.Minute() != 0 {
		t.Fatalf("invalid SetTime not defaulted: %d/%d/%d", c.Day(), c.Hour(), c.Minute())
	}
}

func TestAdvanceIgnoresNonPositive(t *testing.T) {
	c := New(1, 5, 0, 6, 20)
	c.Advance(0)
	c.Advance(-10)
	if c.Day() != 1 || c.Hour() != 5 || c.Minute() != 0 {
		t.Fatalf("clock moved on non-positive advance: %d/%d/%d", c.Day(), c.Hour(), c.Minute())
	}
}
