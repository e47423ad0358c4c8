// Package gametime tracks discrete game time: a day index starting at 1
// and a 24-hour clock with fractional minutes. All scheduling arithmetic
// in the simulation uses the absolute game hour derived from it.
package gametime

// Clock is owned by the simulation loop; it is not safe for concurrent
// use. Boundary callbacks fire synchronously from Advance.
type Clock struct {
	day    int     // >= 1
	hour   int     // 0..23
	minute float64 // [0, 60)

	sunriseHour int
	sunsetHour  int

	onHour []func(hour int)
	onDay  []func(day int)
}

func New(day, hour, minute, sunriseHour, sunsetHour int) *Clock {
	if day < 1 {
		day = 1
	}
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if minute < 0 || minute > 59 {
		minute = 0
	}
	if sunriseHour < 0 || sunriseHour > 23 {
		sunriseHour = 6
	}
	if sunsetHour < 0 || sunsetHour > 23 {
		sunsetHour = 20
	}
	return &Clock{
		day:         day,
		hour:        hour,
		minute:      float64(minute),
		sunriseHour: sunriseHour,
		sunsetHour:  sunsetHour,
	}
}

func (c *Clock) Day() int  { return c.day }
func (c *Clock) Hour() int { return c.hour }

// Minute returns whole minutes, the unit the save format records.
func (c *Clock) Minute() int { return int(c.minute) }

// HourFloat is the fractional hour of the current day.
func (c *Clock) HourFloat() float64 { return float64(c.hour) + c.minute/60 }

// GameHour is the absolute scheduling unit: day*24 + hour + minute/60.
func (c *Clock) GameHour() float64 {
	return float64(c.day)*24 + float64(c.hour) + c.minute/60
}

func (c *Clock) SunriseHour() int { return c.sunriseHour }
func (c *Clock) SunsetHour() int  { return c.sunsetHour }

func (c *Clock) IsNight() bool { return c.IsNightAt(c.hour) }

// IsNightAt supports a night window that wraps past midnight
// (sunset > sunrise, the usual case).
func (c *Clock) IsNightAt(hour int) bool {
	if c.sunsetHour > c.sunriseHour {
		return hour >= c.sunsetHour || hour < c.sunriseHour
	}
	return hour >= c.sunsetHour && hour < c.sunriseHour
}

// OnHourChanged registers fn to run after every completed hour, with the
// new hour (0..23). Registration order is firing order.
func (c *Clock) OnHourChanged(fn func(hour int)) {
	if fn != nil {
		c.onHour = append(c.onHour, fn)
	}
}

// OnDayStarted registers fn to run when the day index increments, before
// that day's first hour callback.
func (c *Clock) OnDayStarted(fn func(day int)) {
	if fn != nil {
		c.onDay = append(c.onDay, fn)
	}
}

// Advance moves the clock forward by a number of game minutes, firing
// day and hour callbacks for every boundary crossed, in order.
func (c *Clock) Advance(minutes float64) {
	if minutes <= 0 {
		return
	}
	c.minute += minutes
	for c.minute >= 60 {
		c.minute -= 60
		c.hour++
		if c.hour >= 24 {
			c.hour = 0
			c.day++
			for _, fn := range c.onDay {
				fn(c.day)
			}
		}
		for _, fn := range c.onHour {
			fn(c.hour)
		}
	}
}

// SetTime rewrites the clock wholesale without firing callbacks. Load
// paths use it; the apply step refreshes observers itself.
func (c *Clock) SetTime(day, hour, minute int) {
	if day < 1 {
		day = 1
	}
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if minute < 0 || minute > 59 {
		minute = 0
	}
	c.day = day
	c.hour = hour
	c.minute = float64(minute)
}
