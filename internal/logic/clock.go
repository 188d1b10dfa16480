package logic

import "time"

// Clock owns the time of day, the alarm setpoint and the mode state machine.
// It is only ever touched from the main loop.
type Clock struct {
	mode    Mode
	now     TimeOfDay
	alarm   AlarmSetting
	ringing bool

	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewClock creates a clock at 00:00:00 with a disarmed 00:00 alarm.
// The startTime is used for calculating uptime in heartbeat events.
func NewClock(startTime time.Time) *Clock {
	return &Clock{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// HandleKey interprets one key press and returns any events it caused.
// debounce reports whether the caller must wait for the key to be released
// before scanning again.
func (c *Clock) HandleKey(key Key, at time.Time) (events []Event, debounce bool) {
	if key == NoKey {
		return nil, false
	}
	c.eventCounts.KeyPresses++

	// Dismissing the alarm swallows the key press.
	if c.ringing {
		c.ringing = false
		c.eventCounts.AlarmsDismissed++
		return []Event{c.event(EventAlarmDismissed, at)}, true
	}

	switch key {
	case KeyC:
		switch c.mode {
		case ModeNormal:
			c.mode = ModeSettingClock
			return []Event{c.event(EventSetClockEnter, at)}, true
		case ModeSettingClock:
			c.mode = ModeNormal
			c.now.Seconds = 0
			c.eventCounts.ClockSets++
			return []Event{c.event(EventSetClockExit, at)}, true
		}
		return nil, true

	case KeyD:
		switch c.mode {
		case ModeNormal:
			c.mode = ModeSettingAlarm
			return []Event{c.event(EventSetAlarmEnter, at)}, true
		case ModeSettingAlarm:
			c.mode = ModeNormal
			c.alarm.Armed = true
			c.eventCounts.AlarmSets++
			return []Event{c.event(EventSetAlarmExit, at)}, true
		}
		return nil, true

	case KeyA:
		switch c.mode {
		case ModeSettingClock:
			c.now.Hours = (c.now.Hours + 1) % 24
			return nil, true
		case ModeSettingAlarm:
			c.alarm.Hours = (c.alarm.Hours + 1) % 24
			return nil, true
		}

	case KeyB:
		switch c.mode {
		case ModeSettingClock:
			c.now.Minutes = (c.now.Minutes + 1) % 60
			return nil, true
		case ModeSettingAlarm:
			c.alarm.Minutes = (c.alarm.Minutes + 1) % 60
			return nil, true
		}
	}

	return nil, false
}

// Tick advances the clock by one second and runs the alarm check.
func (c *Clock) Tick(at time.Time) []Event {
	c.now = c.now.Next()

	// Only evaluated at the top of the minute, so an alarm set for the
	// current minute waits for the next day.
	if c.now.Seconds == 0 &&
		c.alarm.Armed &&
		!c.ringing &&
		c.now.Hours == c.alarm.Hours &&
		c.now.Minutes == c.alarm.Minutes {
		c.ringing = true
		c.eventCounts.AlarmsRung++
		return []Event{c.event(EventAlarmRinging, at)}
	}
	return nil
}

// Next returns t advanced by one second, wrapping at midnight.
func (t TimeOfDay) Next() TimeOfDay {
	t.Seconds++
	if t.Seconds > 59 {
		t.Seconds = 0
		t.Minutes++
		if t.Minutes > 59 {
			t.Minutes = 0
			t.Hours = (t.Hours + 1) % 24
		}
	}
	return t
}

func (c *Clock) event(typ EventType, at time.Time) Event {
	return Event{
		Timestamp: at,
		Type:      typ,
		Time:      c.now,
		Alarm:     c.alarm,
		Mode:      c.mode,
		Ringing:   c.ringing,
	}
}

// Mode returns the current mode.
func (c *Clock) Mode() Mode {
	return c.mode
}

// Now returns the current time of day.
func (c *Clock) Now() TimeOfDay {
	return c.now
}

// Alarm returns the alarm setpoint.
func (c *Clock) Alarm() AlarmSetting {
	return c.alarm
}

// Ringing reports whether the alarm is signalling.
func (c *Clock) Ringing() bool {
	return c.ringing
}

// EventCountsSnapshot returns a copy of the event counters.
func (c *Clock) EventCountsSnapshot() EventCounts {
	return c.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed, or
// if interval is <= 0 (disabled).
func (c *Clock) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
	}
}
