// Package logic contains the pure clock and alarm state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Wall time is only used to stamp events and is always passed in.
package logic

import (
	"fmt"
	"time"
)

// Key identifies one of the 16 keys on the matrix keypad.
type Key uint8

// NoKey is returned by a scan when nothing is pressed.
const NoKey Key = 0xFF

// Keys with a fixed meaning. Digits 0-9, * (14) and # (15) are unused.
const (
	KeyA    Key = 10 // increment hours
	KeyB    Key = 11 // increment minutes
	KeyC    Key = 12 // enter/leave clock setting
	KeyD    Key = 13 // enter/leave alarm setting
	KeyStar Key = 14
	KeyHash Key = 15
)

// String returns the label printed on the keypad.
func (k Key) String() string {
	switch {
	case k == NoKey:
		return "none"
	case k <= 9:
		return fmt.Sprintf("%d", k)
	case k >= KeyA && k <= KeyD:
		return string(rune('A' + k - KeyA))
	case k == KeyStar:
		return "*"
	case k == KeyHash:
		return "#"
	}
	return fmt.Sprintf("key(%d)", uint8(k))
}

// Mode is the current editing mode.
type Mode uint32

const (
	ModeNormal Mode = iota
	ModeSettingClock
	ModeSettingAlarm
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeSettingClock:
		return "SET_CLOCK"
	case ModeSettingAlarm:
		return "SET_ALARM"
	}
	return "UNKNOWN"
}

// TimeOfDay is the wall clock kept by the device. All fields stay in range.
type TimeOfDay struct {
	Hours   uint8 // 0-23
	Minutes uint8 // 0-59
	Seconds uint8 // 0-59
}

// String formats as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
}

// AlarmSetting is the alarm setpoint.
type AlarmSetting struct {
	Hours   uint8 // 0-23
	Minutes uint8 // 0-59
	Armed   bool
}

// String formats as HH:MM.
func (a AlarmSetting) String() string {
	return fmt.Sprintf("%02d:%02d", a.Hours, a.Minutes)
}

// EventType represents a state change to be published.
type EventType string

const (
	EventSetClockEnter  EventType = "SET_CLOCK_ENTER"
	EventSetClockExit   EventType = "SET_CLOCK_EXIT"
	EventSetAlarmEnter  EventType = "SET_ALARM_ENTER"
	EventSetAlarmExit   EventType = "SET_ALARM_EXIT"
	EventAlarmRinging   EventType = "ALARM_RINGING"
	EventAlarmDismissed EventType = "ALARM_DISMISSED"
)

// Event is a state change, stamped with the state right after it happened.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Time      TimeOfDay
	Alarm     AlarmSetting
	Mode      Mode
	Ringing   bool
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	KeyPresses      int
	ClockSets       int
	AlarmSets       int
	AlarmsRung      int
	AlarmsDismissed int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
