// Package shared holds the single-word values exchanged between the main loop
// and the two periodic sources (time base and display refresh).
//
// Every value has exactly one writer. The time base sets the tick-pending flag
// and toggles the heartbeat; only the main loop clears the tick flag and
// publishes the mode and displayed values. No locks are taken.
package shared

import (
	"sync/atomic"

	"github.com/sweeney/alarm-clock/internal/logic"
)

// FlagSetter is the time base's view of the registers.
type FlagSetter interface {
	// SetTickPending raises the tick flag. It reports false if the previous
	// tick had not been consumed yet.
	SetTickPending() bool
	// ToggleHeartbeat flips the 1 Hz heartbeat.
	ToggleHeartbeat()
}

// Selector is the display refresh's read-only view of the registers.
type Selector interface {
	// Selected returns the hours and minutes to show, chosen by mode.
	Selected() (hours, minutes uint8)
}

// Registers is the state shared with the periodic sources.
type Registers struct {
	tickPending atomic.Bool
	heartbeat   atomic.Bool

	mode  atomic.Uint32
	clock atomic.Uint32 // hours<<8 | minutes
	alarm atomic.Uint32 // hours<<8 | minutes
}

var (
	_ FlagSetter = (*Registers)(nil)
	_ Selector   = (*Registers)(nil)
)

// SetTickPending implements FlagSetter.
func (r *Registers) SetTickPending() bool {
	return !r.tickPending.Swap(true)
}

// ToggleHeartbeat implements FlagSetter.
// The time base is the only writer, so load-then-store cannot race.
func (r *Registers) ToggleHeartbeat() {
	r.heartbeat.Store(!r.heartbeat.Load())
}

// ConsumeTick reports whether a tick was pending and clears it.
func (r *Registers) ConsumeTick() bool {
	return r.tickPending.Swap(false)
}

// Heartbeat returns the current heartbeat phase.
func (r *Registers) Heartbeat() bool {
	return r.heartbeat.Load()
}

// Publish stores the values the display reads. Called by the main loop after
// every change to the clock.
func (r *Registers) Publish(mode logic.Mode, now logic.TimeOfDay, alarm logic.AlarmSetting) {
	r.clock.Store(pack(now.Hours, now.Minutes))
	r.alarm.Store(pack(alarm.Hours, alarm.Minutes))
	r.mode.Store(uint32(mode))
}

// Selected implements Selector.
func (r *Registers) Selected() (hours, minutes uint8) {
	mode := logic.Mode(r.mode.Load())
	now := unpackTime(r.clock.Load())
	alarm := unpackAlarm(r.alarm.Load())
	return logic.Selection(mode, now, alarm)
}

func pack(hours, minutes uint8) uint32 {
	return uint32(hours)<<8 | uint32(minutes)
}

func unpackTime(v uint32) logic.TimeOfDay {
	return logic.TimeOfDay{Hours: uint8(v >> 8), Minutes: uint8(v)}
}

func unpackAlarm(v uint32) logic.AlarmSetting {
	return logic.AlarmSetting{Hours: uint8(v >> 8), Minutes: uint8(v)}
}
