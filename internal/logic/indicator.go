package logic

// Lamp bit positions in the indicator mask.
const (
	LampAlarm        = 0 // blinks while ringing
	LampSettingAlarm = 1
	LampSettingClock = 2
	LampHeartbeat    = 3
)

// LampsOff is the mask with every lamp dark. Lamps are active-low.
const LampsOff uint8 = 0x0F

// Indicators computes the four lamp outputs. A cleared bit lights the lamp.
// While ringing the mode lamps are forced off and the alarm lamp follows the
// heartbeat.
func Indicators(mode Mode, ringing, heartbeat bool) uint8 {
	out := LampsOff

	if heartbeat {
		out &^= 1 << LampHeartbeat
	}

	if ringing {
		if heartbeat {
			out &^= 1 << LampAlarm
		}
		return out
	}

	switch mode {
	case ModeSettingClock:
		out &^= 1 << LampSettingClock
	case ModeSettingAlarm:
		out &^= 1 << LampSettingAlarm
	}
	return out
}

// Selection returns the (hours, minutes) pair the display should show for mode.
func Selection(mode Mode, now TimeOfDay, alarm AlarmSetting) (hours, minutes uint8) {
	if mode == ModeSettingAlarm {
		return alarm.Hours, alarm.Minutes
	}
	return now.Hours, now.Minutes
}
