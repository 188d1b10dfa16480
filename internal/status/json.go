package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/alarm-clock/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Time          string     `json:"time"`
	Alarm         string     `json:"alarm"`
	Armed         bool       `json:"armed"`
	Ringing       bool       `json:"ringing"`
	Mode          string     `json:"mode"`
	Lamps         LampsJSON  `json:"lamps"`
	MissedTicks   int64      `json:"missed_ticks"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// LampsJSON reports which indicator lamps are lit.
type LampsJSON struct {
	Alarm        bool `json:"alarm"`
	SettingAlarm bool `json:"setting_alarm"`
	SettingClock bool `json:"setting_clock"`
	Heartbeat    bool `json:"heartbeat"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	KeyPresses      int `json:"key_presses"`
	ClockSets       int `json:"clock_sets"`
	AlarmSets       int `json:"alarm_sets"`
	AlarmsRung      int `json:"alarms_rung"`
	AlarmsDismissed int `json:"alarms_dismissed"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip       string `json:"chip"`
	TickMs     int64  `json:"tick_ms"`
	RefreshUs  int64  `json:"refresh_us"`
	PollMs     int64  `json:"poll_ms"`
	HeartbeatS int64  `json:"heartbeat_s"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Time:    snap.Time.String(),
		Alarm:   snap.Alarm.String(),
		Armed:   snap.Alarm.Armed,
		Ringing: snap.Ringing,
		Mode:    snap.Mode.String(),
		Lamps: LampsJSON{
			Alarm:        snap.LampLit(logic.LampAlarm),
			SettingAlarm: snap.LampLit(logic.LampSettingAlarm),
			SettingClock: snap.LampLit(logic.LampSettingClock),
			Heartbeat:    snap.LampLit(logic.LampHeartbeat),
		},
		MissedTicks:   snap.MissedTicks,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Buffered: snap.MQTTBuffered},
		Counts: CountsJSON{
			KeyPresses:      snap.Counts.KeyPresses,
			ClockSets:       snap.Counts.ClockSets,
			AlarmSets:       snap.Counts.AlarmSets,
			AlarmsRung:      snap.Counts.AlarmsRung,
			AlarmsDismissed: snap.Counts.AlarmsDismissed,
		},
		Config: ConfigJSON{
			Chip:       snap.Config.Chip,
			TickMs:     snap.Config.TickMs,
			RefreshUs:  snap.Config.RefreshUs,
			PollMs:     snap.Config.PollMs,
			HeartbeatS: snap.Config.HeartbeatS,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
