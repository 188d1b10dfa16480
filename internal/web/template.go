package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/alarm-clock/internal/logic"
	"github.com/sweeney/alarm-clock/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onoff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Alarm Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.face { font-size: 2.4em; letter-spacing: 0.1em; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.ringing { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Alarm Clock</h1>

<p class="face{{if .Ringing}} ringing{{end}}">{{.Time}}</p>

<h2>State</h2>
<table>
<tr><th>Mode</th><td>{{.Mode}}</td></tr>
<tr><th>Alarm</th><td>{{.Alarm}} ({{if .Alarm.Armed}}armed{{else}}disarmed{{end}})</td></tr>
<tr><th>Ringing</th><td class="{{if .Ringing}}ringing{{else}}off{{end}}">{{if .Ringing}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Lamps</h2>
<table>
<tr><th>Alarm</th><td class="{{onoff .AlarmLamp}}">{{onoff .AlarmLamp}}</td></tr>
<tr><th>Setting alarm</th><td class="{{onoff .SettingAlarmLamp}}">{{onoff .SettingAlarmLamp}}</td></tr>
<tr><th>Setting clock</th><td class="{{onoff .SettingClockLamp}}">{{onoff .SettingClockLamp}}</td></tr>
<tr><th>Heartbeat</th><td class="{{onoff .HeartbeatLamp}}">{{onoff .HeartbeatLamp}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Buffered</th><td>{{.MQTTBuffered}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Key presses</th><td>{{.Counts.KeyPresses}}</td></tr>
<tr><th>Clock sets</th><td>{{.Counts.ClockSets}}</td></tr>
<tr><th>Alarm sets</th><td>{{.Counts.AlarmSets}}</td></tr>
<tr><th>Alarms rung</th><td>{{.Counts.AlarmsRung}}</td></tr>
<tr><th>Alarms dismissed</th><td>{{.Counts.AlarmsDismissed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Missed ticks</th><td>{{.MissedTicks}}</td></tr>
<tr><th>GPIO chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Refresh</th><td>{{.Config.RefreshUs}}us</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatS 0}}disabled{{else}}{{.Config.HeartbeatS}}s{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Template methods cannot take arguments from a field chain, so the
	// derived values are flattened here.
	data := struct {
		status.Snapshot
		Uptime           time.Duration
		AlarmLamp        bool
		SettingAlarmLamp bool
		SettingClockLamp bool
		HeartbeatLamp    bool
	}{
		Snapshot:         snap,
		Uptime:           snap.Uptime(),
		AlarmLamp:        snap.LampLit(logic.LampAlarm),
		SettingAlarmLamp: snap.LampLit(logic.LampSettingAlarm),
		SettingClockLamp: snap.LampLit(logic.LampSettingClock),
		HeartbeatLamp:    snap.LampLit(logic.LampHeartbeat),
	}
	indexTmpl.Execute(w, data)
}
