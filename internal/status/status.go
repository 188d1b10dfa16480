// Package status provides a thread-safe status tracker for the alarm-clock daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/alarm-clock/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip       string
	TickMs     int64
	RefreshUs  int64
	PollMs     int64
	HeartbeatS int64
	Broker     string
	HTTPAddr   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Time          logic.TimeOfDay
	Alarm         logic.AlarmSetting
	Mode          logic.Mode
	Ringing       bool
	Lamps         uint8
	Counts        logic.EventCounts
	MissedTicks   int64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// LampLit reports whether the lamp at bit is on. Lamps are active-low.
func (s Snapshot) LampLit(bit int) bool {
	return s.Lamps&(1<<bit) == 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Lamps:     logic.LampsOff,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the clock state and lamp outputs.
// Called from runLoop on every poll.
func (t *Tracker) Update(c *logic.Clock, lamps uint8) {
	t.mu.Lock()
	t.snap.Time = c.Now()
	t.snap.Alarm = c.Alarm()
	t.snap.Mode = c.Mode()
	t.snap.Ringing = c.Ringing()
	t.snap.Counts = c.EventCountsSnapshot()
	t.snap.Lamps = lamps
	t.mu.Unlock()
}

// SetMissedTicks records the time base overrun count.
func (t *Tracker) SetMissedTicks(n int64) {
	t.mu.Lock()
	t.snap.MissedTicks = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffered records how many messages are waiting for the broker.
func (t *Tracker) SetMQTTBuffered(n int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = n
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
