package internal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/alarm-clock/internal/display"
	"github.com/sweeney/alarm-clock/internal/gpio"
	"github.com/sweeney/alarm-clock/internal/keypad"
	"github.com/sweeney/alarm-clock/internal/logic"
	"github.com/sweeney/alarm-clock/internal/mqtt"
	"github.com/sweeney/alarm-clock/internal/shared"
	"github.com/sweeney/alarm-clock/internal/timebase"
)

// keyFrame finds key in the default map and returns its pressed frame.
func keyFrame(t *testing.T, key logic.Key) gpio.Frame {
	t.Helper()
	for r, row := range keypad.DefaultKeyMap {
		for c, k := range row {
			if k == key {
				return gpio.Press(r, c)
			}
		}
	}
	t.Fatalf("key %s not in default map", key)
	return gpio.Frame{}
}

// script returns a press and a release frame for each key.
func script(t *testing.T, keys ...logic.Key) []gpio.Frame {
	t.Helper()
	var frames []gpio.Frame
	for _, k := range keys {
		frames = append(frames, keyFrame(t, k), gpio.Frame{})
	}
	return frames
}

func repeatKey(k logic.Key, n int) []logic.Key {
	out := make([]logic.Key, n)
	for i := range out {
		out[i] = k
	}
	return out
}

// rig wires the real scanner, clock, registers, time base and multiplexer to
// fake hardware, and simulates the main loop.
type rig struct {
	t       *testing.T
	matrix  *gpio.FakeMatrix
	scanner *keypad.Scanner
	out     *gpio.FakeDisplay
	regs    *shared.Registers
	tb      *timebase.TimeBase
	mux     *display.Multiplexer
	clock   *logic.Clock
	pub     *mqtt.FakePublisher
	now     time.Time
}

func newRig(t *testing.T, frames []gpio.Frame) *rig {
	t.Helper()
	r := &rig{
		t:      t,
		matrix: gpio.NewFakeMatrix(frames...),
		out:    gpio.NewFakeDisplay(),
		regs:   &shared.Registers{},
		pub:    mqtt.NewFakePublisher(),
		now:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	r.scanner = keypad.NewScanner(r.matrix, keypad.DefaultKeyMap, 0, clockwork.NewFakeClock())
	r.tb = timebase.New(r.regs)
	r.mux = display.New(r.regs, r.out, display.DefaultGlyphs)
	r.clock = logic.NewClock(r.now)
	return r
}

// pass runs one iteration of the main loop.
func (r *rig) pass() {
	r.t.Helper()
	r.now = r.now.Add(10 * time.Millisecond)
	var events []logic.Event

	key, err := r.scanner.Scan()
	if err != nil {
		r.t.Fatalf("scan: %v", err)
	}
	evs, debounce := r.clock.HandleKey(key, r.now)
	events = append(events, evs...)
	if debounce {
		if err := r.scanner.WaitForRelease(context.Background()); err != nil {
			r.t.Fatalf("wait for release: %v", err)
		}
	}
	if r.regs.ConsumeTick() {
		events = append(events, r.clock.Tick(r.now)...)
	}
	r.regs.Publish(r.clock.Mode(), r.clock.Now(), r.clock.Alarm())

	for _, e := range events {
		if err := r.pub.Publish(e); err != nil {
			r.t.Logf("publish error: %v", err)
		}
	}
}

// seconds fires the time base n times with one loop pass after each.
func (r *rig) seconds(n int) {
	for i := 0; i < n; i++ {
		r.tb.Fire()
		r.pass()
	}
}

// refresh runs one full multiplex cycle and returns the four glyphs shown.
func (r *rig) refresh() [display.Positions]uint8 {
	r.t.Helper()
	for i := 0; i < display.Positions; i++ {
		if err := r.mux.Fire(); err != nil {
			r.t.Fatalf("refresh: %v", err)
		}
	}
	writes := r.out.Writes()
	var shown [display.Positions]uint8
	for _, w := range writes[len(writes)-display.Positions:] {
		shown[w.Position] = w.Segments
	}
	return shown
}

// glyphsFor returns the expected glyphs for HH:MM, positions 0-3.
func glyphsFor(hours, minutes uint8) [display.Positions]uint8 {
	g := display.DefaultGlyphs
	return [display.Positions]uint8{g[minutes%10], g[minutes/10], g[hours%10], g[hours/10]}
}

// TestIntegrationAlarmFlow sets the clock to 06:59, the alarm to 07:00, and
// lets a minute pass.
func TestIntegrationAlarmFlow(t *testing.T) {
	var keys []logic.Key
	keys = append(keys, logic.KeyC)
	keys = append(keys, repeatKey(logic.KeyA, 6)...)
	keys = append(keys, repeatKey(logic.KeyB, 59)...)
	keys = append(keys, logic.KeyC, logic.KeyD)
	keys = append(keys, repeatKey(logic.KeyA, 7)...)
	keys = append(keys, logic.KeyD)
	r := newRig(t, script(t, keys...))

	for range keys {
		r.pass()
	}

	if got := r.clock.Now(); got != (logic.TimeOfDay{Hours: 6, Minutes: 59}) {
		t.Fatalf("clock: got %s, want 06:59:00", got)
	}
	if got := r.clock.Alarm(); got != (logic.AlarmSetting{Hours: 7, Armed: true}) {
		t.Fatalf("alarm: got %+v", got)
	}
	if shown := r.refresh(); shown != glyphsFor(6, 59) {
		t.Errorf("display: got %x, want 06:59", shown)
	}

	r.seconds(59)
	if r.clock.Ringing() {
		t.Fatal("alarm should not ring before 07:00:00")
	}
	r.seconds(1)
	if !r.clock.Ringing() {
		t.Fatal("alarm should ring at 07:00:00")
	}
	if shown := r.refresh(); shown != glyphsFor(7, 0) {
		t.Errorf("display: got %x, want 07:00", shown)
	}

	// One ring per day: another minute in, still one ALARM_RINGING.
	r.seconds(61)
	rung := 0
	for _, e := range r.pub.Events {
		if e.Type == logic.EventAlarmRinging {
			rung++
		}
	}
	if rung != 1 {
		t.Errorf("expected 1 ALARM_RINGING, got %d", rung)
	}
	if shown := r.refresh(); shown != glyphsFor(7, 1) {
		t.Errorf("ringing clock should keep counting: got %x, want 07:01", shown)
	}

	want := []logic.EventType{
		logic.EventSetClockEnter,
		logic.EventSetClockExit,
		logic.EventSetAlarmEnter,
		logic.EventSetAlarmExit,
		logic.EventAlarmRinging,
	}
	if len(r.pub.Events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(r.pub.Events))
	}
	for i, w := range want {
		if r.pub.Events[i].Type != w {
			t.Errorf("event %d: got %s, want %s", i, r.pub.Events[i].Type, w)
		}
	}
}

// TestIntegrationEditWhileRunning checks the clock keeps ticking in clock
// setting mode and the seconds are zeroed on exit.
func TestIntegrationEditWhileRunning(t *testing.T) {
	frames := append(script(t, logic.KeyC), make([]gpio.Frame, 30)...)
	r := newRig(t, append(frames, script(t, logic.KeyB, logic.KeyC)...))

	r.pass() // C
	r.seconds(30)
	if got := r.clock.Now(); got != (logic.TimeOfDay{Seconds: 30}) {
		t.Errorf("clock should keep running while setting: got %s", got)
	}
	r.pass() // B
	r.pass() // C
	if got := r.clock.Now(); got != (logic.TimeOfDay{Minutes: 1}) {
		t.Errorf("clock: got %s, want 00:01:00", got)
	}
}

// TestIntegrationDisplayShowsAlarmWhileSetting checks the multiplexer follows
// the mode published by the loop.
func TestIntegrationDisplayShowsAlarmWhileSetting(t *testing.T) {
	r := newRig(t, script(t, logic.KeyD, logic.KeyB, logic.KeyB, logic.KeyD))

	r.pass() // D
	r.pass() // B
	if shown := r.refresh(); shown != glyphsFor(0, 1) {
		t.Errorf("display should show alarm 00:01, got %x", shown)
	}
	r.pass() // B
	if shown := r.refresh(); shown != glyphsFor(0, 2) {
		t.Errorf("display should show alarm 00:02 on the next refresh, got %x", shown)
	}
	r.pass() // D
	r.seconds(5)
	if shown := r.refresh(); shown != glyphsFor(0, 0) {
		t.Errorf("display should return to the clock, got %x", shown)
	}
}

// TestIntegrationDismissPreemptsMode checks a ringing alarm swallows the
// mode key that stops it.
func TestIntegrationDismissPreemptsMode(t *testing.T) {
	frames := script(t, logic.KeyD, logic.KeyB, logic.KeyD)
	r := newRig(t, append(frames, append(make([]gpio.Frame, 60), script(t, logic.KeyC)...)...))

	r.pass()
	r.pass()
	r.pass()
	r.seconds(60)
	if !r.clock.Ringing() {
		t.Fatal("expected ringing at 00:01:00")
	}

	r.pass() // C dismisses only
	if r.clock.Ringing() {
		t.Error("expected alarm dismissed")
	}
	if r.clock.Mode() != logic.ModeNormal {
		t.Errorf("dismissing C must not enter setting mode, got %s", r.clock.Mode())
	}
	last := r.pub.Events[len(r.pub.Events)-1]
	if last.Type != logic.EventAlarmDismissed {
		t.Errorf("last event: got %s, want ALARM_DISMISSED", last.Type)
	}
}

// TestIntegrationMissedTick checks an unconsumed tick is dropped, not queued.
func TestIntegrationMissedTick(t *testing.T) {
	r := newRig(t, []gpio.Frame{{}})

	r.tb.Fire()
	r.tb.Fire() // loop stalled
	r.pass()
	r.pass()

	if got := r.clock.Now(); got != (logic.TimeOfDay{Seconds: 1}) {
		t.Errorf("clock: got %s, want 00:00:01", got)
	}
	if r.tb.Missed() != 1 {
		t.Errorf("missed: got %d, want 1", r.tb.Missed())
	}
}

// TestIntegrationPeriodicSources runs the time base and multiplexer on a fake
// clock and checks the loop sees the ticks and the display is blanked on exit.
func TestIntegrationPeriodicSources(t *testing.T) {
	r := newRig(t, []gpio.Frame{{}})
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 2)
	go func() { done <- r.tb.Run(ctx, fc, timebase.Period) }()
	go func() { done <- r.mux.Run(ctx, fc, time.Millisecond) }()
	fc.BlockUntil(2)

	for i := 0; i < 3; i++ {
		fc.Advance(timebase.Period)
		deadline := time.Now().Add(time.Second)
		for !r.regs.ConsumeTick() {
			if time.Now().After(deadline) {
				t.Fatalf("tick %d not raised", i)
			}
			time.Sleep(time.Millisecond)
		}
		r.clock.Tick(r.now)
	}
	if got := r.clock.Now(); got != (logic.TimeOfDay{Seconds: 3}) {
		t.Errorf("clock: got %s, want 00:00:03", got)
	}

	cancel()
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for periodic sources to stop")
		}
	}
	if r.out.Blanks() != 1 {
		t.Errorf("expected display blanked once on exit, got %d", r.out.Blanks())
	}
}

// TestIntegrationPayloadFormat checks an event from the loop serializes as
// the MQTT clock payload.
func TestIntegrationPayloadFormat(t *testing.T) {
	r := newRig(t, script(t, logic.KeyD))
	r.pass()

	if len(r.pub.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(r.pub.Payloads))
	}
	var p mqtt.Payload
	if err := json.Unmarshal(r.pub.Payloads[0], &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.Clock.Event != "SET_ALARM_ENTER" || p.Clock.Mode != "SET_ALARM" {
		t.Errorf("unexpected payload: %+v", p.Clock)
	}
	if p.Clock.Timestamp != "2026-01-01T12:00:00Z" {
		t.Errorf("timestamp: got %s", p.Clock.Timestamp)
	}
}
