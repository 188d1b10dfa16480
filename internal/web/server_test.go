package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/alarm-clock/internal/logic"
	"github.com/sweeney/alarm-clock/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Chip:       "gpiochip0",
		TickMs:     1000,
		RefreshUs:  1000,
		PollMs:     10,
		HeartbeatS: 900,
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

// settingAlarmClock returns a clock in alarm-setting mode showing 06:30.
func settingAlarmClock() *logic.Clock {
	c := logic.NewClock(time.Now())
	c.HandleKey(logic.KeyD, time.Now())
	for i := 0; i < 6; i++ {
		c.HandleKey(logic.KeyA, time.Now())
	}
	for i := 0; i < 30; i++ {
		c.HandleKey(logic.KeyB, time.Now())
	}
	return c
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	c := settingAlarmClock()
	tr.Update(c, logic.Indicators(c.Mode(), c.Ringing(), false))
	tr.SetMQTTConnected(true)
	tr.SetMQTTBuffered(2)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Mode != "SET_ALARM" {
		t.Errorf("Mode: got %q, want SET_ALARM", sj.Status.Mode)
	}
	if sj.Status.Alarm != "06:30" {
		t.Errorf("Alarm: got %q, want 06:30", sj.Status.Alarm)
	}
	if sj.Status.Armed {
		t.Error("alarm should not be armed while still being set")
	}
	if !sj.Status.Lamps.SettingAlarm || sj.Status.Lamps.SettingClock {
		t.Errorf("Lamps: got %+v", sj.Status.Lamps)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Buffered != 2 {
		t.Errorf("MQTT.Buffered: got %d, want 2", sj.Status.MQTT.Buffered)
	}
	if sj.Status.Counts.KeyPresses != 37 {
		t.Errorf("Counts.KeyPresses: got %d, want 37", sj.Status.Counts.KeyPresses)
	}
	if sj.Status.Config.PollMs != 10 {
		t.Errorf("Config.PollMs: got %d, want 10", sj.Status.Config.PollMs)
	}
	if sj.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Config.Broker: got %q", sj.Status.Config.Broker)
	}
}

func TestJSONInitialState(t *testing.T) {
	ts, _ := newTestServer(t)
	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Time != "00:00:00" {
		t.Errorf("Time: got %q, want 00:00:00", sj.Status.Time)
	}
	if sj.Status.Mode != "NORMAL" {
		t.Errorf("Mode: got %q, want NORMAL", sj.Status.Mode)
	}
	if sj.Status.Lamps != (status.LampsJSON{}) {
		t.Errorf("expected all lamps off, got %+v", sj.Status.Lamps)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	c := settingAlarmClock()
	tr.Update(c, logic.Indicators(c.Mode(), c.Ringing(), true))

	resp, body := getBody(t, ts.URL+"/")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{"Alarm Clock", "SET_ALARM", "06:30 (disarmed)", "tcp://192.168.1.200:1883"} {
		if !strings.Contains(body, want) {
			t.Errorf("HTML should contain %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/index.html")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := getBody(t, ts.URL+"/metrics")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected default Go collectors in /metrics")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.Mode != "NORMAL" {
		t.Errorf("expected NORMAL initially, got %q", sj.Status.Mode)
	}

	c := logic.NewClock(time.Now())
	c.HandleKey(logic.KeyC, time.Now())
	tr.Update(c, logic.Indicators(c.Mode(), false, false))
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Mode != "SET_CLOCK" {
		t.Errorf("Mode: got %q, want SET_CLOCK", sj.Status.Mode)
	}
	if !sj.Status.Lamps.SettingClock {
		t.Error("expected setting-clock lamp lit")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
