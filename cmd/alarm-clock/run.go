package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/alarm-clock/internal/config"
	"github.com/sweeney/alarm-clock/internal/display"
	"github.com/sweeney/alarm-clock/internal/gpio"
	"github.com/sweeney/alarm-clock/internal/keypad"
	"github.com/sweeney/alarm-clock/internal/logic"
	"github.com/sweeney/alarm-clock/internal/mqtt"
	"github.com/sweeney/alarm-clock/internal/shared"
	"github.com/sweeney/alarm-clock/internal/status"
	"github.com/sweeney/alarm-clock/internal/timebase"
	"github.com/sweeney/alarm-clock/internal/web"
)

var (
	keyPressCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "key_presses_total",
		Help: "count of key presses handled by the main loop",
	})

	eventCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clock_events_total",
		Help: "count of clock events by type",
	}, []string{"event"})
)

// publishQueueSize bounds how many events the loop can hand off before the
// publisher goroutine catches up.
const publishQueueSize = 64

func run(cfg *config.Config) error {
	board, err := gpio.NewRealBoard(cfg.GPIO.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	var broker mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Buffer)
		broker, mqttStatus = p, p
	}
	// The loop only enqueues; network waits happen on the queue goroutine.
	publisher := mqtt.NewQueue(broker, publishQueueSize)
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:       cfg.GPIO.Chip,
		TickMs:     int64(cfg.Timing.TickMs),
		RefreshUs:  int64(cfg.Timing.RefreshUs),
		PollMs:     int64(cfg.Timing.PollMs),
		HeartbeatS: int64(cfg.Timing.HeartbeatS),
		Broker:     cfg.MQTT.Broker,
		HTTPAddr:   cfg.HTTP.Addr,
	})

	// Both the wait-for-release in the loop and the periodic sources stop on
	// the first signal; the loop itself reads sigCh to learn which one.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var regs shared.Registers
	clock := clockwork.NewRealClock()
	tb := timebase.New(&regs)
	mux := display.New(&regs, board, cfg.Glyphs())

	workCtx, cancelWork := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tb.Run(workCtx, clock, cfg.Tick())
	}()
	go func() {
		defer wg.Done()
		mux.Run(workCtx, clock, cfg.Refresh())
	}()
	// Blank the display only after the loop has stopped writing state.
	defer func() {
		cancelWork()
		wg.Wait()
	}()

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	d := &daemon{
		clock:      logic.NewClock(time.Now()),
		scanner:    keypad.NewScanner(board, cfg.KeyMap(), cfg.Settle(), clock),
		lamps:      board,
		regs:       &regs,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		missed:     tb.Missed,
		heartbeat:  cfg.Heartbeat(),
		now:        time.Now,
	}
	d.startup()

	log.Printf("started: tick=%v refresh=%v poll=%v broker=%q heartbeat=%v",
		cfg.Tick(), cfg.Refresh(), cfg.Poll(), cfg.MQTT.Broker, cfg.Heartbeat())

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	return d.runLoop(ctx, ticker.C, sigCh)
}

// daemon is the cooperative main loop and everything it writes to.
type daemon struct {
	clock      *logic.Clock
	scanner    *keypad.Scanner
	lamps      gpio.Lamps
	regs       *shared.Registers
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	missed     func() int64
	heartbeat  time.Duration
	now        func() time.Time
}

// startup publishes the initial state and the retained STARTUP event.
func (d *daemon) startup() {
	lamps := d.publishState(d.regs.Heartbeat())
	d.tracker.Update(d.clock, lamps)
	d.updateMQTT()

	event := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "STARTUP", ""),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}
}

func (d *daemon) runLoop(ctx context.Context, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.shutdown(signalName(s))
			return nil

		case <-tick:
			d.step(ctx)
		}
	}
}

// step runs one pass of the cooperative loop: keypad, tick, outputs.
func (d *daemon) step(ctx context.Context) {
	t := d.now()
	var events []logic.Event

	key, err := d.scanner.Scan()
	if err != nil {
		log.Printf("keypad scan error: %v", err)
		key = logic.NoKey
	}
	if key != logic.NoKey {
		keyPressCounter.Inc()
		evs, debounce := d.clock.HandleKey(key, t)
		events = append(events, evs...)
		// Show the edit before blocking on the release.
		d.publishState(d.regs.Heartbeat())
		if debounce {
			if err := d.scanner.WaitForRelease(ctx); err != nil {
				log.Printf("keypad: %v", err)
			}
		}
	}

	if d.regs.ConsumeTick() {
		events = append(events, d.clock.Tick(t)...)
	}

	lamps := d.publishState(d.regs.Heartbeat())

	for _, event := range events {
		log.Printf("event: %s (time=%s alarm=%s mode=%s)", event.Type, event.Time, event.Alarm, event.Mode)
		eventCounter.WithLabelValues(string(event.Type)).Inc()
		if err := d.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}
	}

	d.tracker.Update(d.clock, lamps)
	d.tracker.SetMissedTicks(d.missed())
	d.updateMQTT()

	if hb := d.clock.CheckHeartbeat(t, d.heartbeat); hb != nil {
		log.Printf("heartbeat: uptime=%v keys=%d clock_sets=%d alarm_sets=%d rung=%d dismissed=%d",
			hb.Uptime, hb.Counts.KeyPresses, hb.Counts.ClockSets, hb.Counts.AlarmSets,
			hb.Counts.AlarmsRung, hb.Counts.AlarmsDismissed)
		event := mqtt.SystemEvent{
			Timestamp:  hb.Timestamp,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", ""),
		}
		if err := d.publisher.PublishSystem(event); err != nil {
			log.Printf("heartbeat publish error: %v", err)
		}
	}
}

// publishState copies the clock into the shared registers for the display
// and drives the lamps. It returns the lamp mask written.
func (d *daemon) publishState(heartbeat bool) uint8 {
	d.regs.Publish(d.clock.Mode(), d.clock.Now(), d.clock.Alarm())
	lamps := logic.Indicators(d.clock.Mode(), d.clock.Ringing(), heartbeat)
	if err := d.lamps.SetLamps(lamps); err != nil {
		log.Printf("lamps: %v", err)
	}
	return lamps
}

func (d *daemon) updateMQTT() {
	d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	d.tracker.SetMQTTBuffered(d.mqttStatus.Buffered())
}

func (d *daemon) shutdown(reason string) {
	d.updateMQTT()
	event := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", reason),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}

	if err := d.lamps.SetLamps(logic.LampsOff); err != nil {
		log.Printf("lamps off: %v", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
