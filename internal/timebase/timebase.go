// Package timebase produces the one-second tick and the 1 Hz heartbeat.
package timebase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/alarm-clock/internal/shared"
)

// Period is the nominal tick period.
const Period = time.Second

var (
	ticksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticks_total",
		Help: "count of one-second ticks generated",
	})

	missedTicksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "missed_ticks_total",
		Help: "count of ticks that were generated but never consumed by the main loop",
	})
)

// TimeBase raises the tick-pending flag and toggles the heartbeat each period.
type TimeBase struct {
	flags  shared.FlagSetter
	missed atomic.Int64
}

// New creates a time base writing to flags.
func New(flags shared.FlagSetter) *TimeBase {
	return &TimeBase{flags: flags}
}

// Fire handles one period. If the main loop has not consumed the previous
// tick the second is lost; this is counted but not corrected.
func (tb *TimeBase) Fire() {
	tb.flags.ToggleHeartbeat()
	ticksCounter.Inc()
	if !tb.flags.SetTickPending() {
		tb.missed.Add(1)
		missedTicksCounter.Inc()
	}
}

// Missed returns how many ticks were dropped since startup.
func (tb *TimeBase) Missed() int64 {
	return tb.missed.Load()
}

// Run calls Fire every period until the context is cancelled.
func (tb *TimeBase) Run(ctx context.Context, clock clockwork.Clock, period time.Duration) error {
	ticker := clock.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("time base: %w", ctx.Err())
		case <-ticker.Chan():
			tb.Fire()
		}
	}
}
