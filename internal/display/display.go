// Package display multiplexes the hours and minutes onto a 4-digit 7-segment
// display, one digit per refresh.
package display

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/alarm-clock/internal/gpio"
	"github.com/sweeney/alarm-clock/internal/shared"
)

// Positions is the number of digits on the display.
const Positions = 4

// GlyphTable holds the active-low segment patterns for 0-9, A-F and blank.
type GlyphTable [17]uint8

// Blank is the index of the blank glyph.
const Blank = 16

// DefaultGlyphs is wired as bit 0 = segment a through bit 7 = dp.
var DefaultGlyphs = GlyphTable{
	0b11000000, // 0
	0b11111001, // 1
	0b10100100, // 2
	0b10110000, // 3
	0b10011001, // 4
	0b10010010, // 5
	0b10000010, // 6
	0b11011000, // 7
	0b10000000, // 8
	0b10011000, // 9
	0b10001000, // A
	0b10000011, // b
	0b10100111, // c
	0b10110001, // d
	0b10000110, // E
	0b10001110, // F
	0b11111111, // blank
}

var (
	refreshCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_refreshes_total",
		Help: "count of digit refreshes written to the display",
	})

	refreshErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_refresh_errors_total",
		Help: "count of digit refreshes that failed to write",
	})
)

// Multiplexer renders one digit position per Fire.
type Multiplexer struct {
	sel    shared.Selector
	out    gpio.Display
	glyphs GlyphTable

	pos int
}

// New creates a multiplexer reading from sel and writing to out.
func New(sel shared.Selector, out gpio.Display, glyphs GlyphTable) *Multiplexer {
	return &Multiplexer{sel: sel, out: out, glyphs: glyphs}
}

// Digit returns the decimal digit shown at position: 0 and 1 are the ones and
// tens of minutes, 2 and 3 the ones and tens of hours.
func Digit(position int, hours, minutes uint8) uint8 {
	switch position {
	case 0:
		return minutes % 10
	case 1:
		return (minutes / 10) % 10
	case 2:
		return hours % 10
	default:
		return (hours / 10) % 10
	}
}

// Fire renders the current position and advances to the next. The selection
// is re-read on every call, so changes show on the next refresh.
func (m *Multiplexer) Fire() error {
	pos := m.pos
	m.pos = (m.pos + 1) % Positions

	hours, minutes := m.sel.Selected()
	digit := Digit(pos, hours, minutes)
	if err := m.out.Show(pos, m.glyphs[digit]); err != nil {
		refreshErrorCounter.Inc()
		return fmt.Errorf("show digit %d at position %d: %w", digit, pos, err)
	}
	refreshCounter.Inc()
	return nil
}

// Run calls Fire every period until the context is cancelled, then blanks the
// display. Write failures are logged once per failure streak.
func (m *Multiplexer) Run(ctx context.Context, clock clockwork.Clock, period time.Duration) error {
	ticker := clock.NewTicker(period)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			if err := m.out.Blank(); err != nil {
				log.Printf("display: blank on exit: %v", err)
			}
			return fmt.Errorf("display refresh: %w", ctx.Err())
		case <-ticker.Chan():
		}

		err := m.Fire()
		switch {
		case err != nil && !failing:
			log.Printf("display: %v", err)
			failing = true
		case err == nil && failing:
			log.Printf("display: refresh recovered")
			failing = false
		}
	}
}
