//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealBoard drives actual hardware using Linux GPIO character device.
type RealBoard struct {
	chip      *gpiocdev.Chip
	rows      *gpiocdev.Lines
	columns   *gpiocdev.Lines
	segments  *gpiocdev.Lines
	positions *gpiocdev.Lines
	lamps     *gpiocdev.Lines
}

var (
	_ Matrix  = (*RealBoard)(nil)
	_ Display = (*RealBoard)(nil)
	_ Lamps   = (*RealBoard)(nil)
)

// NewRealBoard requests every line the clock uses from the named chip.
// All outputs start inactive (high), columns are inputs with pull-up.
func NewRealBoard(chipName string, pins Pins) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("alarm-clock"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	b := &RealBoard{chip: chip}

	if b.rows, err = chip.RequestLines(pins.Rows[:], gpiocdev.AsOutput(ones(4)...)); err != nil {
		b.Close()
		return nil, fmt.Errorf("request row pins %v: %w", pins.Rows, err)
	}
	if b.columns, err = chip.RequestLines(pins.Columns[:], gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		b.Close()
		return nil, fmt.Errorf("request column pins %v: %w", pins.Columns, err)
	}
	if b.segments, err = chip.RequestLines(pins.Segments[:], gpiocdev.AsOutput(ones(8)...)); err != nil {
		b.Close()
		return nil, fmt.Errorf("request segment pins %v: %w", pins.Segments, err)
	}
	if b.positions, err = chip.RequestLines(pins.Positions[:], gpiocdev.AsOutput(ones(4)...)); err != nil {
		b.Close()
		return nil, fmt.Errorf("request position pins %v: %w", pins.Positions, err)
	}
	if b.lamps, err = chip.RequestLines(pins.Lamps[:], gpiocdev.AsOutput(ones(4)...)); err != nil {
		b.Close()
		return nil, fmt.Errorf("request lamp pins %v: %w", pins.Lamps, err)
	}
	return b, nil
}

// DriveRow pulls row low and holds the others high.
func (b *RealBoard) DriveRow(row int) error {
	vals := ones(4)
	if row >= 0 && row < len(vals) {
		vals[row] = 0
	}
	if err := b.rows.SetValues(vals); err != nil {
		return fmt.Errorf("drive row %d: %w", row, err)
	}
	return nil
}

// Columns reads the sense lines. A closed key pulls its column low.
func (b *RealBoard) Columns() (uint8, error) {
	vals := make([]int, 4)
	if err := b.columns.Values(vals); err != nil {
		return 0, fmt.Errorf("read columns: %w", err)
	}
	var mask uint8
	for i, v := range vals {
		if v == 0 {
			mask |= 1 << i
		}
	}
	return mask, nil
}

// Show deselects all positions, writes the segments, then selects position.
// Deselecting first keeps the previous digit from ghosting onto the new one.
func (b *RealBoard) Show(position int, segments uint8) error {
	if err := b.positions.SetValues(ones(4)); err != nil {
		return fmt.Errorf("deselect positions: %w", err)
	}
	if err := b.segments.SetValues(bits(segments, 8)); err != nil {
		return fmt.Errorf("write segments: %w", err)
	}
	sel := ones(4)
	if position >= 0 && position < len(sel) {
		sel[position] = 0
	}
	if err := b.positions.SetValues(sel); err != nil {
		return fmt.Errorf("select position %d: %w", position, err)
	}
	return nil
}

// Blank turns every position and segment off.
func (b *RealBoard) Blank() error {
	if err := b.positions.SetValues(ones(4)); err != nil {
		return fmt.Errorf("deselect positions: %w", err)
	}
	if err := b.segments.SetValues(ones(8)); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	return nil
}

// SetLamps writes the four lamp lines in a single request.
func (b *RealBoard) SetLamps(mask uint8) error {
	if err := b.lamps.SetValues(bits(mask, 4)); err != nil {
		return fmt.Errorf("write lamps: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// Reconfigures outputs as inputs (matching Pi boot defaults) before closing so
// the display and lamps are not left driven after exit.
func (b *RealBoard) Close() error {
	var errs []error

	for _, l := range []struct {
		name  string
		lines *gpiocdev.Lines
	}{
		{"row", b.rows},
		{"column", b.columns},
		{"segment", b.segments},
		{"position", b.positions},
		{"lamp", b.lamps},
	} {
		if l.lines == nil {
			continue
		}
		if err := l.lines.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pins: %w", l.name, err))
		}
		if err := l.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pins: %w", l.name, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func ones(n int) []int {
	vals := make([]int, n)
	for i := range vals {
		vals[i] = 1
	}
	return vals
}

// bits expands the low n bits of v into line values, bit 0 first.
func bits(v uint8, n int) []int {
	vals := make([]int, n)
	for i := range vals {
		vals[i] = int(v>>i) & 1
	}
	return vals
}
