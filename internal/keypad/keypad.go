// Package keypad scans the 4x4 key matrix.
package keypad

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/alarm-clock/internal/gpio"
	"github.com/sweeney/alarm-clock/internal/logic"
)

// KeyMap maps a (row, column) contact to a key id.
type KeyMap [4][4]logic.Key

// DefaultKeyMap is the layout of the membrane keypad on the reference board.
//
//	row 0: 1 4 7 *
//	row 1: 2 5 8 0
//	row 2: 3 6 9 #
//	row 3: A B C D
var DefaultKeyMap = KeyMap{
	{1, 4, 7, logic.KeyStar},
	{2, 5, 8, 0},
	{3, 6, 9, logic.KeyHash},
	{logic.KeyA, logic.KeyB, logic.KeyC, logic.KeyD},
}

// Validate checks that every entry is a key id 0-15.
func (m KeyMap) Validate() error {
	for r, row := range m {
		for c, k := range row {
			if k > 15 {
				return fmt.Errorf("keypad: key at row %d column %d is %d, want 0-15", r, c, k)
			}
		}
	}
	return nil
}

// Scanner reads key presses from a matrix. It keeps no state between scans.
type Scanner struct {
	matrix gpio.Matrix
	keys   KeyMap
	settle time.Duration
	clock  clockwork.Clock
}

// NewScanner creates a scanner. settle is the pause after driving a row before
// reading the columns; zero skips the pause.
func NewScanner(m gpio.Matrix, keys KeyMap, settle time.Duration, clock clockwork.Clock) *Scanner {
	return &Scanner{
		matrix: m,
		keys:   keys,
		settle: settle,
		clock:  clock,
	}
}

// Scan returns the first pressed key, or logic.NoKey. Rows are driven in
// order 0-3 and columns checked 0-3, so with several keys closed the lowest
// row, then the lowest column, wins.
func (s *Scanner) Scan() (logic.Key, error) {
	key, err := s.scanRows()
	if rerr := s.matrix.DriveRow(-1); rerr != nil && err == nil {
		err = fmt.Errorf("release rows: %w", rerr)
	}
	if err != nil {
		return logic.NoKey, err
	}
	return key, nil
}

func (s *Scanner) scanRows() (logic.Key, error) {
	for r := 0; r < 4; r++ {
		if err := s.matrix.DriveRow(r); err != nil {
			return logic.NoKey, fmt.Errorf("scan row %d: %w", r, err)
		}
		if s.settle > 0 {
			s.clock.Sleep(s.settle)
		}
		cols, err := s.matrix.Columns()
		if err != nil {
			return logic.NoKey, fmt.Errorf("scan row %d: %w", r, err)
		}
		for c := 0; c < 4; c++ {
			if cols&(1<<c) != 0 {
				return s.keys[r][c], nil
			}
		}
	}
	return logic.NoKey, nil
}

// WaitForRelease polls Scan until no key is pressed. There is no timeout: a
// mechanically stuck key blocks here until ctx is cancelled.
func (s *Scanner) WaitForRelease(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for key release: %w", ctx.Err())
		default:
		}
		key, err := s.Scan()
		if err != nil {
			return err
		}
		if key == logic.NoKey {
			return nil
		}
	}
}
