// Package gpio drives the keypad matrix, the multiplexed display and the
// indicator lamps with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Matrix is the electrical side of the 4x4 keypad.
type Matrix interface {
	// DriveRow makes row the only active scan line. A negative row releases
	// all scan lines.
	DriveRow(row int) error

	// Columns returns the sense lines as a bitmask, bit n set when column n
	// reads active (key closed against the driven row).
	Columns() (uint8, error)
}

// Display is the segment and position-select side of the 7-segment display.
type Display interface {
	// Show writes the raw segment pattern and selects position, leaving every
	// other position deselected. Segment bits are active-low as wired.
	Show(position int, segments uint8) error

	// Blank deselects every position.
	Blank() error
}

// Lamps drives the four indicator lamps.
type Lamps interface {
	// SetLamps writes all four lamp lines at once. Bit n drives lamp n;
	// the lamps are active-low.
	SetLamps(mask uint8) error
}

// Pins lists the line offsets for the board (BCM numbering).
type Pins struct {
	Rows      [4]int
	Columns   [4]int
	Segments  [8]int // a, b, c, d, e, f, g, dp
	Positions [4]int // ones of minutes first
	Lamps     [4]int // alarm, set alarm, set clock, heartbeat
}

// DefaultChip is the GPIO character device the board is wired to.
const DefaultChip = "gpiochip0"

// DefaultPins matches the reference wiring on a Raspberry Pi header.
var DefaultPins = Pins{
	Rows:      [4]int{5, 6, 13, 19},
	Columns:   [4]int{12, 16, 20, 21},
	Segments:  [8]int{2, 3, 4, 17, 27, 22, 10, 9},
	Positions: [4]int{11, 0, 1, 7},
	Lamps:     [4]int{14, 15, 18, 23},
}
