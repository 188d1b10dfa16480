//go:build !linux

package gpio

import "errors"

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(chipName string, pins Pins) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// DriveRow is not implemented on non-Linux platforms.
func (b *RealBoard) DriveRow(row int) error {
	return errors.New("gpio: not supported")
}

// Columns is not implemented on non-Linux platforms.
func (b *RealBoard) Columns() (uint8, error) {
	return 0, errors.New("gpio: not supported")
}

// Show is not implemented on non-Linux platforms.
func (b *RealBoard) Show(position int, segments uint8) error {
	return errors.New("gpio: not supported")
}

// Blank is not implemented on non-Linux platforms.
func (b *RealBoard) Blank() error {
	return errors.New("gpio: not supported")
}

// SetLamps is not implemented on non-Linux platforms.
func (b *RealBoard) SetLamps(mask uint8) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
