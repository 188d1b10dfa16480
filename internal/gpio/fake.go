package gpio

import "sync"

// Frame is the state of the key matrix for one scan: the column mask seen
// while each row is driven.
type Frame [4]uint8

// Press returns a frame with the key at (row, col) held down.
func Press(row, col int) Frame {
	var f Frame
	f[row] = 1 << col
	return f
}

// FakeMatrix is a test double that returns scripted key matrix frames.
type FakeMatrix struct {
	// Frames contains the scripted matrix states.
	// Each scan (a DriveRow(0) call) consumes the next frame.
	Frames []Frame

	// index tracks current position in Frames
	index   int
	started bool
	row     int

	// Scans counts how many scans have started.
	Scans int

	// Driven records every row passed to DriveRow.
	Driven []int

	// ReadError, if set, will be returned by Columns()
	ReadError error
}

// NewFakeMatrix creates a FakeMatrix with the given frames.
func NewFakeMatrix(frames ...Frame) *FakeMatrix {
	return &FakeMatrix{Frames: frames, row: -1}
}

// DriveRow records the row. Driving row 0 starts a new scan.
// If frames are exhausted, the last frame repeats.
func (f *FakeMatrix) DriveRow(row int) error {
	f.Driven = append(f.Driven, row)
	if row == 0 {
		if f.started && f.index < len(f.Frames)-1 {
			f.index++
		}
		f.started = true
		f.Scans++
	}
	f.row = row
	return nil
}

// Columns returns the scripted column mask for the driven row.
func (f *FakeMatrix) Columns() (uint8, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Frames) == 0 || f.row < 0 || f.row > 3 {
		return 0, nil
	}
	return f.Frames[f.index][f.row], nil
}

// Write is one recorded display write.
type Write struct {
	Position int
	Segments uint8
}

// FakeDisplay records display writes. Safe for concurrent use.
type FakeDisplay struct {
	mu     sync.Mutex
	writes []Write
	blanks int

	// ShowError, if set, will be returned by Show.
	ShowError error
}

// NewFakeDisplay creates a FakeDisplay for testing.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{}
}

// Show records the write.
func (f *FakeDisplay) Show(position int, segments uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ShowError != nil {
		return f.ShowError
	}
	f.writes = append(f.writes, Write{Position: position, Segments: segments})
	return nil
}

// Blank counts the call.
func (f *FakeDisplay) Blank() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blanks++
	return nil
}

// Writes returns a copy of the recorded writes.
func (f *FakeDisplay) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// Blanks returns how many times Blank was called.
func (f *FakeDisplay) Blanks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blanks
}

// FakeLamps records lamp writes.
type FakeLamps struct {
	// Masks contains every mask written, in order.
	Masks []uint8

	// SetError, if set, will be returned by SetLamps.
	SetError error
}

// NewFakeLamps creates a FakeLamps for testing.
func NewFakeLamps() *FakeLamps {
	return &FakeLamps{}
}

// SetLamps records the mask.
func (f *FakeLamps) SetLamps(mask uint8) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Masks = append(f.Masks, mask)
	return nil
}

// Last returns the most recent mask, or all-off if none was written.
func (f *FakeLamps) Last() uint8 {
	if len(f.Masks) == 0 {
		return 0x0F
	}
	return f.Masks[len(f.Masks)-1]
}
