package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/alarm-clock/internal/logic"
)

// gatedPublisher holds every publish until gate is closed.
type gatedPublisher struct {
	*FakePublisher
	gate chan struct{}
}

func (g *gatedPublisher) Publish(event logic.Event) error {
	<-g.gate
	return g.FakePublisher.Publish(event)
}

func (g *gatedPublisher) PublishSystem(event SystemEvent) error {
	<-g.gate
	return g.FakePublisher.PublishSystem(event)
}

func TestQueuePreservesOrder(t *testing.T) {
	f := NewFakePublisher()
	q := NewQueue(f, 8)

	q.PublishSystem(SystemEvent{Event: "STARTUP"})
	q.Publish(clockEvent(logic.EventSetClockEnter))
	q.Publish(clockEvent(logic.EventSetClockExit))
	q.PublishSystem(SystemEvent{Event: "SHUTDOWN"})
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := []string{"system:STARTUP", "clock:SET_CLOCK_ENTER", "clock:SET_CLOCK_EXIT", "system:SHUTDOWN"}
	if !equalStrings(f.Order, want) {
		t.Errorf("order: got %v, want %v", f.Order, want)
	}
	if !f.Closed {
		t.Error("Close should close the wrapped publisher")
	}
}

func TestQueueDoesNotWaitForPublisher(t *testing.T) {
	g := &gatedPublisher{FakePublisher: NewFakePublisher(), gate: make(chan struct{})}
	q := NewQueue(g, 8)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 4; i++ {
			q.Publish(clockEvent(logic.EventAlarmRinging))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked behind a stalled publisher")
	}

	close(g.gate)
	q.Close()
	if len(g.Events) != 4 {
		t.Errorf("expected 4 delivered after release, got %d", len(g.Events))
	}
}

func TestQueueFull(t *testing.T) {
	g := &gatedPublisher{FakePublisher: NewFakePublisher(), gate: make(chan struct{})}
	q := NewQueue(g, 2)

	// One in flight at the gate plus two queued. Allow the worker to pick
	// up the first before filling.
	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = q.Publish(clockEvent(logic.EventAlarmRinging))
		time.Sleep(time.Millisecond)
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(g.gate)
	q.Close()
}

func TestQueueKeepsDeliveringAfterError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystemError = errors.New("broker down")
	q := NewQueue(f, 8)

	q.PublishSystem(SystemEvent{Event: "HEARTBEAT"})
	q.Publish(clockEvent(logic.EventAlarmDismissed))
	q.Close()

	if len(f.Events) != 1 || f.Events[0].Type != logic.EventAlarmDismissed {
		t.Errorf("expected the clock event after a failed system event, got %v", f.Order)
	}
}

func TestQueueClosed(t *testing.T) {
	f := NewFakePublisher()
	q := NewQueue(f, 8)
	q.Close()

	if err := q.Publish(clockEvent(logic.EventAlarmRinging)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Publish after Close: got %v, want ErrQueueClosed", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
