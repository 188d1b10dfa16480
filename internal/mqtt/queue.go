package mqtt

import (
	"errors"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/alarm-clock/internal/logic"
)

var (
	queueRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mqtt_queue_rejected_total",
		Help: "Messages refused because the publish queue was full or closed.",
	})

	publishFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mqtt_publish_failed_total",
		Help: "Messages the publisher returned an error for.",
	})
)

// ErrQueueFull is returned when the publish queue has no room.
var ErrQueueFull = errors.New("publish queue full")

// ErrQueueClosed is returned after Close.
var ErrQueueClosed = errors.New("publish queue closed")

type queued struct {
	event  logic.Event
	system *SystemEvent
}

// Queue hands events to another Publisher on its own goroutine, so Publish
// and PublishSystem never wait on the network. Order is preserved.
type Queue struct {
	next Publisher
	ch   chan queued
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts the delivery goroutine. size is the number of messages
// that may wait before Publish starts returning ErrQueueFull.
func NewQueue(next Publisher, size int) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		next: next,
		ch:   make(chan queued, size),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for m := range q.ch {
		var err error
		if m.system != nil {
			err = q.next.PublishSystem(*m.system)
		} else {
			err = q.next.Publish(m.event)
		}
		if err != nil {
			publishFailed.Inc()
			log.Printf("mqtt: %v", err)
		}
	}
}

func (q *Queue) enqueue(m queued) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		queueRejected.Inc()
		return ErrQueueClosed
	}
	select {
	case q.ch <- m:
		return nil
	default:
		queueRejected.Inc()
		return ErrQueueFull
	}
}

// Publish queues a clock event.
func (q *Queue) Publish(event logic.Event) error {
	return q.enqueue(queued{event: event})
}

// PublishSystem queues a system event.
func (q *Queue) PublishSystem(event SystemEvent) error {
	return q.enqueue(queued{system: &event})
}

// Close stops accepting messages, delivers what is queued, then closes the
// wrapped publisher.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	<-q.done
	return q.next.Close()
}
