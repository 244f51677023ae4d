// bed-monitor - record motion and bed occupancy from a live camera
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package events

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TheCacophonyProject/bed-monitor/activity"
	"github.com/TheCacophonyProject/bed-monitor/loglimiter"
)

const (
	DefaultQueueSize = 64
	drainTimeout     = 5 * time.Second
)

var (
	ErrQueueFull        = errors.New("delivery queue full")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// Dispatcher delivers events and activity rows from its own goroutine so
// a slow broker or bus never holds up frame processing. Deliveries are
// dropped while the queue is full.
type Dispatcher struct {
	mu     sync.Mutex
	closed bool
	jobs   chan delivery
	done   chan struct{}
	log    *loglimiter.LogLimiter

	dropped prometheus.Counter
}

type delivery struct {
	what string
	fn   func() error
}

func NewDispatcher(size int, reg prometheus.Registerer) *Dispatcher {
	d := &Dispatcher{
		jobs: make(chan delivery, size),
		done: make(chan struct{}),
		log:  loglimiter.New(minLogInterval),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "deliveries_dropped_total",
			Help:      "Events and activity rows dropped because delivery was too slow.",
		}),
	}
	if reg != nil {
		reg.MustRegister(d.dropped)
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for job := range d.jobs {
		if err := job.fn(); err != nil {
			d.log.Printf("could not deliver %s: %v", job.what, err)
		}
	}
}

func (d *Dispatcher) enqueue(what string, fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- delivery{what, fn}:
		return nil
	default:
		d.dropped.Inc()
		return ErrQueueFull
	}
}

// Close delivers what is queued, giving up after a few seconds so a dead
// broker can't hold up shutdown.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-time.After(drainTimeout):
		log.Printf("gave up delivering %d queued events", len(d.jobs))
	}
	return nil
}

// Sender returns a Sender which queues events for s.
func (d *Dispatcher) Sender(s Sender) Sender {
	return queuedSender{d: d, s: s}
}

// Mirror returns an activity mirror which queues rows for m.
func (d *Dispatcher) Mirror(m activity.Mirror) activity.Mirror {
	return queuedMirror{d: d, m: m}
}

type queuedSender struct {
	d *Dispatcher
	s Sender
}

func (q queuedSender) Send(ev Event) error {
	return q.d.enqueue(ev.Type+" event", func() error { return q.s.Send(ev) })
}

type queuedMirror struct {
	d *Dispatcher
	m activity.Mirror
}

func (q queuedMirror) Add(r activity.Row) error {
	return q.d.enqueue("activity row", func() error { return q.m.Add(r) })
}
