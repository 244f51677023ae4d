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
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TheCacophonyProject/bed-monitor/loglimiter"
)

const (
	TypeRecordingStarted = "recordingStarted"
	TypeRecordingEnded   = "recordingEnded"
	TypeThrottle         = "throttle"

	minLogInterval = time.Minute
)

type Event struct {
	Type    string                 `json:"type"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Sender delivers events somewhere outside the process.
type Sender interface {
	Send(Event) error
}

// Listener turns recording and throttling notifications into events and
// metrics. Each recording gets an ID which is included in both its start
// and end events.
type Listener struct {
	mu          sync.Mutex
	senders     []Sender
	now         func() time.Time
	log         *loglimiter.LogLimiter
	recordingID string
	started     time.Time

	motionFrames prometheus.Counter
	recordings   prometheus.Counter
	throttled    prometheus.Counter
	recording    prometheus.Gauge
}

func NewListener(reg prometheus.Registerer, senders ...Sender) *Listener {
	l := &Listener{
		senders: senders,
		now:     time.Now,
		log:     loglimiter.New(minLogInterval),
		motionFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "motion_frames_total",
			Help:      "Frames where motion was detected.",
		}),
		recordings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "segments_started_total",
			Help:      "Video segments started.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "recordings_throttled_total",
			Help:      "Times recording was throttled.",
		}),
		recording: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bed_monitor",
			Name:      "recording",
			Help:      "1 while a segment is being written.",
		}),
	}
	if reg != nil {
		reg.MustRegister(l.motionFrames, l.recordings, l.throttled, l.recording)
	}
	return l
}

func (l *Listener) MotionDetected() {
	l.motionFrames.Inc()
}

func (l *Listener) RecordingStarted() {
	l.mu.Lock()
	l.recordingID = uuid.NewString()
	l.started = l.now()
	ev := Event{
		Type:    TypeRecordingStarted,
		Time:    l.started,
		Details: map[string]interface{}{"id": l.recordingID},
	}
	l.mu.Unlock()

	l.recordings.Inc()
	l.recording.Set(1)
	l.send(ev)
}

func (l *Listener) RecordingEnded() {
	l.mu.Lock()
	now := l.now()
	ev := Event{
		Type: TypeRecordingEnded,
		Time: now,
		Details: map[string]interface{}{
			"id":       l.recordingID,
			"duration": now.Sub(l.started).Seconds(),
		},
	}
	l.recordingID = ""
	l.mu.Unlock()

	l.recording.Set(0)
	l.send(ev)
}

func (l *Listener) WhenThrottled() {
	l.throttled.Inc()
	l.send(Event{Type: TypeThrottle, Time: l.now()})
}

func (l *Listener) send(ev Event) {
	for _, s := range l.senders {
		if err := s.Send(ev); err != nil {
			l.log.Printf("could not send %s event: %v", ev.Type, err)
		}
	}
}

// Logger is a Sender which only logs events.
type Logger struct{}

func (Logger) Send(ev Event) error {
	log.Printf("event %s %v", ev.Type, ev.Details)
	return nil
}
