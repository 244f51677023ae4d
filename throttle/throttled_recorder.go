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

package throttle

import (
	"errors"
	"image"
	"log"
	"time"

	"github.com/juju/ratelimit"

	"github.com/TheCacophonyProject/bed-monitor/frame"
	"github.com/TheCacophonyProject/bed-monitor/recorder"
)

// ErrThrottled is returned by StartRecording when there isn't enough
// footage left in the bucket for a minimum length recording.
var ErrThrottled = errors.New("recording throttled")

type ThrottledEventListener interface {
	WhenThrottled()
}

// ThrottledRecorder caps how much footage is written when motion never
// settles, such as a flickering lamp or a fan in view. Each frame written
// takes a token from a bucket holding bucket-size of footage, and the
// bucket gets min-secs of footage back every min-refill.
type ThrottledRecorder struct {
	base      recorder.Recorder
	listener  ThrottledEventListener
	frames    *ratelimit.Bucket
	minFrames int64
	writing   bool
}

func NewThrottledRecorder(
	base recorder.Recorder,
	conf *ThrottlerConfig,
	fps int,
	listener ThrottledEventListener,
) *ThrottledRecorder {
	return newWithClock(base, conf, fps, listener, realClock{})
}

func newWithClock(
	base recorder.Recorder,
	conf *ThrottlerConfig,
	fps int,
	listener ThrottledEventListener,
	clock ratelimit.Clock,
) *ThrottledRecorder {
	capacity := int64(conf.BucketSize.Seconds() * float64(fps))
	minFrames := int64(conf.MinSecs * fps)
	if minFrames > capacity {
		log.Printf("min-secs (%ds) is longer than bucket-size (%s), nothing will be recorded",
			conf.MinSecs, conf.BucketSize)
	}
	if listener == nil {
		listener = nopListener{}
	}
	rate := float64(minFrames) / conf.MinRefill.Seconds()
	return &ThrottledRecorder{
		base:      base,
		listener:  listener,
		frames:    ratelimit.NewBucketWithRateAndClock(rate, capacity, clock),
		minFrames: minFrames,
	}
}

func (tr *ThrottledRecorder) CheckCanRecord() error {
	return tr.base.CheckCanRecord()
}

func (tr *ThrottledRecorder) StartRecording(start time.Time, size image.Point) error {
	if err := tr.resume(start, size); err != nil {
		return err
	}
	if !tr.writing {
		tr.throttle()
		return ErrThrottled
	}
	return nil
}

// WriteFrame drops frames while throttled. If motion is still going when
// the bucket has refilled, a new segment is started at this frame.
func (tr *ThrottledRecorder) WriteFrame(pf *frame.Processed) error {
	if !tr.writing {
		size := image.Pt(pf.Image.Cols(), pf.Image.Rows())
		if err := tr.resume(pf.Time, size); err != nil || !tr.writing {
			return err
		}
	}
	if tr.frames.TakeAvailable(1) == 0 {
		tr.throttle()
		return tr.closeSegment()
	}
	return tr.base.WriteFrame(pf)
}

func (tr *ThrottledRecorder) StopRecording() error {
	return tr.closeSegment()
}

func (tr *ThrottledRecorder) resume(start time.Time, size image.Point) error {
	if tr.frames.Available() < tr.minFrames {
		return nil
	}
	if err := tr.base.StartRecording(start, size); err != nil {
		return err
	}
	tr.writing = true
	return nil
}

func (tr *ThrottledRecorder) closeSegment() error {
	if !tr.writing {
		return nil
	}
	tr.writing = false
	return tr.base.StopRecording()
}

func (tr *ThrottledRecorder) throttle() {
	log.Print("recording throttled")
	tr.listener.WhenThrottled()
}

type nopListener struct{}

func (nopListener) WhenThrottled() {}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
