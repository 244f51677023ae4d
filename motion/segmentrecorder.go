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

package motion

import (
	"errors"
	"image"

	"github.com/TheCacophonyProject/bed-monitor/frame"
	"github.com/TheCacophonyProject/bed-monitor/recorder"
)

type RecordingListener interface {
	MotionDetected()
	RecordingStarted()
	RecordingEnded()
}

// SegmentRecorder starts a recording when motion appears after a quiet
// spell, backfilling it with the frames held in the pre-roll loop, and
// stops once the hold window and the current frame are both quiet. Long
// recordings are split into segments of at most rolloverFrames frames.
//
// The frame loop must be pushed with each frame after Process has seen it.
type SegmentRecorder struct {
	loop           *FrameLoop
	recorder       recorder.Recorder
	listener       RecordingListener
	holdFrames     int
	rolloverFrames int
	isRecording    bool
	framesWritten  int
}

func NewSegmentRecorder(
	loop *FrameLoop,
	rec recorder.Recorder,
	holdFrames, rolloverFrames int,
	listener RecordingListener,
) *SegmentRecorder {
	return &SegmentRecorder{
		loop:           loop,
		recorder:       rec,
		listener:       listener,
		holdFrames:     holdFrames,
		rolloverFrames: rolloverFrames,
	}
}

// IsRecording returns true while a segment is open.
func (sr *SegmentRecorder) IsRecording() bool {
	return sr.isRecording
}

// Process updates the recording state for a newly processed frame. Errors
// from the underlying recorder are returned after the state has been
// updated; they never change when the next start or stop happens.
func (sr *SegmentRecorder) Process(pf *frame.Processed) error {
	recentMotion := sr.loop.AnyMotionInLast(sr.holdFrames)
	if pf.IsMotion && sr.listener != nil {
		sr.listener.MotionDetected()
	}

	switch {
	case pf.IsMotion && !recentMotion:
		if sr.isRecording {
			return sr.write(pf)
		}
		err := sr.startRecording(pf, true)
		if !sr.isRecording {
			return err
		}
		if writeErr := sr.write(pf); err == nil {
			err = writeErr
		}
		return err
	case recentMotion:
		if sr.isRecording {
			return sr.write(pf)
		}
	case sr.isRecording:
		return sr.stopRecording()
	}
	return nil
}

// Close finalises the open segment, if any.
func (sr *SegmentRecorder) Close() error {
	if !sr.isRecording {
		return nil
	}
	return sr.stopRecording()
}

func (sr *SegmentRecorder) write(pf *frame.Processed) error {
	var stopErr error
	if sr.rolloverFrames > 0 && sr.framesWritten >= sr.rolloverFrames {
		stopErr = sr.stopRecording()
		if err := sr.startRecording(pf, false); err != nil {
			return err
		}
	}
	if err := sr.writeFrame(pf); err != nil {
		return err
	}
	return stopErr
}

func (sr *SegmentRecorder) writeFrame(pf *frame.Processed) error {
	sr.framesWritten++
	if err := sr.recorder.WriteFrame(pf); err != nil {
		return asWriterError("write", err)
	}
	return nil
}

func (sr *SegmentRecorder) startRecording(pf *frame.Processed, withPreRoll bool) error {
	if err := sr.recorder.CheckCanRecord(); err != nil {
		return asWriterError("start", err)
	}
	size := image.Pt(pf.Image.Cols(), pf.Image.Rows())
	if err := sr.recorder.StartRecording(pf.Time, size); err != nil {
		return asWriterError("open", err)
	}

	sr.isRecording = true
	sr.framesWritten = 0
	if sr.listener != nil {
		sr.listener.RecordingStarted()
	}
	if !withPreRoll {
		return nil
	}

	// The current frame isn't in the loop yet so it is written after.
	var firstErr error
	for _, f := range sr.loop.Snapshot() {
		if err := sr.writeFrame(f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (sr *SegmentRecorder) stopRecording() error {
	if sr.listener != nil {
		sr.listener.RecordingEnded()
	}
	err := sr.recorder.StopRecording()

	sr.isRecording = false
	sr.framesWritten = 0
	// A recording starting soon after won't repeat frames from this one.
	sr.loop.SetAsOldest()

	if err != nil {
		return asWriterError("close", err)
	}
	return nil
}

func asWriterError(op string, err error) error {
	var writerErr *recorder.WriterError
	if errors.As(err, &writerErr) {
		return err
	}
	return &recorder.WriterError{Op: op, Err: err}
}
