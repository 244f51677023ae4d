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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/bed-monitor/frame"
	"github.com/TheCacophonyProject/bed-monitor/recorder"
)

type TestRecorder struct {
	current         []int
	segments        [][]int
	starts          []time.Time
	recording       bool
	checks          int
	CanRecordReturn error
	StartReturn     error
	WriteReturn     error
}

func (tr *TestRecorder) CheckCanRecord() error {
	tr.checks++
	return tr.CanRecordReturn
}

func (tr *TestRecorder) StartRecording(start time.Time, size image.Point) error {
	if tr.StartReturn != nil {
		return tr.StartReturn
	}
	tr.recording = true
	tr.current = []int{}
	tr.starts = append(tr.starts, start)
	return nil
}

func (tr *TestRecorder) WriteFrame(pf *frame.Processed) error {
	if !tr.recording {
		return errors.New("write while not recording")
	}
	tr.current = append(tr.current, pf.Seq)
	return tr.WriteReturn
}

func (tr *TestRecorder) StopRecording() error {
	if tr.recording {
		tr.segments = append(tr.segments, tr.current)
	}
	tr.recording = false
	tr.current = nil
	return nil
}

type TestListener struct {
	motion  int
	started int
	ended   int
}

func (tl *TestListener) MotionDetected()   { tl.motion++ }
func (tl *TestListener) RecordingStarted() { tl.started++ }
func (tl *TestListener) RecordingEnded()   { tl.ended++ }

func FramesFrom(start, end int) []int {
	slice := make([]int, end-start+1)
	for i := 0; i < end-start+1; i++ {
		slice[i] = i + start
	}
	return slice
}

func SetupTest(t *testing.T, loopSize, holdFrames, rolloverFrames int) (*TestRecorder, *TestListener, *SegmentRecorder, *TestFrameMaker) {
	rec := new(TestRecorder)
	listener := new(TestListener)
	loop := NewFrameLoop(loopSize)
	t.Cleanup(loop.Close)

	sr := NewSegmentRecorder(loop, rec, holdFrames, rollover(rolloverFrames), listener)
	return rec, listener, sr, MakeTestFrameMaker(loop, sr)
}

func rollover(frames int) int {
	if frames == 0 {
		return 1000
	}
	return frames
}

func TestRecorderNotTriggeredWithoutMotion(t *testing.T) {
	rec, listener, sr, maker := SetupTest(t, 8, 1, 0)
	maker.AddStillFrames(30)

	assert.False(t, sr.IsRecording())
	assert.Empty(t, rec.segments)
	assert.Equal(t, 0, listener.started)
	assert.Equal(t, 0, rec.checks)
}

func TestFlagSequenceMakesOneSegment(t *testing.T) {
	rec, listener, sr, maker := SetupTest(t, 8, 1, 0)
	maker.AddSequence(false, false, false, true, true)
	assert.True(t, sr.IsRecording())
	require.Len(t, rec.starts, 1)
	assert.Equal(t, makeProcessed(3, true).Time, rec.starts[0])

	maker.AddSequence(false)
	assert.True(t, sr.IsRecording())

	maker.AddSequence(false)
	assert.False(t, sr.IsRecording())

	maker.AddSequence(false)
	assert.Equal(t, [][]int{FramesFrom(0, 5)}, rec.segments)
	assert.Equal(t, 1, listener.started)
	assert.Equal(t, 1, listener.ended)
	assert.Equal(t, 2, listener.motion)
	assert.Empty(t, maker.Errors())
}

func TestHoldWindowCoversWholeLoop(t *testing.T) {
	rec, _, sr, maker := SetupTest(t, 5, 5, 0)
	maker.AddStillFrames(5).AddMotionFrames(1).AddStillFrames(5)
	assert.True(t, sr.IsRecording())

	maker.AddStillFrames(1)
	assert.False(t, sr.IsRecording())
	assert.Equal(t, [][]int{FramesFrom(0, 10)}, rec.segments)
}

func TestPreRollLimitedToLoopSize(t *testing.T) {
	rec, _, _, maker := SetupTest(t, 4, 1, 0)
	maker.AddStillFrames(20).AddMotionFrames(1).AddStillFrames(3)
	assert.Equal(t, [][]int{FramesFrom(16, 21)}, rec.segments)
}

func TestRolloverSplitsSegments(t *testing.T) {
	rec, listener, sr, maker := SetupTest(t, 8, 1, 100)
	maker.AddMotionFrames(250)
	require.NoError(t, sr.Close())

	require.Len(t, rec.segments, 3)
	assert.Equal(t, FramesFrom(0, 99), rec.segments[0])
	assert.Equal(t, FramesFrom(100, 199), rec.segments[1])
	assert.Equal(t, FramesFrom(200, 249), rec.segments[2])
	assert.Equal(t, []time.Time{
		makeProcessed(0, true).Time,
		makeProcessed(100, true).Time,
		makeProcessed(200, true).Time,
	}, rec.starts)
	assert.Equal(t, 3, listener.started)
	assert.Equal(t, 3, listener.ended)
}

func TestRolloverCountsPreRoll(t *testing.T) {
	rec, _, sr, maker := SetupTest(t, 8, 1, 10)
	maker.AddStillFrames(8).AddMotionFrames(5)
	require.NoError(t, sr.Close())

	require.Len(t, rec.segments, 2)
	assert.Equal(t, FramesFrom(0, 9), rec.segments[0])
	assert.Equal(t, FramesFrom(10, 12), rec.segments[1])
}

func TestMotionWhileRecordingDoesntStartAnotherSegment(t *testing.T) {
	rec, listener, sr, maker := SetupTest(t, 8, 1, 0)
	maker.AddSequence(true, false, true)
	assert.True(t, sr.IsRecording())
	assert.Equal(t, 1, listener.started)

	require.NoError(t, sr.Close())
	assert.Equal(t, [][]int{FramesFrom(0, 2)}, rec.segments)
}

func TestMultipleRecordingsDontRepeatAnyFrames(t *testing.T) {
	rec, _, _, maker := SetupTest(t, 8, 1, 0)

	maker.AddStillFrames(3).AddMotionFrames(1).AddStillFrames(2)
	assert.Equal(t, [][]int{FramesFrom(0, 4)}, rec.segments)

	maker.AddSequence(true, false, false)
	assert.Equal(t, [][]int{FramesFrom(0, 4), FramesFrom(5, 7)}, rec.segments)
}

func TestRecorderNotStartedIfCheckCanRecordReturnsError(t *testing.T) {
	rec, listener, sr, maker := SetupTest(t, 8, 1, 0)
	rec.CanRecordReturn = errors.New("outside of recording window")

	maker.AddStillFrames(3).AddMotionFrames(3)
	assert.False(t, sr.IsRecording())
	assert.Equal(t, 1, rec.checks)
	assert.Equal(t, 0, listener.started)

	errs := maker.Errors()
	require.Len(t, errs, 1)
	var writerErr *recorder.WriterError
	require.True(t, errors.As(errs[0], &writerErr))
	assert.Equal(t, "start", writerErr.Op)
}

func TestFailedStartRetriedOnNextMotion(t *testing.T) {
	rec, _, sr, maker := SetupTest(t, 8, 1, 0)
	rec.StartReturn = &recorder.WriterError{Op: "open", Err: errors.New("read-only file system")}

	maker.AddStillFrames(3).AddSequence(true, false)
	assert.False(t, sr.IsRecording())
	assert.Len(t, maker.Errors(), 1)

	rec.StartReturn = nil
	maker.AddSequence(true, false, false)
	assert.Equal(t, [][]int{FramesFrom(0, 6)}, rec.segments)
}

func TestWriteErrorsDontChangeState(t *testing.T) {
	rec, listener, sr, maker := SetupTest(t, 8, 1, 0)
	rec.WriteReturn = errors.New("disk full")

	maker.AddStillFrames(2).AddMotionFrames(2)
	assert.True(t, sr.IsRecording())
	maker.AddStillFrames(2)
	assert.False(t, sr.IsRecording())

	assert.Equal(t, [][]int{FramesFrom(0, 4)}, rec.segments)
	assert.Equal(t, 1, listener.ended)
	assert.NotEmpty(t, maker.Errors())
	for _, err := range maker.Errors() {
		var writerErr *recorder.WriterError
		assert.True(t, errors.As(err, &writerErr))
	}
}

func TestCloseFinalisesOnce(t *testing.T) {
	rec, listener, sr, maker := SetupTest(t, 8, 1, 0)
	maker.AddMotionFrames(4)

	require.NoError(t, sr.Close())
	require.NoError(t, sr.Close())
	assert.Equal(t, [][]int{FramesFrom(0, 3)}, rec.segments)
	assert.Equal(t, 1, listener.ended)
}

func TestCloseWithoutRecording(t *testing.T) {
	rec, listener, sr, maker := SetupTest(t, 8, 1, 0)
	maker.AddStillFrames(4)

	require.NoError(t, sr.Close())
	assert.Empty(t, rec.segments)
	assert.Equal(t, 0, listener.ended)
}

var _ recorder.Recorder = new(TestRecorder)
