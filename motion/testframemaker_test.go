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
	"time"

	"gocv.io/x/gocv"

	"github.com/TheCacophonyProject/bed-monitor/frame"
)

var testStart = time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)

const testFPS = 10

func makeProcessed(seq int, isMotion bool) *frame.Processed {
	return &frame.Processed{
		Frame: frame.Frame{
			Image: gocv.NewMat(),
			Time:  testStart.Add(time.Duration(seq) * time.Second / testFPS),
			Seq:   seq,
		},
		IsMotion: isMotion,
	}
}

// TestFrameMaker plays frames with a given motion flag through a segment
// recorder in the same order as the pipeline does.
type TestFrameMaker struct {
	frameCounter int
	loop         *FrameLoop
	recorder     *SegmentRecorder
	errs         []error
}

func MakeTestFrameMaker(loop *FrameLoop, recorder *SegmentRecorder) *TestFrameMaker {
	return &TestFrameMaker{
		loop:     loop,
		recorder: recorder,
	}
}

func (tfm *TestFrameMaker) AddStillFrames(frames int) *TestFrameMaker {
	for i := 0; i < frames; i++ {
		tfm.PlayFrame(false)
	}
	return tfm
}

func (tfm *TestFrameMaker) AddMotionFrames(frames int) *TestFrameMaker {
	for i := 0; i < frames; i++ {
		tfm.PlayFrame(true)
	}
	return tfm
}

func (tfm *TestFrameMaker) AddSequence(flags ...bool) *TestFrameMaker {
	for _, isMotion := range flags {
		tfm.PlayFrame(isMotion)
	}
	return tfm
}

func (tfm *TestFrameMaker) PlayFrame(isMotion bool) {
	pf := makeProcessed(tfm.frameCounter, isMotion)
	tfm.frameCounter++
	defer pf.Close()

	if err := tfm.recorder.Process(pf); err != nil {
		tfm.errs = append(tfm.errs, err)
	}
	tfm.loop.Push(pf)
}

func (tfm *TestFrameMaker) Errors() []error {
	return tfm.errs
}
