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
	"sync"

	"github.com/TheCacophonyProject/bed-monitor/frame"
)

// FrameLoop stores copies of the last n processed frames, dropping the
// oldest once full. It provides the pre-roll written at the start of a
// recording. Beware: frames returned by Snapshot are released once they
// fall out of the loop.
type FrameLoop struct {
	mu       sync.Mutex
	size     int
	frames   []*frame.Processed
	start    int
	count    int
	recorded int
}

func NewFrameLoop(size int) *FrameLoop {
	if size < 0 {
		size = 0
	}
	return &FrameLoop{
		size:   size,
		frames: make([]*frame.Processed, size),
	}
}

// Cap returns the fixed number of frames the loop holds.
func (fl *FrameLoop) Cap() int {
	return fl.size
}

// Len returns the number of frames currently held.
func (fl *FrameLoop) Len() int {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.count
}

func (fl *FrameLoop) at(i int) *frame.Processed {
	return fl.frames[(fl.start+i)%fl.size]
}

// Push stores a copy of pf as the newest frame.
func (fl *FrameLoop) Push(pf *frame.Processed) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.size == 0 {
		return
	}

	c := pf.Clone()
	if fl.count < fl.size {
		fl.frames[(fl.start+fl.count)%fl.size] = c
		fl.count++
		return
	}

	fl.frames[fl.start].Close()
	fl.frames[fl.start] = c
	fl.start = (fl.start + 1) % fl.size
	if fl.recorded > 0 {
		fl.recorded--
	}
}

// Snapshot returns the frames which haven't been written to a recording
// yet, oldest first.
func (fl *FrameLoop) Snapshot() []*frame.Processed {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	history := make([]*frame.Processed, 0, fl.count-fl.recorded)
	for i := fl.recorded; i < fl.count; i++ {
		history = append(history, fl.at(i))
	}
	return history
}

// AnyMotion returns true if any frame in the loop had motion.
func (fl *FrameLoop) AnyMotion() bool {
	return fl.AnyMotionInLast(fl.size)
}

// AnyMotionInLast returns true if any of the newest n frames had motion.
func (fl *FrameLoop) AnyMotionInLast(n int) bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if n > fl.count {
		n = fl.count
	}
	for i := fl.count - n; i < fl.count; i++ {
		if fl.at(i).IsMotion {
			return true
		}
	}
	return false
}

// SetAsOldest marks every frame currently held as recorded so Snapshot
// never returns a frame written before this call.
func (fl *FrameLoop) SetAsOldest() {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.recorded = fl.count
}

// Close releases all frames held by the loop.
func (fl *FrameLoop) Close() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	for i := 0; i < fl.count; i++ {
		fl.at(i).Close()
	}
	for i := range fl.frames {
		fl.frames[i] = nil
	}
	fl.start, fl.count, fl.recorded = 0, 0, 0
}
