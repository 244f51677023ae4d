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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheCacophonyProject/bed-monitor/frame"
)

func pushFrames(fl *FrameLoop, motion ...bool) {
	for _, m := range motion {
		pf := makeProcessed(fl.nextSeq(), m)
		fl.Push(pf)
		pf.Close()
	}
}

// nextSeq continues numbering from the newest frame held.
func (fl *FrameLoop) nextSeq() int {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.count == 0 {
		return 0
	}
	return fl.at(fl.count-1).Seq + 1
}

func seqs(frames []*frame.Processed) []int {
	ids := make([]int, len(frames))
	for i, f := range frames {
		ids[i] = f.Seq
	}
	return ids
}

func TestFrameLoopHistoryBeforeFull(t *testing.T) {
	fl := NewFrameLoop(5)
	defer fl.Close()

	pushFrames(fl, false, false, false)
	assert.Equal(t, []int{0, 1, 2}, seqs(fl.Snapshot()))
	assert.Equal(t, 3, fl.Len())
}

func TestFrameLoopNeverExceedsCapacity(t *testing.T) {
	fl := NewFrameLoop(4)
	defer fl.Close()

	for i := 0; i < 11; i++ {
		pushFrames(fl, false)
		assert.LessOrEqual(t, fl.Len(), fl.Cap())
	}
	assert.Equal(t, 4, fl.Len())
}

func TestFrameLoopEvictsOldestFirst(t *testing.T) {
	fl := NewFrameLoop(4)
	defer fl.Close()

	pushFrames(fl, false, false, false, false)
	assert.Equal(t, []int{0, 1, 2, 3}, seqs(fl.Snapshot()))

	pushFrames(fl, false)
	assert.Equal(t, []int{1, 2, 3, 4}, seqs(fl.Snapshot()))

	pushFrames(fl, false, false, false)
	assert.Equal(t, []int{4, 5, 6, 7}, seqs(fl.Snapshot()))
}

func TestFrameLoopStoresCopies(t *testing.T) {
	fl := NewFrameLoop(2)
	defer fl.Close()

	pf := makeProcessed(0, true)
	fl.Push(pf)
	pf.Close()

	history := fl.Snapshot()
	assert.Len(t, history, 1)
	assert.NotPanics(t, func() { history[0].Image.Empty() })
}

func TestFrameLoopSnapshotIsACopy(t *testing.T) {
	fl := NewFrameLoop(3)
	defer fl.Close()

	pushFrames(fl, false, false)
	history := fl.Snapshot()
	pushFrames(fl, false)
	assert.Equal(t, []int{0, 1}, seqs(history))
}

func TestFrameLoopAnyMotion(t *testing.T) {
	fl := NewFrameLoop(3)
	defer fl.Close()

	assert.False(t, fl.AnyMotion())
	pushFrames(fl, false, true, false)
	assert.True(t, fl.AnyMotion())
	assert.False(t, fl.AnyMotionInLast(1))
	assert.True(t, fl.AnyMotionInLast(2))

	pushFrames(fl, false, false)
	assert.False(t, fl.AnyMotion())
}

func TestFrameLoopSetAsOldest(t *testing.T) {
	fl := NewFrameLoop(5)
	defer fl.Close()

	pushFrames(fl, false, false, false)
	fl.SetAsOldest()
	assert.Empty(t, fl.Snapshot())

	pushFrames(fl, false, false)
	assert.Equal(t, []int{3, 4}, seqs(fl.Snapshot()))

	// Recorded frames rolling out of the loop don't hide new ones.
	pushFrames(fl, false, false, false)
	assert.Equal(t, []int{3, 4, 5, 6, 7}, seqs(fl.Snapshot()))
}

func TestZeroSizeFrameLoop(t *testing.T) {
	fl := NewFrameLoop(0)
	defer fl.Close()

	pushFrames(fl, true)
	assert.Equal(t, 0, fl.Len())
	assert.False(t, fl.AnyMotion())
	assert.Empty(t, fl.Snapshot())
}
