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

package recorder

import (
	"image"
	"time"

	"github.com/TheCacophonyProject/bed-monitor/frame"
)

// Recorder writes processed frames to a single segment at a time.
type Recorder interface {
	CheckCanRecord() error
	StartRecording(start time.Time, size image.Point) error
	WriteFrame(*frame.Processed) error
	StopRecording() error
}

type NoWriteRecorder struct {
}

func (*NoWriteRecorder) CheckCanRecord() error                       { return nil }
func (*NoWriteRecorder) StartRecording(time.Time, image.Point) error { return nil }
func (*NoWriteRecorder) WriteFrame(*frame.Processed) error           { return nil }
func (*NoWriteRecorder) StopRecording() error                        { return nil }
