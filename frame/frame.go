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

package frame

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is an image from the camera along with when it was acquired and
// its position in the capture sequence.
type Frame struct {
	Image gocv.Mat
	Time  time.Time
	Seq   int
}

// Processed is a frame which has been through motion detection (and
// person detection when there was motion). It is never modified once
// created.
type Processed struct {
	Frame
	IsMotion   bool
	Detections int
	Occupied   bool
}

// Clone returns a copy of the processed frame with its own image.
// The caller owns the copy and must Close it.
func (p *Processed) Clone() *Processed {
	c := *p
	c.Image = p.Image.Clone()
	return &c
}

// Close releases the image held by the frame.
func (p *Processed) Close() error {
	return p.Image.Close()
}
