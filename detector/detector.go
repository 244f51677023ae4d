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

package detector

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const ClassPerson = 0

type Keypoint struct {
	X          float64
	Y          float64
	Confidence float64
}

type Detection struct {
	Box   image.Rectangle
	Class int
	// Confidence is the detector's score for the box. Detectors that don't
	// score boxes report the threshold the box passed instead.
	Confidence float64
	Keypoints  []Keypoint
}

// Detector finds people in a letterboxed colour frame. Only detections
// at or above confidence are returned.
type Detector interface {
	Detect(img gocv.Mat, confidence float64) ([]Detection, error)
	Close() error
}

// Summary is what is kept of a detection pass. The zero value is used
// for frames where no pass was run.
type Summary struct {
	Count    int
	Occupied bool
}

// Summarize counts detections and reports the bed as occupied when the
// centre of any detection lies inside bed. An empty bed region covers the
// whole frame.
func Summarize(detections []Detection, bed image.Rectangle) Summary {
	s := Summary{Count: len(detections)}
	for _, d := range detections {
		c := image.Pt((d.Box.Min.X+d.Box.Max.X)/2, (d.Box.Min.Y+d.Box.Max.Y)/2)
		if bed.Empty() || c.In(bed) {
			s.Occupied = true
			break
		}
	}
	return s
}

var boxColour = color.RGBA{0, 255, 0, 0}

// Draw outlines each detection on img.
func Draw(img *gocv.Mat, detections []Detection) {
	for _, d := range detections {
		gocv.Rectangle(img, d.Box, boxColour, 2)
	}
}

// Null never detects anything.
type Null struct{}

func (Null) Detect(gocv.Mat, float64) ([]Detection, error) { return nil, nil }
func (Null) Close() error                                  { return nil }
