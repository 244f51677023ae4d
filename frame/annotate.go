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
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const TimestampFormat = "2006-01-02 15:04:05"

var textColour = color.RGBA{255, 255, 255, 0}

// Annotate writes the frame time and the detection results onto img.
func Annotate(img *gocv.Mat, p *Processed) {
	lines := []string{
		p.Time.Format(TimestampFormat),
		fmt.Sprintf("Motion: %t", p.IsMotion),
		fmt.Sprintf("Detections: %d", p.Detections),
		fmt.Sprintf("Bed occupied: %t", p.Occupied),
	}
	for i, line := range lines {
		gocv.PutText(img, line, image.Pt(10, 20*(i+1)), gocv.FontHersheySimplex, 0.5, textColour, 1)
	}
}
