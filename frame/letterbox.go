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
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

const (
	DefaultLetterboxSize   = 640
	DefaultLetterboxStride = 64
)

var padColour = color.RGBA{114, 114, 114, 0}

// Geometry describes how a frame is scaled and padded so both sides are
// a multiple of the stride.
type Geometry struct {
	Width, Height            int
	Top, Bottom, Left, Right int
}

// Size returns the dimensions of a letterboxed frame.
func (g Geometry) Size() image.Point {
	return image.Pt(g.Width+g.Left+g.Right, g.Height+g.Top+g.Bottom)
}

// LetterboxGeometry scales (w, h) so the longest side is size and pads the
// smallest amount needed to reach a multiple of stride, split evenly
// between the two edges.
func LetterboxGeometry(w, h, size, stride int) Geometry {
	r := math.Min(float64(size)/float64(h), float64(size)/float64(w))
	nw := int(math.Round(float64(w) * r))
	nh := int(math.Round(float64(h) * r))

	dw := float64((size-nw)%stride) / 2
	dh := float64((size-nh)%stride) / 2

	return Geometry{
		Width:  nw,
		Height: nh,
		Top:    int(math.Round(dh - 0.1)),
		Bottom: int(math.Round(dh + 0.1)),
		Left:   int(math.Round(dw - 0.1)),
		Right:  int(math.Round(dw + 0.1)),
	}
}

// Letterbox writes src resized and padded according to g into dst.
func Letterbox(src gocv.Mat, dst *gocv.Mat, g Geometry) {
	resized := gocv.NewMat()
	defer resized.Close()

	if src.Cols() != g.Width || src.Rows() != g.Height {
		gocv.Resize(src, &resized, image.Pt(g.Width, g.Height), 0, 0, gocv.InterpolationLinear)
	} else {
		src.CopyTo(&resized)
	}
	gocv.CopyMakeBorder(resized, dst, g.Top, g.Bottom, g.Left, g.Right, gocv.BorderConstant, padColour)
}
