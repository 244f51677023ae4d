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
	"image"
	"log"

	"gocv.io/x/gocv"
)

const (
	// The background mask collects more noise over its longer baseline so
	// it gets a larger dilation pass than the previous-frame mask.
	backgroundDilations = 3
	previousDilations   = 2

	maskWeight   = 0.25
	colourWeight = 1 - maskWeight
)

// Decision is the result of comparing one frame against the background
// and previous frames.
type Decision struct {
	IsMotion    bool
	Overlay     gocv.Mat
	StaticCount int
}

// Detector finds motion by background subtraction against two
// references: the background captured at startup, and the previous frame.
// Apart from the static count threaded through by the caller it holds no
// state between frames.
type Detector struct {
	minArea float64
	thresh  float32
	kernel  gocv.Mat
	verbose bool
}

func NewDetector(conf MotionConfig) *Detector {
	return &Detector{
		minArea: float64(conf.MinArea),
		thresh:  float32(conf.ThreshVal),
		kernel:  gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
		verbose: conf.Verbose,
	}
}

// Close releases the structuring element.
func (d *Detector) Close() error {
	return d.kernel.Close()
}

// Detect compares current (a prepared gray frame) with background and
// previous. staticCount is incremented when nothing changed since the
// previous frame and reset otherwise. The overlay is colour with the
// background mask blended over it; the caller owns it.
func (d *Detector) Detect(background, current, previous gocv.Mat, staticCount int, colour gocv.Mat) Decision {
	backgroundMask := d.mask(background, current, backgroundDilations)
	defer backgroundMask.Close()
	previousMask := d.mask(previous, current, previousDilations)
	defer previousMask.Close()

	isMotion := d.hasMotionArea(backgroundMask)
	if d.hasMotionArea(previousMask) {
		staticCount = 0
	} else {
		staticCount++
	}

	maskColour := gocv.NewMat()
	defer maskColour.Close()
	gocv.CvtColor(backgroundMask, &maskColour, gocv.ColorGrayToBGR)

	overlay := gocv.NewMat()
	gocv.AddWeighted(colour, colourWeight, maskColour, maskWeight, 0, &overlay)

	return Decision{
		IsMotion:    isMotion,
		Overlay:     overlay,
		StaticCount: staticCount,
	}
}

// mask returns the dilated binary difference between reference and current.
func (d *Detector) mask(reference, current gocv.Mat, dilations int) gocv.Mat {
	m := gocv.NewMat()
	gocv.AbsDiff(reference, current, &m)
	gocv.Threshold(m, &m, d.thresh, 255, gocv.ThresholdBinary)
	for i := 0; i < dilations; i++ {
		gocv.Dilate(m, &m, d.kernel)
	}
	return m
}

func (d *Detector) hasMotionArea(mask gocv.Mat) bool {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area >= d.minArea {
			if d.verbose {
				log.Printf("motion contour area %.0f", area)
			}
			return true
		}
	}
	return false
}

// PrepareGray converts a colour frame to the blurred gray image used for
// background subtraction. A blurSize of 0 skips the blur.
func PrepareGray(src gocv.Mat, dst *gocv.Mat, blurSize int) {
	gocv.CvtColor(src, dst, gocv.ColorBGRToGray)
	if blurSize > 0 {
		gocv.GaussianBlur(*dst, dst, image.Pt(blurSize, blurSize), 0, 0, gocv.BorderDefault)
	}
}
