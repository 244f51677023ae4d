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
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// HOG detects upright people using OpenCV's pretrained HOG descriptor.
// The confidence is used as the SVM hit threshold and is also what each
// detection reports as its Confidence.
type HOG struct {
	hog   gocv.HOGDescriptor
	svm   gocv.Mat
	scale float64
}

func NewHOG() (*HOG, error) {
	hog := gocv.NewHOGDescriptor()
	svm := gocv.HOGDefaultPeopleDetector()
	if svm.Empty() {
		hog.Close()
		return nil, fmt.Errorf("failed to load default people detector")
	}
	hog.SetSVMDetector(svm)
	return &HOG{hog: hog, svm: svm, scale: 1.05}, nil
}

func (h *HOG) Detect(img gocv.Mat, confidence float64) ([]Detection, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	rects := h.hog.DetectMultiScaleWithParams(
		img, confidence, image.Pt(8, 8), image.Pt(0, 0), h.scale, 2, false)
	return hogDetections(rects, confidence), nil
}

// hogDetections converts HOG hits to detections. gocv doesn't return the
// SVM weights, so each box carries the hit threshold it passed.
func hogDetections(rects []image.Rectangle, threshold float64) []Detection {
	detections := make([]Detection, 0, len(rects))
	for _, r := range rects {
		detections = append(detections, Detection{
			Box:        r,
			Class:      ClassPerson,
			Confidence: threshold,
		})
	}
	return detections
}

func (h *HOG) Close() error {
	h.svm.Close()
	return h.hog.Close()
}
