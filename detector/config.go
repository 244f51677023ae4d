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
	"errors"
	"fmt"
	"image"
	"log"
)

const (
	KindHOG  = "hog"
	KindNone = "none"
)

type DetectorConfig struct {
	Kind       string  `yaml:"kind"`
	Confidence float64 `yaml:"confidence"`
	Device     string  `yaml:"device"`
	BedRegion  []int   `yaml:"bed-region"`
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Kind:       KindHOG,
		Confidence: 0.25,
		Device:     "cpu",
	}
}

func (conf *DetectorConfig) Validate() error {
	switch conf.Kind {
	case KindHOG, KindNone:
	default:
		return fmt.Errorf("unknown detector kind %q", conf.Kind)
	}
	if conf.Confidence < 0 || conf.Confidence > 1 {
		return errors.New("confidence should be in range 0 - 1")
	}
	if len(conf.BedRegion) != 0 && len(conf.BedRegion) != 4 {
		return errors.New("bed-region should be [x0, y0, x1, y1]")
	}
	if len(conf.BedRegion) == 4 && conf.Bed().Empty() {
		return errors.New("bed-region is empty")
	}
	return nil
}

// Bed returns the bed region in letterboxed frame coordinates.
func (conf *DetectorConfig) Bed() image.Rectangle {
	if len(conf.BedRegion) != 4 {
		return image.Rectangle{}
	}
	r := conf.BedRegion
	return image.Rect(r[0], r[1], r[2], r[3])
}

// New creates the configured detector.
func New(conf *DetectorConfig) (Detector, error) {
	if conf.Device != "" && conf.Device != "cpu" {
		log.Printf("detector device %q not supported, using cpu", conf.Device)
	}
	switch conf.Kind {
	case KindNone:
		return Null{}, nil
	default:
		return NewHOG()
	}
}
