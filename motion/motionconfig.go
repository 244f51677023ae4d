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

import "errors"

type MotionConfig struct {
	MinArea   int  `yaml:"min-area"`
	ThreshVal int  `yaml:"thresh-val"`
	BlurSize  int  `yaml:"blur-size"`
	Verbose   bool `yaml:"verbose"`
}

func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		MinArea:   2000,
		ThreshVal: 40,
		BlurSize:  21,
	}
}

func (conf *MotionConfig) Validate() error {
	if conf.MinArea < 1 {
		return errors.New("min-area should be at least 1")
	}
	if conf.ThreshVal < 0 || conf.ThreshVal > 254 {
		return errors.New("thresh-val should be in range 0 - 254")
	}
	if conf.BlurSize < 0 || (conf.BlurSize > 0 && conf.BlurSize%2 == 0) {
		return errors.New("blur-size should be 0 or a positive odd number")
	}
	return nil
}
