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
	"errors"

	"github.com/TheCacophonyProject/window"
)

type RecorderConfig struct {
	OutputDir      string  `yaml:"output-dir"`
	PreviewSecs    int     `yaml:"preview-secs"`
	HoldSecs       int     `yaml:"hold-secs"`
	RolloverSecs   int     `yaml:"rollover-secs"`
	Codec          string  `yaml:"codec"`
	Extension      string  `yaml:"extension"`
	MinDiskSpaceMB uint64  `yaml:"min-disk-space-mb"`
	WindowStart    string  `yaml:"window-start"`
	WindowEnd      string  `yaml:"window-end"`
	Latitude       float64 `yaml:"latitude"`
	Longitude      float64 `yaml:"longitude"`
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		OutputDir:      "/var/spool/bed-monitor",
		PreviewSecs:    3,
		RolloverSecs:   30 * 60,
		Codec:          "mp4v",
		Extension:      "mp4",
		MinDiskSpaceMB: 200,
	}
}

func (conf *RecorderConfig) Validate() error {
	if conf.OutputDir == "" {
		return errors.New("output-dir must be set")
	}
	if conf.PreviewSecs < 0 {
		return errors.New("preview-secs can't be negative")
	}
	if conf.HoldSecs < 0 {
		return errors.New("hold-secs can't be negative")
	}
	if conf.HoldSecs > conf.PreviewSecs {
		return errors.New("hold-secs should not be larger than preview-secs")
	}
	if conf.RolloverSecs < 1 {
		return errors.New("rollover-secs should be at least 1")
	}
	if conf.RolloverSecs < conf.PreviewSecs {
		return errors.New("rollover-secs should not be smaller than preview-secs")
	}
	if len(conf.Codec) != 4 {
		return errors.New("codec should be a four character code")
	}
	if conf.Extension == "" {
		return errors.New("extension must be set")
	}
	if conf.WindowStart != "" && conf.WindowEnd == "" {
		return errors.New("window-start is set but window-end isn't")
	}
	if conf.WindowStart == "" && conf.WindowEnd != "" {
		return errors.New("window-end is set but window-start isn't")
	}
	return nil
}

// PreviewFrames is the capacity of the pre-roll buffer.
func (conf *RecorderConfig) PreviewFrames(fps int) int {
	return conf.PreviewSecs * fps
}

// HoldFrames is the number of recent frames checked for motion when
// deciding whether a recording starts or stops.
func (conf *RecorderConfig) HoldFrames(fps int) int {
	if conf.HoldSecs == 0 {
		return conf.PreviewFrames(fps)
	}
	return conf.HoldSecs * fps
}

func (conf *RecorderConfig) RolloverFrames(fps int) int {
	return conf.RolloverSecs * fps
}

// Window returns the recording window, or nil when recording is allowed
// at any time of day.
func (conf *RecorderConfig) Window() (*window.Window, error) {
	if conf.WindowStart == "" && conf.WindowEnd == "" {
		return nil, nil
	}
	return window.New(conf.WindowStart, conf.WindowEnd, conf.Latitude, conf.Longitude)
}
