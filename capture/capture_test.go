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

package capture

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureError(t *testing.T) {
	err := &CaptureError{Op: "read", Source: "0", Err: ErrNoFrame}
	assert.EqualError(t, err, "capture read 0: no frame available")
	assert.True(t, errors.Is(err, ErrNoFrame))
}

func TestOpenMissingFile(t *testing.T) {
	conf := DefaultCaptureConfig()
	conf.Source = filepath.Join(t.TempDir(), "missing.mp4")

	_, err := Open(&conf)
	var captureErr *CaptureError
	assert.True(t, errors.As(err, &captureErr))
	assert.Equal(t, "open", captureErr.Op)
}

func TestConfigValidation(t *testing.T) {
	conf := DefaultCaptureConfig()
	assert.NoError(t, conf.Validate())

	conf.Source = ""
	assert.EqualError(t, conf.Validate(), "source must be set")

	conf = DefaultCaptureConfig()
	conf.WarmupFrames = -1
	assert.EqualError(t, conf.Validate(), "warmup-frames can't be negative")
}
