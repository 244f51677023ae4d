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
	"fmt"
	"log"
	"strconv"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the source has no more frames, either
// because a stream ended or the camera stopped responding.
var ErrNoFrame = errors.New("no frame available")

// Source provides frames from a camera or video.
type Source interface {
	Read(dst *gocv.Mat) error
	Close() error
}

// CaptureError is fatal: processing stops once the source fails.
type CaptureError struct {
	Op     string
	Source string
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s %s: %v", e.Op, e.Source, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

type CaptureConfig struct {
	Source       string `yaml:"source"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	WarmupFrames int    `yaml:"warmup-frames"`
}

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Source:       "0",
		WarmupFrames: 10,
	}
}

func (conf *CaptureConfig) Validate() error {
	if conf.Source == "" {
		return errors.New("source must be set")
	}
	if conf.Width < 0 || conf.Height < 0 {
		return errors.New("width and height can't be negative")
	}
	if conf.WarmupFrames < 0 {
		return errors.New("warmup-frames can't be negative")
	}
	return nil
}

// Camera reads frames through OpenCV from a device index, a file or a
// stream URL.
type Camera struct {
	name string
	cap  *gocv.VideoCapture
}

func Open(conf *CaptureConfig) (*Camera, error) {
	var device interface{} = conf.Source
	if idx, err := strconv.Atoi(conf.Source); err == nil {
		device = idx
	}
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, &CaptureError{Op: "open", Source: conf.Source, Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &CaptureError{Op: "open", Source: conf.Source, Err: errors.New("not opened")}
	}
	if conf.Width > 0 && conf.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(conf.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(conf.Height))
	}

	c := &Camera{name: conf.Source, cap: vc}
	if err := c.warmup(conf.WarmupFrames); err != nil {
		c.Close()
		return nil, err
	}
	log.Printf("camera %s opened: %.0fx%.0f at %.1f fps", conf.Source,
		vc.Get(gocv.VideoCaptureFrameWidth),
		vc.Get(gocv.VideoCaptureFrameHeight),
		vc.Get(gocv.VideoCaptureFPS))
	return c, nil
}

// warmup drops the first frames, which are often dark while the camera
// adjusts its exposure.
func (c *Camera) warmup(frames int) error {
	img := gocv.NewMat()
	defer img.Close()
	for i := 0; i < frames; i++ {
		if err := c.Read(&img); err != nil {
			return err
		}
	}
	return nil
}

func (c *Camera) Read(dst *gocv.Mat) error {
	if ok := c.cap.Read(dst); !ok || dst.Empty() {
		return &CaptureError{Op: "read", Source: c.name, Err: ErrNoFrame}
	}
	return nil
}

func (c *Camera) Close() error {
	return c.cap.Close()
}
