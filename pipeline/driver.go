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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gocv.io/x/gocv"

	"github.com/TheCacophonyProject/bed-monitor/activity"
	"github.com/TheCacophonyProject/bed-monitor/capture"
	"github.com/TheCacophonyProject/bed-monitor/detector"
	"github.com/TheCacophonyProject/bed-monitor/frame"
	"github.com/TheCacophonyProject/bed-monitor/loglimiter"
	"github.com/TheCacophonyProject/bed-monitor/motion"
	"github.com/TheCacophonyProject/bed-monitor/pacer"
	"github.com/TheCacophonyProject/bed-monitor/recorder"
	"github.com/TheCacophonyProject/bed-monitor/stream"
)

const (
	BackupName         = "backup.csv"
	finalLogTimeFormat = "2006-01-02 15-04-05"
	minLogInterval     = time.Minute
	frameLogSecs       = 5 * 60
)

// EncodeError is logged when a frame can't be encoded for streaming. The
// frame is still recorded and buffered.
type EncodeError struct {
	Seq int
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode frame %d: %v", e.Seq, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Waiter paces the processing loop.
type Waiter interface {
	Wait(ctx context.Context) error
}

type Options struct {
	FPS            int
	Motion         motion.MotionConfig
	PreviewFrames  int
	HoldFrames     int
	RolloverFrames int
	Anonymize      bool
	Confidence     float64
	Bed            image.Rectangle
	ActivityDir    string
	CheckpointSecs int
	JPEGQuality    int
	LetterboxSize  int
	Stride         int
}

// Driver runs the capture, detect, record and publish cycle, one frame at
// a time. All per-frame state is owned by the driver and only touched
// while holding its lock; other goroutines only see published frames.
type Driver struct {
	mu       sync.Mutex
	opts     Options
	source   capture.Source
	motion   *motion.Detector
	detector detector.Detector
	loop     *motion.FrameLoop
	segments *motion.SegmentRecorder
	activity *activity.Log
	sink     *stream.Sink
	pacer    Waiter
	metrics  *metrics
	log      *loglimiter.LogLimiter
	guard    guard
	now      func() time.Time
	encode   func(gocv.Mat, int) ([]byte, error)

	started     bool
	geometry    frame.Geometry
	raw         gocv.Mat
	boxed       gocv.Mat
	gray        gocv.Mat
	prevGray    gocv.Mat
	background  gocv.Mat
	anonymised  gocv.Mat
	staticCount int
	frameIndex  int
	firstFrame  time.Time
}

func New(
	opts Options,
	source capture.Source,
	det detector.Detector,
	rec recorder.Recorder,
	listener motion.RecordingListener,
	actLog *activity.Log,
	sink *stream.Sink,
	reg prometheus.Registerer,
) *Driver {
	if opts.LetterboxSize == 0 {
		opts.LetterboxSize = frame.DefaultLetterboxSize
	}
	if opts.Stride == 0 {
		opts.Stride = frame.DefaultLetterboxStride
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = 80
	}

	loop := motion.NewFrameLoop(opts.PreviewFrames)
	d := &Driver{
		opts:     opts,
		source:   source,
		motion:   motion.NewDetector(opts.Motion),
		detector: det,
		loop:     loop,
		segments: motion.NewSegmentRecorder(loop, rec, opts.HoldFrames, opts.RolloverFrames, listener),
		activity: actLog,
		sink:     sink,
		pacer:    pacer.New(opts.FPS),
		metrics:  newMetrics(reg),
		log:      loglimiter.New(minLogInterval),
		now:      time.Now,
		encode:   encodeJPEG,
		raw:      gocv.NewMat(),
		boxed:    gocv.NewMat(),
		gray:     gocv.NewMat(),
		prevGray: gocv.NewMat(),
	}

	d.guard.add("report frame rate", d.logAverageFPS)
	d.guard.add("release camera", source.Close)
	d.guard.add("finalise segment", d.segments.Close)
	d.guard.add("write final activity log", d.finalCheckpoint)
	d.guard.add("release detector", det.Close)
	d.guard.add("release frames", d.closeMats)
	return d
}

// OnRelease adds an action run when the driver is released, after the
// driver's own resources.
func (d *Driver) OnRelease(name string, fn func() error) {
	d.guard.add(name, fn)
}

// Release stops recording and frees the driver's resources. It is safe
// to call more than once.
func (d *Driver) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.guard.release()
}

// Run processes frames until ctx is cancelled or the camera fails, then
// releases the driver. A camera failure is returned as a
// capture.CaptureError.
func (d *Driver) Run(ctx context.Context) (err error) {
	defer func() {
		if rerr := d.Release(); err == nil {
			err = rerr
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := d.Step(); err != nil {
			return err
		}
		if err := d.pacer.Wait(ctx); err != nil {
			return nil
		}
	}
}

// Step processes a single frame.
func (d *Driver) Step() error {
	d.mu.Lock()
	data, err := d.step()
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if data != nil {
		d.sink.Publish(data)
	}
	return nil
}

func (d *Driver) step() ([]byte, error) {
	if err := d.source.Read(&d.raw); err != nil {
		var captureErr *capture.CaptureError
		if !errors.As(err, &captureErr) {
			err = &capture.CaptureError{Op: "read", Err: err}
		}
		return nil, err
	}
	start := time.Now()
	now := d.now()

	if !d.started {
		d.geometry = frame.LetterboxGeometry(d.raw.Cols(), d.raw.Rows(), d.opts.LetterboxSize, d.opts.Stride)
	}
	frame.Letterbox(d.raw, &d.boxed, d.geometry)
	motion.PrepareGray(d.boxed, &d.gray, d.opts.Motion.BlurSize)
	if !d.started {
		d.startSession(now)
	}

	colour := d.boxed
	if d.opts.Anonymize {
		colour = d.anonymised
	}
	decision := d.motion.Detect(d.background, d.gray, d.prevGray, d.staticCount, colour)
	defer decision.Overlay.Close()
	d.staticCount = decision.StaticCount

	var summary detector.Summary
	if decision.IsMotion {
		summary = d.detect(&decision.Overlay)
	}

	pf := &frame.Processed{
		Frame: frame.Frame{
			Image: decision.Overlay,
			Time:  now,
			Seq:   d.frameIndex,
		},
		IsMotion:   decision.IsMotion,
		Detections: summary.Count,
		Occupied:   summary.Occupied,
	}
	frame.Annotate(&pf.Image, pf)

	if err := d.segments.Process(pf); err != nil {
		d.metrics.recordErrors.Inc()
		d.log.Printf("recording: %v", err)
	}
	d.activity.RecordIfDue(now, summary, decision.IsMotion, d.frameIndex, d.opts.FPS)
	if d.checkpointDue() {
		d.checkpoint(filepath.Join(d.opts.ActivityDir, BackupName))
	}
	d.loop.Push(pf)

	data, err := d.encode(pf.Image, d.opts.JPEGQuality)
	if err != nil {
		d.metrics.encodeErrors.Inc()
		d.log.Print((&EncodeError{Seq: pf.Seq, Err: err}).Error())
		data = nil
	}

	d.gray, d.prevGray = d.prevGray, d.gray
	d.frameIndex++
	d.logFrameCount()

	d.metrics.frames.Inc()
	d.metrics.staticFrames.Set(float64(d.staticCount))
	d.metrics.processingTime.Observe(time.Since(start).Seconds())
	return data, nil
}

// startSession takes the first frame as the background for the rest of
// the run.
func (d *Driver) startSession(now time.Time) {
	d.started = true
	d.firstFrame = now
	d.background = d.gray.Clone()
	d.anonymised = d.boxed.Clone()
	d.gray.CopyTo(&d.prevGray)

	size := d.geometry.Size()
	log.Printf("processing %dx%d frames letterboxed to %dx%d",
		d.raw.Cols(), d.raw.Rows(), size.X, size.Y)
}

func (d *Driver) detect(overlay *gocv.Mat) detector.Summary {
	d.metrics.motionFrames.Inc()
	detections, err := d.detector.Detect(d.boxed, d.opts.Confidence)
	if err != nil {
		d.log.Printf("person detection failed: %v", err)
		return detector.Summary{}
	}
	detector.Draw(overlay, detections)

	summary := detector.Summarize(detections, d.opts.Bed)
	d.metrics.detections.Add(float64(summary.Count))
	if summary.Occupied {
		d.metrics.occupied.Set(1)
	} else {
		d.metrics.occupied.Set(0)
	}
	return summary
}

func (d *Driver) checkpointDue() bool {
	frames := d.opts.CheckpointSecs * d.opts.FPS
	return frames > 0 && (d.frameIndex+1)%frames == 0
}

func (d *Driver) checkpoint(path string) error {
	if err := d.activity.Checkpoint(path); err != nil {
		d.metrics.checkpointErrs.Inc()
		d.log.Print(err.Error())
		return err
	}
	return nil
}

// finalCheckpoint only logs a failure. The rows already written to
// backup.csv and any mirrors are kept, so stopping is still clean.
func (d *Driver) finalCheckpoint() error {
	name := d.now().Format(finalLogTimeFormat) + ".csv"
	if err := d.activity.Checkpoint(filepath.Join(d.opts.ActivityDir, name)); err != nil {
		d.metrics.checkpointErrs.Inc()
		log.Printf("failed to write final activity log: %v", err)
	}
	return nil
}

func (d *Driver) logFrameCount() {
	interval := frameLogSecs * d.opts.FPS
	if interval > 0 && d.frameIndex%interval == 0 {
		log.Printf("%d frames processed", d.frameIndex)
	}
}

func (d *Driver) logAverageFPS() error {
	if !d.started || d.frameIndex == 0 {
		return nil
	}
	if elapsed := d.now().Sub(d.firstFrame).Seconds(); elapsed > 0 {
		log.Printf("processed %d frames, average %.1f fps", d.frameIndex, float64(d.frameIndex)/elapsed)
	}
	return nil
}

func (d *Driver) closeMats() error {
	d.loop.Close()
	d.motion.Close()
	for _, m := range []*gocv.Mat{&d.raw, &d.boxed, &d.gray, &d.prevGray, &d.background, &d.anonymised} {
		if m.Ptr() != nil {
			m.Close()
		}
	}
	return nil
}

func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
