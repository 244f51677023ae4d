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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/TheCacophonyProject/bed-monitor/activity"
	"github.com/TheCacophonyProject/bed-monitor/capture"
	"github.com/TheCacophonyProject/bed-monitor/detector"
	"github.com/TheCacophonyProject/bed-monitor/events"
	"github.com/TheCacophonyProject/bed-monitor/location"
	"github.com/TheCacophonyProject/bed-monitor/loglimiter"
	"github.com/TheCacophonyProject/bed-monitor/pipeline"
	"github.com/TheCacophonyProject/bed-monitor/recorder"
	"github.com/TheCacophonyProject/bed-monitor/stream"
	"github.com/TheCacophonyProject/bed-monitor/throttle"
)

var version = "<not set>"

type closer struct {
	name string
	fn   func() error
}

type Args struct {
	ConfigFile   string   `arg:"-c,--config" help:"path to configuration file"`
	LocationFile string   `arg:"-l,--location" help:"path to location file"`
	Timestamps   bool     `arg:"-t,--timestamps" help:"include timestamps in log output"`
	Verbose      bool     `arg:"-v,--verbose" help:"log every motion decision"`
	NoRecord     bool     `arg:"--no-record" help:"detect and stream without writing video segments"`
	Source       *string  `arg:"-s,--source" help:"camera index, video file or stream URL"`
	Anonymize    bool     `arg:"-a,--anonymize" help:"draw motion over the first captured frame instead of the live view"`
	Device       *string  `arg:"--device" help:"device for the person detector"`
	MinArea      *int     `arg:"--min-area" help:"smallest changed area counted as motion"`
	ThreshVal    *int     `arg:"--thresh-val" help:"pixel difference threshold for motion"`
	DetectorConf *float64 `arg:"--detector-conf" help:"person detector confidence threshold"`
	IP           *string  `arg:"--ip" help:"address the live feed listens on"`
	Port         *int     `arg:"--port" help:"port the live feed listens on"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/bed-monitor.yaml"
	args.LocationFile = location.DefaultFile
	arg.MustParse(&args)
	return args
}

// apply overrides configuration values with those given on the command
// line.
func (args *Args) apply(conf *Config) {
	if args.Source != nil {
		conf.Capture.Source = *args.Source
	}
	if args.Anonymize {
		conf.Anonymize = true
	}
	if args.Verbose {
		conf.Motion.Verbose = true
	}
	if args.Device != nil {
		conf.Detector.Device = *args.Device
	}
	if args.MinArea != nil {
		conf.Motion.MinArea = *args.MinArea
	}
	if args.ThreshVal != nil {
		conf.Motion.ThreshVal = *args.ThreshVal
	}
	if args.DetectorConf != nil {
		conf.Detector.Confidence = *args.DetectorConf
	}
	if args.IP != nil {
		conf.Server.IP = *args.IP
	}
	if args.Port != nil {
		conf.Server.Port = *args.Port
	}
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}
	args.apply(conf)
	if err := conf.Validate(); err != nil {
		return err
	}
	if err := useDeviceLocation(&conf.Recorder, args.LocationFile); err != nil {
		return err
	}

	if logFile := openLogFile(&conf.LogFile); logFile != nil {
		defer logFile.Close()
	}
	log.Printf("running version: %s", version)
	logConfig(conf)

	for _, dir := range []string{conf.Recorder.OutputDir, conf.Activity.Dir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	log.Println("deleting temp files")
	if err := recorder.DeleteTempFiles(conf.Recorder.OutputDir, conf.Recorder.Extension); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var closers []closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].fn(); err != nil {
				log.Printf("failed to %s: %v", closers[i].name, err)
			}
		}
	}

	var remote []events.Sender
	if conf.DBus {
		remote = append(remote, events.DBusQueue{})
	}
	var mirrors []activity.Mirror
	if conf.Activity.Database != "" {
		store, err := activity.OpenStore(conf.Activity.Database)
		if err != nil {
			return err
		}
		closers = append(closers, closer{"close activity database", store.Close})
		mirrors = append(mirrors, store)
	}
	if conf.MQTT.Enabled {
		publisher, err := events.NewMQTTPublisher(&conf.MQTT)
		if err != nil {
			closeAll()
			return err
		}
		closers = append(closers, closer{"disconnect mqtt", func() error {
			publisher.Close()
			return nil
		}})
		remote = append(remote, publisher)
		mirrors = append(mirrors, publisher)
	}

	// Closed before the database and broker so queued rows still land.
	dispatcher := events.NewDispatcher(events.DefaultQueueSize, reg)
	closers = append(closers, closer{"deliver queued events", dispatcher.Close})
	senders := []events.Sender{events.Logger{}}
	for _, s := range remote {
		senders = append(senders, dispatcher.Sender(s))
	}
	for i, m := range mirrors {
		mirrors[i] = dispatcher.Mirror(m)
	}
	listener := events.NewListener(reg, senders...)

	mirrorLog := loglimiter.New(time.Minute)
	actLog := activity.NewLog(func(err error) {
		mirrorLog.Printf("activity: %v", err)
	}, mirrors...)

	var rec recorder.Recorder = new(recorder.NoWriteRecorder)
	if !args.NoRecord {
		rec, err = recorder.NewVideoRecorder(&conf.Recorder, conf.FPS)
		if err != nil {
			closeAll()
			return err
		}
	}
	if conf.Throttler.ApplyThrottling {
		rec = throttle.NewThrottledRecorder(rec, &conf.Throttler, conf.FPS, listener)
	}

	det, err := detector.New(&conf.Detector)
	if err != nil {
		closeAll()
		return err
	}
	source, err := capture.Open(&conf.Capture)
	if err != nil {
		det.Close()
		closeAll()
		return err
	}

	sink := stream.NewSink()
	driver := pipeline.New(pipeline.Options{
		FPS:            conf.FPS,
		Motion:         conf.Motion,
		PreviewFrames:  conf.Recorder.PreviewFrames(conf.FPS),
		HoldFrames:     conf.Recorder.HoldFrames(conf.FPS),
		RolloverFrames: conf.Recorder.RolloverFrames(conf.FPS),
		Anonymize:      conf.Anonymize,
		Confidence:     conf.Detector.Confidence,
		Bed:            conf.Detector.Bed(),
		ActivityDir:    conf.Activity.Dir,
		CheckpointSecs: conf.Activity.CheckpointSecs,
	}, source, det, rec, listener, actLog, sink, reg)
	for i := len(closers) - 1; i >= 0; i-- {
		driver.OnRelease(closers[i].name, closers[i].fn)
	}

	snapshots := newSnapshotter(conf.Recorder.OutputDir, sink)
	snapshots.delete()
	if conf.DBus {
		if err := startService(snapshots); err != nil {
			log.Printf("dbus service not started: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := stream.NewServer(&conf.Server, sink, reg)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := driver.Run(gctx)
		if isEndOfFile(err, conf.Capture.Source) {
			log.Printf("finished reading %s", conf.Capture.Source)
			stop()
			return nil
		}
		if err == nil {
			stop()
		}
		return err
	})
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return watchdog(gctx, sink)
	})

	if _, err := daemon.SdNotify(false, "READY=1"); err != nil {
		log.Printf("failed to notify systemd: %v", err)
	}
	err = g.Wait()
	daemon.SdNotify(false, "STOPPING=1")
	return err
}

// useDeviceLocation places the recording window using the device location
// when the configuration doesn't give one.
func useDeviceLocation(conf *recorder.RecorderConfig, filename string) error {
	if conf.WindowStart == "" || conf.Latitude != 0 || conf.Longitude != 0 {
		return nil
	}
	loc, err := location.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read location: %w", err)
	}
	if loc != nil {
		conf.Latitude = loc.Latitude
		conf.Longitude = loc.Longitude
	}
	return nil
}

// isEndOfFile reports whether err is the normal end of a video file.
func isEndOfFile(err error, source string) bool {
	if !errors.Is(err, capture.ErrNoFrame) {
		return false
	}
	info, statErr := os.Stat(source)
	return statErr == nil && info.Mode().IsRegular()
}

// watchdog pings systemd while frames are still being published, so a
// stalled camera gets the service restarted.
func watchdog(ctx context.Context, sink *stream.Sink) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Printf("systemd watchdog disabled: %v", err)
		return nil
	}
	if interval == 0 {
		return nil
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if _, seq, ok := sink.Current(); ok && seq != lastSeq {
			lastSeq = seq
			daemon.SdNotify(false, "WATCHDOG=1")
		}
	}
}

// openLogFile copies log output to a size rotated file.
func openLogFile(conf *LogFileConfig) io.Closer {
	if conf.Path == "" {
		return nil
	}
	logFile := &lumberjack.Logger{
		Filename:   conf.Path,
		MaxSize:    conf.MaxSizeMB,
		MaxBackups: conf.MaxBackups,
		MaxAge:     conf.MaxAgeDays,
		Compress:   conf.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	return logFile
}

func logConfig(conf *Config) {
	log.Printf("source: %s at %d fps", conf.Capture.Source, conf.FPS)
	log.Printf("output dir: %s", conf.Recorder.OutputDir)
	log.Printf("activity dir: %s", conf.Activity.Dir)
	log.Printf("preview seconds: %d", conf.Recorder.PreviewSecs)
	log.Printf("segment rollover: %ds", conf.Recorder.RolloverSecs)
	log.Printf("minimum disk space: %dMB", conf.Recorder.MinDiskSpaceMB)
	log.Printf("motion: %+v", conf.Motion)
	log.Printf("detector: %+v", conf.Detector)
	log.Printf("throttler: %+v", conf.Throttler)
	if conf.Anonymize {
		log.Printf("live view anonymised")
	}
	if conf.Recorder.WindowStart != "" {
		log.Printf("recording window: %s to %s", conf.Recorder.WindowStart, conf.Recorder.WindowEnd)
	}
	if conf.Activity.Database != "" {
		log.Printf("activity database: %s", conf.Activity.Database)
	}
	if conf.MQTT.Enabled {
		log.Printf("mqtt: %s topic %s", conf.MQTT.Broker, conf.MQTT.Topic)
	}
}
