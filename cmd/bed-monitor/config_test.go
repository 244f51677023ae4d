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
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/bed-monitor/capture"
	"github.com/TheCacophonyProject/bed-monitor/detector"
	"github.com/TheCacophonyProject/bed-monitor/events"
	"github.com/TheCacophonyProject/bed-monitor/motion"
	"github.com/TheCacophonyProject/bed-monitor/recorder"
	"github.com/TheCacophonyProject/bed-monitor/stream"
	"github.com/TheCacophonyProject/bed-monitor/throttle"
)

func TestAllDefaults(t *testing.T) {
	conf, err := ParseConfig([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, Config{
		FPS:       30,
		Anonymize: false,
		DBus:      true,
		Capture: capture.CaptureConfig{
			Source:       "0",
			WarmupFrames: 10,
		},
		Motion: motion.MotionConfig{
			MinArea:   2000,
			ThreshVal: 40,
			BlurSize:  21,
		},
		Recorder: recorder.RecorderConfig{
			OutputDir:      "/var/spool/bed-monitor",
			PreviewSecs:    3,
			RolloverSecs:   1800,
			Codec:          "mp4v",
			Extension:      "mp4",
			MinDiskSpaceMB: 200,
		},
		Detector: detector.DetectorConfig{
			Kind:       "hog",
			Confidence: 0.25,
			Device:     "cpu",
		},
		Throttler: throttle.ThrottlerConfig{
			BucketSize: 10 * time.Minute,
			MinRefill:  10 * time.Minute,
			MinSecs:    10,
		},
		Activity: ActivityConfig{
			Dir:            "/var/lib/bed-monitor",
			CheckpointSecs: 60,
		},
		Server: stream.ServerConfig{
			IP:           "0.0.0.0",
			Port:         8000,
			PollInterval: 20 * time.Millisecond,
		},
		MQTT: events.MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "bed-monitor",
			Topic:    "bed-monitor",
		},
		LogFile: LogFileConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}, *conf)
}

func TestAllProgramDefaultsMatchDefaultYamlFile(t *testing.T) {
	configDefaults, err := ParseConfig([]byte(""))
	require.NoError(t, err)

	configYAML, err := ParseConfig(getDefaultConfig(t))
	require.NoError(t, err)

	assert.Equal(t, configDefaults, configYAML)
}

func TestAllSet(t *testing.T) {
	configStr := []byte(`
fps: 15
anonymize: true
dbus: false
capture:
  source: /dev/video2
  width: 1280
  height: 720
  warmup-frames: 0
motion:
  min-area: 500
  thresh-val: 25
  blur-size: 0
  verbose: true
recorder:
  output-dir: /tmp/segments
  preview-secs: 5
  hold-secs: 2
  rollover-secs: 600
  codec: MJPG
  extension: avi
  min-disk-space-mb: 1000
  window-start: "22:00"
  window-end: "07:30"
  latitude: -43.5
  longitude: 172.6
detector:
  kind: none
  confidence: 0.5
  device: cuda
  bed-region: [10, 20, 300, 400]
throttler:
  apply-throttling: true
  bucket-size: 30m
  min-refill: 5m
  min-secs: 20
activity:
  dir: /tmp/activity
  checkpoint-secs: 10
  database: /tmp/activity/activity.db
server:
  ip: 127.0.0.1
  port: 9000
  poll-interval: 50ms
mqtt:
  enabled: true
  broker: tcp://broker:1883
  client-id: ward-3
  topic: wards/3
log-file:
  path: /var/log/bed-monitor.log
  max-size-mb: 50
  max-backups: 2
  max-age-days: 7
  compress: true
`)

	conf, err := ParseConfig(configStr)
	require.NoError(t, err)

	assert.Equal(t, Config{
		FPS:       15,
		Anonymize: true,
		DBus:      false,
		Capture: capture.CaptureConfig{
			Source:       "/dev/video2",
			Width:        1280,
			Height:       720,
			WarmupFrames: 0,
		},
		Motion: motion.MotionConfig{
			MinArea:   500,
			ThreshVal: 25,
			BlurSize:  0,
			Verbose:   true,
		},
		Recorder: recorder.RecorderConfig{
			OutputDir:      "/tmp/segments",
			PreviewSecs:    5,
			HoldSecs:       2,
			RolloverSecs:   600,
			Codec:          "MJPG",
			Extension:      "avi",
			MinDiskSpaceMB: 1000,
			WindowStart:    "22:00",
			WindowEnd:      "07:30",
			Latitude:       -43.5,
			Longitude:      172.6,
		},
		Detector: detector.DetectorConfig{
			Kind:       "none",
			Confidence: 0.5,
			Device:     "cuda",
			BedRegion:  []int{10, 20, 300, 400},
		},
		Throttler: throttle.ThrottlerConfig{
			ApplyThrottling: true,
			BucketSize:      30 * time.Minute,
			MinRefill:       5 * time.Minute,
			MinSecs:         20,
		},
		Activity: ActivityConfig{
			Dir:            "/tmp/activity",
			CheckpointSecs: 10,
			Database:       "/tmp/activity/activity.db",
		},
		Server: stream.ServerConfig{
			IP:           "127.0.0.1",
			Port:         9000,
			PollInterval: 50 * time.Millisecond,
		},
		MQTT: events.MQTTConfig{
			Enabled:  true,
			Broker:   "tcp://broker:1883",
			ClientID: "ward-3",
			Topic:    "wards/3",
		},
		LogFile: LogFileConfig{
			Path:       "/var/log/bed-monitor.log",
			MaxSizeMB:  50,
			MaxBackups: 2,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}, *conf)
}

func TestFPSMustBePositive(t *testing.T) {
	conf, err := ParseConfig([]byte("fps: 0"))
	assert.Nil(t, conf)
	assert.EqualError(t, err, "fps should be at least 1")
}

func TestRecorderErrorsStopConfigParsing(t *testing.T) {
	configStr := []byte(`
recorder:
  preview-secs: 2
  hold-secs: 4
`)
	conf, err := ParseConfig(configStr)
	assert.Nil(t, conf)
	assert.EqualError(t, err, "recorder config: hold-secs should not be larger than preview-secs")
}

func TestActivityErrorsStopConfigParsing(t *testing.T) {
	conf, err := ParseConfig([]byte("activity:\n  checkpoint-secs: 0\n"))
	assert.Nil(t, conf)
	assert.EqualError(t, err, "activity config: checkpoint-secs should be at least 1")
}

func TestInvalidYaml(t *testing.T) {
	conf, err := ParseConfig([]byte("fps: [1"))
	assert.Nil(t, conf)
	assert.Error(t, err)
}

func TestMissingConfigFileUsesDefaults(t *testing.T) {
	conf, err := ParseConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30, conf.FPS)
}

func TestArgsOverrideConfig(t *testing.T) {
	conf, err := ParseConfig([]byte(""))
	require.NoError(t, err)

	source := "clip.mp4"
	minArea := 800
	port := 8080
	args := Args{
		Source:    &source,
		Anonymize: true,
		MinArea:   &minArea,
		Port:      &port,
	}
	args.apply(conf)
	require.NoError(t, conf.Validate())

	assert.Equal(t, "clip.mp4", conf.Capture.Source)
	assert.True(t, conf.Anonymize)
	assert.Equal(t, 800, conf.Motion.MinArea)
	assert.Equal(t, 8080, conf.Server.Port)
	assert.Equal(t, 40, conf.Motion.ThreshVal)
	assert.Equal(t, "0.0.0.0", conf.Server.IP)
}

func getDefaultConfig(t *testing.T) []byte {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "could not find the base dir where sample files are")
	dir, err := filepath.Abs(filepath.Dir(file))
	require.NoError(t, err)

	buf, err := os.ReadFile(filepath.Join(dir, "..", "..", "_release", "bed-monitor.yaml"))
	require.NoError(t, err)
	return buf
}
