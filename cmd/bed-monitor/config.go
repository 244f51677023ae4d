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
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/bed-monitor/capture"
	"github.com/TheCacophonyProject/bed-monitor/detector"
	"github.com/TheCacophonyProject/bed-monitor/events"
	"github.com/TheCacophonyProject/bed-monitor/motion"
	"github.com/TheCacophonyProject/bed-monitor/recorder"
	"github.com/TheCacophonyProject/bed-monitor/stream"
	"github.com/TheCacophonyProject/bed-monitor/throttle"
)

type Config struct {
	FPS       int                      `yaml:"fps"`
	Anonymize bool                     `yaml:"anonymize"`
	DBus      bool                     `yaml:"dbus"`
	Capture   capture.CaptureConfig    `yaml:"capture"`
	Motion    motion.MotionConfig      `yaml:"motion"`
	Recorder  recorder.RecorderConfig  `yaml:"recorder"`
	Detector  detector.DetectorConfig  `yaml:"detector"`
	Throttler throttle.ThrottlerConfig `yaml:"throttler"`
	Activity  ActivityConfig           `yaml:"activity"`
	Server    stream.ServerConfig      `yaml:"server"`
	MQTT      events.MQTTConfig        `yaml:"mqtt"`
	LogFile   LogFileConfig            `yaml:"log-file"`
}

type ActivityConfig struct {
	Dir            string `yaml:"dir"`
	CheckpointSecs int    `yaml:"checkpoint-secs"`
	Database       string `yaml:"database"`
}

func (conf *ActivityConfig) Validate() error {
	if conf.Dir == "" {
		return errors.New("activity dir must be set")
	}
	if conf.CheckpointSecs < 1 {
		return errors.New("checkpoint-secs should be at least 1")
	}
	return nil
}

// LogFileConfig sets up a rotated copy of the log output. Logging only
// goes to stderr when Path is empty.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Compress   bool   `yaml:"compress"`
}

func (conf *LogFileConfig) Validate() error {
	if conf.MaxSizeMB < 0 || conf.MaxBackups < 0 || conf.MaxAgeDays < 0 {
		return errors.New("log-file limits can't be negative")
	}
	return nil
}

var defaultConfig = Config{
	FPS:       30,
	Anonymize: false,
	DBus:      true,
	Capture:   capture.DefaultCaptureConfig(),
	Motion:    motion.DefaultMotionConfig(),
	Recorder:  recorder.DefaultRecorderConfig(),
	Detector:  detector.DefaultDetectorConfig(),
	Throttler: throttle.DefaultThrottlerConfig(),
	Activity: ActivityConfig{
		Dir:            "/var/lib/bed-monitor",
		CheckpointSecs: 60,
	},
	Server: stream.DefaultServerConfig(),
	MQTT:   events.DefaultMQTTConfig(),
	LogFile: LogFileConfig{
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 28,
	},
}

func (conf *Config) Validate() error {
	if conf.FPS < 1 {
		return errors.New("fps should be at least 1")
	}
	validators := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"capture", &conf.Capture},
		{"motion", &conf.Motion},
		{"recorder", &conf.Recorder},
		{"detector", &conf.Detector},
		{"throttler", &conf.Throttler},
		{"activity", &conf.Activity},
		{"server", &conf.Server},
		{"mqtt", &conf.MQTT},
		{"log-file", &conf.LogFile},
	}
	for _, v := range validators {
		if err := v.v.Validate(); err != nil {
			return fmt.Errorf("%s config: %w", v.name, err)
		}
	}
	return nil
}

// ParseConfigFile reads a YAML configuration file. A missing file gives
// the default configuration.
func ParseConfigFile(filename string) (*Config, error) {
	buf, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return ParseConfig(nil)
	} else if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
