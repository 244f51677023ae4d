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

// Package location reads the device location shared by Cacophony
// services. It is used to place sunrise and sunset relative recording
// windows.
package location

import (
	"errors"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

const (
	DefaultFile  = "/etc/cacophony/location.yaml"
	maxLatitude  = 90
	maxLongitude = 180
)

type Location struct {
	Latitude  float64   `yaml:"latitude"`
	Longitude float64   `yaml:"longitude"`
	Timestamp time.Time `yaml:"timestamp"`
	Altitude  float64   `yaml:"altitude"`
	Accuracy  float64   `yaml:"accuracy"`
}

func (l *Location) IsEmpty() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

func (l *Location) Validate() error {
	if l.Latitude < -maxLatitude || l.Latitude > maxLatitude {
		return errors.New("latitude outside of normal range")
	}
	if l.Longitude < -maxLongitude || l.Longitude > maxLongitude {
		return errors.New("longitude outside of normal range")
	}
	return nil
}

func Parse(buf []byte) (*Location, error) {
	l := new(Location)
	if err := yaml.Unmarshal(buf, l); err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// ReadFile returns the location in filename, or nil if the file doesn't
// exist or holds no location.
func ReadFile(filename string) (*Location, error) {
	buf, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	l, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	if l.IsEmpty() {
		return nil, nil
	}
	return l, nil
}
