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
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TheCacophonyProject/bed-monitor/stream"
)

const (
	snapshotName          = "still.jpg"
	allowedSnapshotPeriod = 500 * time.Millisecond
)

// snapshotter saves the latest streamed frame as a still image.
type snapshotter struct {
	mu       sync.Mutex
	dir      string
	sink     *stream.Sink
	now      func() time.Time
	lastSeq  uint64
	lastTime time.Time
}

func newSnapshotter(dir string, sink *stream.Sink) *snapshotter {
	return &snapshotter{
		dir:  dir,
		sink: sink,
		now:  time.Now,
	}
}

func (s *snapshotter) take() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastTime) < allowedSnapshotPeriod {
		return nil
	}

	data, seq, ok := s.sink.Current()
	if !ok {
		return errors.New("no frames yet")
	}
	// Frame already saved.
	if seq == s.lastSeq {
		return nil
	}

	tmp, err := os.CreateTemp(s.dir, snapshotName+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	// the time will be changed only if the attempt is successful
	s.lastSeq = seq
	s.lastTime = now
	return nil
}

func (s *snapshotter) path() string {
	return filepath.Join(s.dir, snapshotName)
}

func (s *snapshotter) delete() {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		log.Printf("error deleting snapshot image: %v", err)
	}
}
