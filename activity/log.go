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

package activity

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/TheCacophonyProject/bed-monitor/detector"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04:05"
)

var Header = []string{"date", "time", "motion", "detections", "bed_occupied"}

// Row summarises one second of processing. Rows are never changed once
// added to a log.
type Row struct {
	Time       time.Time
	Motion     bool
	Detections int
	Occupied   bool
}

func (r Row) Record() []string {
	return []string{
		r.Time.Format(dateFormat),
		r.Time.Format(timeFormat),
		strconv.FormatBool(r.Motion),
		strconv.Itoa(r.Detections),
		strconv.FormatBool(r.Occupied),
	}
}

// Mirror receives every row as it is added to a log.
type Mirror interface {
	Add(Row) error
}

// PersistenceError is returned when a checkpoint could not be written.
// Rows held in memory are unaffected.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to checkpoint activity log to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Log is an append only sequence of activity rows.
type Log struct {
	mu      sync.Mutex
	rows    []Row
	mirrors []Mirror
	onError func(error)
}

func NewLog(onError func(error), mirrors ...Mirror) *Log {
	if onError == nil {
		onError = func(error) {}
	}
	return &Log{
		mirrors: mirrors,
		onError: onError,
	}
}

// RecordIfDue adds a row for the last frame of each second, so a run of n
// frames at frameRate produces n/frameRate rows.
func (l *Log) RecordIfDue(ts time.Time, summary detector.Summary, isMotion bool, frameIndex, frameRate int) (Row, bool) {
	if frameRate <= 0 || (frameIndex+1)%frameRate != 0 {
		return Row{}, false
	}
	row := Row{
		Time:       ts,
		Motion:     isMotion,
		Detections: summary.Count,
		Occupied:   summary.Occupied,
	}

	l.mu.Lock()
	l.rows = append(l.rows, row)
	l.mu.Unlock()

	for _, m := range l.mirrors {
		if err := m.Add(row); err != nil {
			l.onError(err)
		}
	}
	return row, true
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

// Rows returns a copy of the rows recorded so far.
func (l *Log) Rows() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Row(nil), l.rows...)
}

// Checkpoint writes every row to path as CSV. The file is written beside
// path and renamed over it so a reader never sees a partial log.
func (l *Log) Checkpoint(path string) error {
	rows := l.Rows()
	if err := writeCSV(path, rows); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

func writeCSV(path string, rows []Row) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		tmp.Close()
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
