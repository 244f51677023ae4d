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
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheCacophonyProject/window"
	"github.com/shirou/gopsutil/v3/disk"
	"gocv.io/x/gocv"

	"github.com/TheCacophonyProject/bed-monitor/frame"
)

const (
	segmentTimeFormat = "20060102.150405.000"
	tempMarker        = ".temp"
)

// VideoRecorder writes segments as video files named by the time the
// segment started. Segments are written under a temporary name and
// renamed once finalised.
type VideoRecorder struct {
	outputDir    string
	codec        string
	ext          string
	fps          float64
	minDiskSpace uint64
	window       *window.Window
	freeSpace    func(dir string) (uint64, error)

	writer   *gocv.VideoWriter
	tempPath string
}

func NewVideoRecorder(conf *RecorderConfig, fps int) (*VideoRecorder, error) {
	w, err := conf.Window()
	if err != nil {
		return nil, err
	}
	return &VideoRecorder{
		outputDir:    conf.OutputDir,
		codec:        conf.Codec,
		ext:          strings.TrimPrefix(conf.Extension, "."),
		fps:          float64(fps),
		minDiskSpace: conf.MinDiskSpaceMB,
		window:       w,
		freeSpace:    freeSpace,
	}, nil
}

func (vr *VideoRecorder) CheckCanRecord() error {
	if vr.window != nil && !vr.window.Active() {
		return errors.New("motion detected but outside of recording window")
	}
	free, err := vr.freeSpace(vr.outputDir)
	if err != nil {
		return fmt.Errorf("problem with checking disk space: %w", err)
	}
	if free/1024/1024 < vr.minDiskSpace {
		return errors.New("motion detected but not enough free disk space to start recording")
	}
	return nil
}

func (vr *VideoRecorder) StartRecording(start time.Time, size image.Point) error {
	if vr.writer != nil {
		return &WriterError{Op: "open", Path: vr.tempPath, Err: errors.New("segment already open")}
	}
	tempPath := filepath.Join(vr.outputDir, TempSegmentName(start, vr.ext))
	writer, err := gocv.VideoWriterFile(tempPath, vr.codec, vr.fps, size.X, size.Y, true)
	if err != nil {
		return &WriterError{Op: "open", Path: tempPath, Err: err}
	}
	if !writer.IsOpened() {
		writer.Close()
		os.Remove(tempPath)
		return &WriterError{Op: "open", Path: tempPath, Err: errors.New("video writer not opened")}
	}
	log.Printf("recording started: %s", tempPath)
	vr.writer = writer
	vr.tempPath = tempPath
	return nil
}

func (vr *VideoRecorder) WriteFrame(pf *frame.Processed) error {
	if vr.writer == nil {
		return &WriterError{Op: "write", Err: errors.New("no open segment")}
	}
	if err := vr.writer.Write(pf.Image); err != nil {
		return &WriterError{Op: "write", Path: vr.tempPath, Err: err}
	}
	return nil
}

func (vr *VideoRecorder) StopRecording() error {
	if vr.writer == nil {
		return nil
	}
	err := vr.writer.Close()
	tempPath := vr.tempPath
	vr.writer = nil
	vr.tempPath = ""
	if err != nil {
		return &WriterError{Op: "close", Path: tempPath, Err: err}
	}

	finalPath := FinalSegmentName(tempPath)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return &WriterError{Op: "rename", Path: tempPath, Err: err}
	}
	log.Printf("recording stopped: %s", finalPath)
	return nil
}

// TempSegmentName is the name a segment started at start is written
// under until it is finalised.
func TempSegmentName(start time.Time, ext string) string {
	return start.Format(segmentTimeFormat) + tempMarker + "." + ext
}

// FinalSegmentName strips the temporary marker from a segment name.
func FinalSegmentName(tempName string) string {
	dir, base := filepath.Split(tempName)
	return dir + strings.Replace(base, tempMarker+".", ".", 1)
}

// DeleteTempFiles removes segments left unfinished by a previous run.
func DeleteTempFiles(directory, ext string) error {
	pattern := "*" + tempMarker + "." + strings.TrimPrefix(ext, ".")
	matches, err := filepath.Glob(filepath.Join(directory, pattern))
	if err != nil {
		return err
	}
	for _, filename := range matches {
		log.Printf("deleting unfinished segment %s", filename)
		if err := os.Remove(filename); err != nil {
			return err
		}
	}
	return nil
}

func freeSpace(dir string) (uint64, error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
