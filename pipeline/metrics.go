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

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	frames         prometheus.Counter
	motionFrames   prometheus.Counter
	detections     prometheus.Counter
	encodeErrors   prometheus.Counter
	recordErrors   prometheus.Counter
	checkpointErrs prometheus.Counter
	staticFrames   prometheus.Gauge
	occupied       prometheus.Gauge
	processingTime prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "frames_processed_total",
			Help:      "Frames read from the camera and processed.",
		}),
		motionFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "detector_runs_total",
			Help:      "Frames passed to the person detector.",
		}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "detections_total",
			Help:      "People found by the person detector.",
		}),
		encodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "encode_errors_total",
			Help:      "Frames which couldn't be encoded for streaming.",
		}),
		recordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "recording_errors_total",
			Help:      "Errors starting, writing or finishing a segment.",
		}),
		checkpointErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bed_monitor",
			Name:      "checkpoint_errors_total",
			Help:      "Activity log checkpoints which failed.",
		}),
		staticFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bed_monitor",
			Name:      "static_frames",
			Help:      "Consecutive frames without change from the previous frame.",
		}),
		occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bed_monitor",
			Name:      "bed_occupied",
			Help:      "1 if the bed was occupied at the last detector run.",
		}),
		processingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bed_monitor",
			Name:      "frame_processing_seconds",
			Help:      "Time taken to process a frame.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.frames, m.motionFrames, m.detections, m.encodeErrors,
			m.recordErrors, m.checkpointErrs, m.staticFrames, m.occupied, m.processingTime)
	}
	return m
}
