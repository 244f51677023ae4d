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

package stream

import "sync"

// Sink holds the most recently published JPEG frame. Readers only ever
// see the latest frame; nothing is queued for slow readers.
type Sink struct {
	mu   sync.RWMutex
	data []byte
	seq  uint64
}

func NewSink() *Sink {
	return &Sink{}
}

// Publish replaces the current frame. data must not be modified after
// it is published.
func (s *Sink) Publish(data []byte) {
	s.mu.Lock()
	s.data = data
	s.seq++
	s.mu.Unlock()
}

// Current returns the latest frame and its sequence number. ok is false
// until the first frame is published.
func (s *Sink) Current() (data []byte, seq uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.seq, s.seq > 0
}
