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

// Package pacer holds a processing loop to a fixed frame rate.
package pacer

import (
	"context"
	"time"
)

// Pacer blocks callers until the next tick of a fixed rate grid which
// starts when the Pacer is created. Ticks are computed from the total
// elapsed time so processing jitter doesn't accumulate as drift.
type Pacer struct {
	period time.Duration
	start  time.Time
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
}

// New returns a Pacer for fps ticks per second.
func New(fps int) *Pacer {
	return newWithClock(fps, time.Now, time.After)
}

func newWithClock(fps int, now func() time.Time, after func(time.Duration) <-chan time.Time) *Pacer {
	return &Pacer{
		period: time.Second / time.Duration(fps),
		start:  now(),
		now:    now,
		after:  after,
	}
}

// Period returns the time between ticks.
func (p *Pacer) Period() time.Duration {
	return p.period
}

// Until returns how long until the next tick.
func (p *Pacer) Until() time.Duration {
	elapsed := p.now().Sub(p.start)
	return p.period - elapsed%p.period
}

// Wait blocks until the next tick or until ctx is done. The wait is never
// longer than one period.
func (p *Pacer) Wait(ctx context.Context) error {
	select {
	case <-p.after(p.Until()):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
