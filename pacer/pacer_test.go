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

package pacer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now    time.Time
	waited []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

// After advances the clock instead of sleeping.
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waited = append(c.waited, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newTestPacer(fps int) (*Pacer, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return newWithClock(fps, clock.Now, clock.After), clock
}

func TestWaitsForRemainderOfPeriod(t *testing.T) {
	p, clock := newTestPacer(4)

	clock.now = clock.now.Add(100 * time.Millisecond)
	assert.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, []time.Duration{150 * time.Millisecond}, clock.waited)
}

func TestJitterDoesNotAccumulate(t *testing.T) {
	p, clock := newTestPacer(5)
	start := clock.now

	work := []time.Duration{10, 150, 30, 199, 0, 70}
	for _, w := range work {
		clock.now = clock.now.Add(w * time.Millisecond)
		assert.NoError(t, p.Wait(context.Background()))
		elapsed := clock.now.Sub(start)
		assert.Zero(t, elapsed%p.Period(), "tick not on the rate grid: %v", elapsed)
	}
	assert.Equal(t, time.Duration(len(work))*p.Period(), clock.now.Sub(start))
}

func TestSlowIterationSkipsToNextTick(t *testing.T) {
	p, clock := newTestPacer(2)
	start := clock.now

	clock.now = clock.now.Add(700 * time.Millisecond)
	assert.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, time.Second, clock.now.Sub(start))
}

func TestWaitReturnsWhenCancelled(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	begin := time.Now()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)
	assert.Less(t, time.Since(begin), p.Period())
}
