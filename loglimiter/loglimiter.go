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

package loglimiter

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// New returns a LogLimiter writing to the standard logger which lets each
// distinct message through at most once per interval.
func New(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		nowFunc:  time.Now,
		output:   log.Print,
		seen:     make(map[string]entry),
	}
}

// LogLimiter suppresses a log message if the same message was printed
// within the interval. Suppressed repeats are counted and reported the
// next time the message gets through.
type LogLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	nowFunc  func() time.Time
	output   func(v ...interface{})
	seen     map[string]entry
}

type entry struct {
	last       time.Time
	suppressed int
}

func (limiter *LogLimiter) Printf(format string, v ...interface{}) {
	limiter.Print(fmt.Sprintf(format, v...))
}

func (limiter *LogLimiter) Print(s string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.nowFunc()
	e, ok := limiter.seen[s]
	if ok && now.Sub(e.last) < limiter.interval {
		e.suppressed++
		limiter.seen[s] = e
		return
	}

	if e.suppressed > 0 {
		limiter.output(fmt.Sprintf("%s (repeated %d times)", s, e.suppressed))
	} else {
		limiter.output(s)
	}
	limiter.seen[s] = entry{last: now}
	limiter.prune(now)
}

// prune forgets messages which can no longer be suppressed.
func (limiter *LogLimiter) prune(now time.Time) {
	for s, e := range limiter.seen {
		if now.Sub(e.last) >= limiter.interval && e.suppressed == 0 {
			delete(limiter.seen, s)
		}
	}
}
