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

import (
	"errors"
	"log"
	"sync"
)

// guard runs release actions exactly once, in the order they were
// added, however the pipeline stops.
type guard struct {
	mu        sync.Mutex
	once      sync.Once
	releasers []releaser
	err       error
}

type releaser struct {
	name string
	fn   func() error
}

func (g *guard) add(name string, fn func() error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releasers = append(g.releasers, releaser{name, fn})
}

func (g *guard) release() error {
	g.once.Do(func() {
		g.mu.Lock()
		releasers := g.releasers
		g.mu.Unlock()

		var errs []error
		for _, r := range releasers {
			if err := r.fn(); err != nil {
				log.Printf("failed to %s: %v", r.name, err)
				errs = append(errs, err)
			}
		}
		g.err = errors.Join(errs...)
	})
	return g.err
}
