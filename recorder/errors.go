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

import "fmt"

// WriterError is returned when a segment can't be opened, written or
// finalised. Recording is skipped until the next motion event.
type WriterError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriterError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("could not %s segment: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("could not %s segment %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriterError) Unwrap() error {
	return e.Err
}
