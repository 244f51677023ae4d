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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/bed-monitor/detector"
)

func TestStoreMirrorsRows(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "activity.db"))
	require.NoError(t, err)
	defer store.Close()

	l := NewLog(func(err error) { t.Error(err) }, store)
	recordRun(l, 40, 10)

	rows, err := store.Since(start)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for i, r := range l.Rows() {
		assert.True(t, r.Time.Equal(rows[i].Time))
		assert.Equal(t, r.Motion, rows[i].Motion)
		assert.Equal(t, r.Detections, rows[i].Detections)
		assert.Equal(t, r.Occupied, rows[i].Occupied)
	}

	later, err := store.Since(start.Add(2 * time.Second))
	require.NoError(t, err)
	assert.Len(t, later, 2)
}

func TestStoreAdd(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "activity.db"))
	require.NoError(t, err)
	defer store.Close()

	l := NewLog(nil, store)
	_, due := l.RecordIfDue(start, detector.Summary{Count: 1, Occupied: true}, true, 0, 1)
	require.True(t, due)

	rows, err := store.Since(time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Occupied)
}
