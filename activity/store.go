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
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoredRow is the database form of a Row.
type StoredRow struct {
	ID         uint      `gorm:"primaryKey"`
	Time       time.Time `gorm:"index"`
	Motion     bool
	Detections int
	Occupied   bool
}

func (StoredRow) TableName() string {
	return "activity"
}

// Store mirrors activity rows into an SQLite database.
type Store struct {
	db *gorm.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open activity database: %w", err)
	}
	if err := db.AutoMigrate(&StoredRow{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to migrate activity database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Add(r Row) error {
	stored := StoredRow{
		Time:       r.Time,
		Motion:     r.Motion,
		Detections: r.Detections,
		Occupied:   r.Occupied,
	}
	if err := s.db.Create(&stored).Error; err != nil {
		return fmt.Errorf("failed to store activity row: %w", err)
	}
	return nil
}

// Since returns the stored rows at or after t, oldest first.
func (s *Store) Since(t time.Time) ([]Row, error) {
	var stored []StoredRow
	if err := s.db.Where("time >= ?", t).Order("time, id").Find(&stored).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(stored))
	for i, sr := range stored {
		rows[i] = Row{
			Time:       sr.Time,
			Motion:     sr.Motion,
			Detections: sr.Detections,
			Occupied:   sr.Occupied,
		}
	}
	return rows, nil
}

func (s *Store) Close() error {
	return closeDB(s.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
