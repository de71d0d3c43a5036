package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/verbo-app/roomsync/internal/debate"
)

const (
	keySide  = "side"
	keyStats = "stats_recorded"
)

// entry is one durable per-debate value. The composite key keeps every
// debate's rows independent without a table per concern.
type entry struct {
	DebateID  string `gorm:"primaryKey;column:debate_id"`
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value"`
	UpdatedAt time.Time
}

func (entry) TableName() string { return "room_state" }

// SQLite is the durable Store backend. A single file holds all
// per-debate state; session flags stay in memory.
type SQLite struct {
	db    *gorm.DB
	flags *session
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite store handle: %w", err)
	}
	// SQLite serializes writers anyway; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}

	return &SQLite{db: db, flags: newSession()}, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLite) get(debateID, key string) (string, bool, error) {
	var e entry
	err := s.db.Where("debate_id = ? AND key = ?", debateID, key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *SQLite) put(debateID, key, value string) error {
	e := entry{DebateID: debateID, Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.Save(&e).Error
}

func (s *SQLite) Side(debateID string) (debate.Side, bool, error) {
	raw, ok, err := s.get(debateID, keySide)
	if err != nil || !ok {
		return "", false, err
	}
	side := debate.Side(raw)
	if !side.Valid() {
		// A corrupt row reads as no choice at all.
		return "", false, nil
	}
	return side, true, nil
}

func (s *SQLite) SetSide(debateID string, side debate.Side) error {
	return s.put(debateID, keySide, string(side))
}

func (s *SQLite) ClearSide(debateID string) error {
	return s.db.Where("debate_id = ? AND key = ?", debateID, keySide).Delete(&entry{}).Error
}

func (s *SQLite) StatsRecorded(debateID string) (bool, error) {
	_, ok, err := s.get(debateID, keyStats)
	return ok, err
}

func (s *SQLite) MarkStatsRecorded(debateID string) error {
	return s.put(debateID, keyStats, "1")
}

func (s *SQLite) MicAsked(debateID string) bool {
	return s.flags.micAskedFor(debateID)
}

func (s *SQLite) SetMicAsked(debateID string, asked bool) {
	s.flags.setMicAsked(debateID, asked)
}
