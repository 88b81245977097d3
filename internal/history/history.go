// Package history is an optional, off-by-default run-history store,
// adapted from the teacher's internal/repository + gorm.io/gorm +
// github.com/mattn/go-sqlite3 stack. It is new functionality relative to
// spec.md (which is silent on cross-run history): each completed update
// records its parameters and estimate to a local SQLite file when
// --history-db PATH is given, purely as a queryable audit trail. It never
// participates in the per-update correctness path (internal/orchestrator
// treats it as fire-and-forget) and is skipped entirely when no path is
// configured.
package history

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one recorded update's parameters and result, mirroring the fields
// the orchestrator knows about a single SAMPLE+COUNT cycle.
type Run struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Seed             int64     `gorm:"column:seed"`
	Colors           uint32    `gorm:"column:colors"`
	SampleSize       int       `gorm:"column:sample_size"`
	P                float64   `gorm:"column:p"`
	MisraGriesK      int       `gorm:"column:misra_gries_k"`
	TopT             int       `gorm:"column:top_t"`
	UpdateIndex      int       `gorm:"column:update_index"`
	UpdateFile       string    `gorm:"column:update_file;type:varchar(512)"`
	TriangleEstimate int64     `gorm:"column:triangle_estimate"`
	ElapsedMS        int64     `gorm:"column:elapsed_ms"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name, following the teacher's HotmethodTask
// TableName convention.
func (Run) TableName() string {
	return "estimator_run"
}

// Store persists Run records to a local SQLite file.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// migrates the Run schema into it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %q: %w", path, err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts one completed update's run record.
func (s *Store) Record(r Run) error {
	if s == nil {
		return nil
	}
	return s.db.Create(&r).Error
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
