package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"time-for/domain/history"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is the persisted form of a history entry
type Run struct {
	gorm.Model
	RunID      string `gorm:"uniqueIndex"`
	Query      string
	Text       string
	Strategy   string
	Format     string
	OutputPath string
	Link       string
	Status     history.Status
	Error      string
	StartedAt  time.Time `gorm:"index"`
	DurationMS int64
}

// Store implements history.Recorder and history.Lister on sqlite
type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

// Open opens (creating if needed) the history database at path
func Open(path string, log *logrus.Entry) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}

	// a single connection so concurrent runs never write at the same time
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}

	return &Store{db: db, log: log.WithField("component", "history")}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores a finished run
func (s *Store) Record(ctx context.Context, e history.Entry) error {
	run := Run{
		RunID:      e.RunID,
		Query:      e.Query,
		Text:       e.Text,
		Strategy:   e.Strategy,
		Format:     e.Format,
		OutputPath: e.OutputPath,
		Link:       e.Link,
		Status:     e.Status,
		Error:      e.Error,
		StartedAt:  e.StartedAt,
		DurationMS: e.Duration.Milliseconds(),
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record run %s: %w", e.RunID, err)
	}
	s.log.WithFields(logrus.Fields{"run": e.RunID, "status": e.Status}).Debug("recorded run")
	return nil
}

// Recent returns up to limit runs, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	err := s.db.WithContext(ctx).
		Order("started_at desc").
		Order("id desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]history.Entry, 0, len(runs))
	for _, r := range runs {
		result = append(result, history.Entry{
			RunID:      r.RunID,
			Query:      r.Query,
			Text:       r.Text,
			Strategy:   r.Strategy,
			Format:     r.Format,
			OutputPath: r.OutputPath,
			Link:       r.Link,
			Status:     r.Status,
			Error:      r.Error,
			StartedAt:  r.StartedAt,
			Duration:   time.Duration(r.DurationMS) * time.Millisecond,
		})
	}
	return result, nil
}

var (
	_ history.Recorder = (*Store)(nil)
	_ history.Lister   = (*Store)(nil)
)
