// Package history keeps a journal of the parameters that produced every
// generated image.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	KindTextToImage  = "txt2img"
	KindImageToImage = "img2img"
)

var ErrNotFound = errors.New("no history for image")

type Record struct {
	Filename       string `gorm:"primaryKey"`
	Kind           string `gorm:"index"`
	Prompt         string
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Width          int
	Height         int
	Strength       float64
	Backend        string
	Model          string
	DurationMS     int64
	CreatedAt      time.Time
}

type Store struct {
	db *gorm.DB
}

// Open opens (creating it if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %q: %w", path, err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Add(ctx context.Context, r Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&r).Error
}

func (s *Store) Get(ctx context.Context, filename string) (*Record, error) {
	r := &Record{}
	if err := s.db.WithContext(ctx).First(r, "filename = ?", filename).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// Lookup returns the records for the given files, keyed by file name. Files
// without a record are absent from the map.
func (s *Store) Lookup(ctx context.Context, filenames []string) (map[string]Record, error) {
	if len(filenames) == 0 {
		return map[string]Record{}, nil
	}
	var records []Record
	if err := s.db.WithContext(ctx).Where("filename IN ?", filenames).Find(&records).Error; err != nil {
		return nil, err
	}
	return lo.KeyBy(records, func(r Record) string { return r.Filename }), nil
}

func (s *Store) Remove(ctx context.Context, filename string) error {
	return s.db.WithContext(ctx).Delete(&Record{}, "filename = ?", filename).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
