package sqlstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultDSN is used when no database url is configured.
const DefaultDSN = "taskflow.db"

// NewDB opens a SQLite database and runs migrations.
func NewDB(dsn string, log *slog.Logger) (*gorm.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	if log == nil {
		log = slog.Default()
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if isMemoryDSN(dsn) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&categoryRow{}, &taskRow{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	if err := backfillFolds(db); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// backfillFolds fills the search columns of rows written before they existed.
func backfillFolds(db *gorm.DB) error {
	var tasks []taskRow
	if err := db.Where("COALESCE(title_fold, '') = '' AND title <> ''").
		Or("COALESCE(description_fold, '') = '' AND description <> ''").
		Find(&tasks).Error; err != nil {
		return fmt.Errorf("backfill tasks: %w", err)
	}
	for i := range tasks {
		tasks[i].refold()
		if err := db.Model(&tasks[i]).Select("title_fold", "description_fold").Updates(&tasks[i]).Error; err != nil {
			return fmt.Errorf("backfill task %d: %w", tasks[i].ID, err)
		}
	}

	var categories []categoryRow
	if err := db.Where("COALESCE(name_fold, '') = '' AND name <> ''").Find(&categories).Error; err != nil {
		return fmt.Errorf("backfill categories: %w", err)
	}
	for i := range categories {
		categories[i].refold()
		if err := db.Model(&categories[i]).Select("name_fold").Updates(&categories[i]).Error; err != nil {
			return fmt.Errorf("backfill category %d: %w", categories[i].ID, err)
		}
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if isMemoryDSN(dsn) {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
