package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/araujobsd/ndmpd/internal/catalog"
)

// entryModel is the GORM row shape for catalog.Entry.
type entryModel struct {
	ID       uint64 `gorm:"primaryKey"`
	BackupID string `gorm:"uniqueIndex:idx_backup_path"`
	Path     string `gorm:"uniqueIndex:idx_backup_path"`
	Node     uint64
	Size     uint64
	Mtime    time.Time
	IsDir    bool
}

func (entryModel) TableName() string { return "catalog_entries" }

func toModel(e catalog.Entry) entryModel {
	return entryModel{BackupID: e.BackupID, Path: e.Path, Node: e.Node, Size: e.Size, Mtime: e.Mtime, IsDir: e.IsDir}
}

func fromModel(m entryModel) catalog.Entry {
	return catalog.Entry{BackupID: m.BackupID, Path: m.Path, Node: m.Node, Size: m.Size, Mtime: m.Mtime, IsDir: m.IsDir}
}

// Store is a catalog.Store backed by PostgreSQL via GORM.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL, applies catalog migrations, and returns a
// ready Store.
func Open(ctx context.Context, cfg *Config, log *slog.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, cfg.DSN(), log); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog/postgres: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("catalog/postgres: underlying db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, entries []catalog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]entryModel, len(entries))
	for i, e := range entries {
		rows[i] = toModel(e)
	}
	err := s.db.WithContext(ctx).
		Clauses(onConflictUpdate()).
		CreateInBatches(rows, 500).Error
	if err != nil {
		return fmt.Errorf("catalog/postgres: record: %w", err)
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, backupID, path string) (catalog.Entry, bool, error) {
	var row entryModel
	err := s.db.WithContext(ctx).
		Where("backup_id = ? AND path = ?", backupID, path).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return catalog.Entry{}, false, nil
	}
	if err != nil {
		return catalog.Entry{}, false, fmt.Errorf("catalog/postgres: lookup %s: %w", path, err)
	}
	return fromModel(row), true, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
