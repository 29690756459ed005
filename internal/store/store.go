// Package store persists the backup catalog and the version-resolution cache
// in a SQLite database. The server registry itself lives in its own JSON
// document (package registry); this store only holds data that outlives or
// sits beside registry entries.
package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"blockdock/internal/domain"
)

type backupRecord struct {
	ID         string `gorm:"primaryKey"`
	ServerName string `gorm:"index"`
	Path       string
	Size       int64
	Checksum   string
	CreatedAt  time.Time
}

type resolution struct {
	// Key is "<type>/<tag>", e.g. "PAPER/LATEST".
	Key         string `gorm:"primaryKey"`
	Version     string
	ArtifactURL string
	Checksum    string
	ResolvedAt  time.Time
}

// Store is the SQLite-backed catalog handle.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Store, error) {
	newLogger := gormlogger.New(
		log.New(os.Stderr, "", log.LstdFlags),
		gormlogger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Error,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&backupRecord{}, &resolution{}); err != nil {
		return nil, fmt.Errorf("error migrating catalog database: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveBackup inserts a new backup record. Records are never updated in place.
func (s *Store) SaveBackup(rec *domain.BackupRecord) error {
	row := &backupRecord{
		ID:         rec.ID,
		ServerName: rec.ServerName,
		Path:       rec.Path,
		Size:       rec.Size,
		Checksum:   rec.Checksum,
		CreatedAt:  rec.CreatedAt,
	}
	return s.db.Create(row).Error
}

// ListBackups returns all records, newest first, optionally filtered by
// server name.
func (s *Store) ListBackups(serverName string) ([]domain.BackupRecord, error) {
	query := s.db.Order("created_at DESC")
	if serverName != "" {
		query = query.Where("server_name = ?", serverName)
	}

	var rows []backupRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]domain.BackupRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.BackupRecord{
			ID:         row.ID,
			ServerName: row.ServerName,
			Path:       row.Path,
			Size:       row.Size,
			Checksum:   row.Checksum,
			CreatedAt:  row.CreatedAt,
		})
	}
	return records, nil
}

// GetBackup looks a record up by its ID, returning nil when it does not
// exist.
func (s *Store) GetBackup(id string) (*domain.BackupRecord, error) {
	var row backupRecord
	result := s.db.First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying backup: %w", result.Error)
	}

	return &domain.BackupRecord{
		ID:         row.ID,
		ServerName: row.ServerName,
		Path:       row.Path,
		Size:       row.Size,
		Checksum:   row.Checksum,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// GetBackupByPath looks a record up by its archive path.
func (s *Store) GetBackupByPath(path string) (*domain.BackupRecord, error) {
	var row backupRecord
	result := s.db.First(&row, "path = ?", path)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying backup: %w", result.Error)
	}

	return &domain.BackupRecord{
		ID:         row.ID,
		ServerName: row.ServerName,
		Path:       row.Path,
		Size:       row.Size,
		Checksum:   row.Checksum,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// DeleteBackup removes the record with the given ID.
func (s *Store) DeleteBackup(id string) error {
	return s.db.Delete(&backupRecord{}, "id = ?", id).Error
}

// SaveResolution upserts the cached resolution for (type, tag).
func (s *Store) SaveResolution(rv domain.ResolvedVersion) error {
	row := resolution{
		Key:         resolutionKey(rv.Type, rv.Tag),
		Version:     rv.Version,
		ArtifactURL: rv.ArtifactURL,
		Checksum:    rv.Checksum,
		ResolvedAt:  rv.ResolvedAt,
	}
	return s.db.Save(&row).Error
}

// GetResolution returns the cached resolution for (type, tag), or nil if none
// has been stored.
func (s *Store) GetResolution(serverType domain.ServerType, tag string) (*domain.ResolvedVersion, error) {
	var row resolution
	result := s.db.First(&row, "key = ?", resolutionKey(serverType, tag))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &domain.ResolvedVersion{
		Type:        serverType,
		Tag:         tag,
		Version:     row.Version,
		ArtifactURL: row.ArtifactURL,
		Checksum:    row.Checksum,
		ResolvedAt:  row.ResolvedAt,
	}, nil
}

func resolutionKey(serverType domain.ServerType, tag string) string {
	return fmt.Sprintf("%s/%s", serverType, tag)
}
