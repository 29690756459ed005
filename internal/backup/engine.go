// Package backup archives and restores server data directories. Archives are
// gzip-compressed tarballs so any standard tooling can inspect them; every
// archive carries a sha256 checksum in the catalog for integrity checks at
// restore time.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"blockdock/internal/domain"
)

// Catalog is the persistence the engine needs for backup records.
type Catalog interface {
	SaveBackup(rec *domain.BackupRecord) error
	GetBackup(id string) (*domain.BackupRecord, error)
	GetBackupByPath(path string) (*domain.BackupRecord, error)
	ListBackups(serverName string) ([]domain.BackupRecord, error)
	DeleteBackup(id string) error
}

// StatusFunc reports the live runtime status of a named server. The engine
// re-checks it at the moment of invocation so a torn data directory is never
// captured, even if the caller's earlier check has gone stale.
type StatusFunc func(ctx context.Context, serverName string) (domain.RuntimeStatus, error)

// Engine writes archives into a dedicated backups directory and records them
// in the catalog.
type Engine struct {
	dir     string
	catalog Catalog
	status  StatusFunc
	log     *slog.Logger

	now func() time.Time
}

// New returns an engine writing archives under dir.
func New(dir string, catalog Catalog, status StatusFunc, log *slog.Logger) *Engine {
	return &Engine{
		dir:     dir,
		catalog: catalog,
		status:  status,
		log:     log,
		now:     time.Now,
	}
}

// Backup archives dataPath into a new tar.gz under the backups directory and
// records it in the catalog. A RUNNING server is refused.
func (e *Engine) Backup(ctx context.Context, serverName, dataPath string) (domain.BackupRecord, error) {
	var zero domain.BackupRecord

	status, err := e.status(ctx, serverName)
	if err != nil {
		return zero, err
	}
	if status == domain.StatusRunning {
		return zero, fmt.Errorf("%w: stop %q before taking a backup", domain.ErrServerRunning, serverName)
	}

	if info, err := os.Stat(dataPath); err != nil || !info.IsDir() {
		return zero, fmt.Errorf("data directory %s is not readable: %w", dataPath, err)
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return zero, err
	}

	createdAt := e.now().UTC()
	archivePath := filepath.Join(e.dir,
		fmt.Sprintf("%s-%s.tar.gz", serverName, createdAt.Format("20060102-150405")))

	checksum, size, err := e.writeArchive(archivePath, dataPath)
	if err != nil {
		return zero, err
	}

	rec := domain.BackupRecord{
		ID:         uuid.NewString(),
		ServerName: serverName,
		Path:       archivePath,
		Size:       size,
		Checksum:   checksum,
		CreatedAt:  createdAt,
	}
	if err := e.catalog.SaveBackup(&rec); err != nil {
		os.Remove(archivePath)
		return zero, fmt.Errorf("recording backup: %w", err)
	}

	e.log.Info("backup created",
		"server", serverName, "archive", archivePath, "size", size)
	return rec, nil
}

// writeArchive streams dataPath into a tar.gz at archivePath, building it in
// a temp file first so a crash never leaves a half-written archive under the
// final name. Returns the archive's checksum and size.
func (e *Engine) writeArchive(archivePath, dataPath string) (string, int64, error) {
	tmp, err := os.CreateTemp(e.dir, ".backup-*")
	if err != nil {
		return "", 0, err
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	hash := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(tmp, hash))
	tw := tar.NewWriter(gz)

	err = filepath.WalkDir(dataPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dataPath, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil // sockets, pipes and symlinks are not world data
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return "", 0, fmt.Errorf("archiving %s: %w", dataPath, err)
	}

	if err := tw.Close(); err != nil {
		return "", 0, err
	}
	if err := gz.Close(); err != nil {
		return "", 0, err
	}
	if err := tmp.Sync(); err != nil {
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}

	info, err := os.Stat(tmpName)
	if err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmpName, archivePath); err != nil {
		return "", 0, err
	}

	return "sha256:" + hex.EncodeToString(hash.Sum(nil)), info.Size(), nil
}

// Restore replaces dataPath with the contents of archivePath. A RUNNING
// server is refused. The existing data directory is moved aside, not deleted,
// until extraction succeeds, so a corrupt archive never leaves the server
// worse off than before the attempt.
func (e *Engine) Restore(ctx context.Context, serverName, dataPath, archivePath string) error {
	status, err := e.status(ctx, serverName)
	if err != nil {
		return err
	}
	if status == domain.StatusRunning {
		return fmt.Errorf("%w: stop %q before restoring", domain.ErrServerRunning, serverName)
	}

	if err := e.verifyArchive(archivePath); err != nil {
		return err
	}

	aside := ""
	if _, err := os.Stat(dataPath); err == nil {
		aside = fmt.Sprintf("%s.pre-restore-%s", dataPath, e.now().UTC().Format("20060102-150405"))
		if err := os.Rename(dataPath, aside); err != nil {
			return fmt.Errorf("moving current data aside: %w", err)
		}
	}

	if err := e.extract(archivePath, dataPath); err != nil {
		os.RemoveAll(dataPath)
		if aside != "" {
			if rerr := os.Rename(aside, dataPath); rerr != nil {
				e.log.Error("could not move original data back",
					"server", serverName, "aside", aside, "error", rerr)
			}
		}
		return err
	}

	if aside != "" {
		if err := os.RemoveAll(aside); err != nil {
			e.log.Warn("could not remove pre-restore copy", "path", aside, "error", err)
		}
	}

	e.log.Info("backup restored", "server", serverName, "archive", archivePath)
	return nil
}

// verifyArchive checks the archive's sha256 against the catalog record, when
// one exists. An archive the catalog has never seen is restored as-is with a
// warning; a mismatch is a hard failure.
func (e *Engine) verifyArchive(archivePath string) error {
	rec, err := e.catalog.GetBackupByPath(archivePath)
	if err != nil {
		return err
	}
	if rec == nil {
		e.log.Warn("archive not in catalog, skipping integrity check", "archive", archivePath)
		return nil
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return err
	}

	got := "sha256:" + hex.EncodeToString(hash.Sum(nil))
	if got != rec.Checksum {
		return fmt.Errorf("%w: checksum %s does not match recorded %s",
			domain.ErrCorruptBackup, got, rec.Checksum)
	}
	return nil
}

func (e *Engine) extract(archivePath, dataPath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCorruptBackup, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return err
	}

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCorruptBackup, err)
		}

		target, err := securePath(dataPath, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, header.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, header.FileInfo().Mode())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}

// securePath rejects entries that would escape the extraction root.
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: entry %q escapes archive root", domain.ErrCorruptBackup, name)
	}
	return target, nil
}

// List returns catalog records, newest first, optionally filtered by server.
func (e *Engine) List(serverName string) ([]domain.BackupRecord, error) {
	return e.catalog.ListBackups(serverName)
}

// Delete removes a backup record and its archive file.
func (e *Engine) Delete(id string) error {
	rec, err := e.catalog.GetBackup(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: backup %q", domain.ErrNotFound, id)
	}

	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing archive: %w", err)
	}
	if err := e.catalog.DeleteBackup(id); err != nil {
		return err
	}

	e.log.Info("backup deleted", "id", id, "archive", rec.Path)
	return nil
}
