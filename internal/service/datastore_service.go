package service

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Niraj-Kamdar/datastore/internal/cache"
	"github.com/Niraj-Kamdar/datastore/internal/task"
	"github.com/Niraj-Kamdar/datastore/internal/transfer"
)

// FileQuery selects files in a user's data directory by glob pattern and
// modification-time window. Filtering happens here, before the transfer
// loop runs, never inside it.
type FileQuery struct {
	Pattern  string     // glob, defaults to "*"
	FromDate *time.Time // inclusive lower bound on mtime
	ToDate   *time.Time // inclusive upper bound on mtime
}

// Archive is a prepared download: a zip file packaged in a scratch
// directory, removed once streaming finishes (or is aborted).
type Archive struct {
	Name string

	path    string
	scratch string
}

// Discard removes the scratch directory without streaming. Used when the
// caller fails between preparation and streaming.
func (a *Archive) Discard() error {
	return os.RemoveAll(a.scratch)
}

// DatastoreService runs file transfers under task control. Every method
// first claims the task (conflict if already assigned), then drives the
// chunked engine against it.
type DatastoreService interface {
	// Upload streams src into the owner's data directory under filename.
	// On abort the partially written file is removed and ErrTaskAborted
	// is returned.
	Upload(ctx context.Context, taskID, owner, filename string, src io.Reader) error

	// PrepareArchive claims the task, selects the owner's files matching q
	// and packages them into a zip archive ready for streaming.
	PrepareArchive(ctx context.Context, taskID, owner string, q FileQuery) (*Archive, error)

	// StreamArchive copies the prepared archive into dst chunk by chunk
	// under task control, then removes the scratch directory. On abort the
	// stream stops short and ErrTaskAborted is returned.
	StreamArchive(ctx context.Context, taskID string, archive *Archive, dst io.Writer) error

	// Delete removes the owner's files matching q, one path per loop
	// iteration under task control.
	Delete(ctx context.Context, taskID, owner string, q FileQuery) error
}

type datastoreService struct {
	dataDir  string
	registry *task.Registry
	engine   *transfer.Engine
	log      *zap.Logger
}

func NewDatastoreService(dataDir string, registry *task.Registry, engine *transfer.Engine, log *zap.Logger) DatastoreService {
	return &datastoreService{
		dataDir:  dataDir,
		registry: registry,
		engine:   engine,
		log:      log,
	}
}

func (s *datastoreService) Upload(ctx context.Context, taskID, owner, filename string, src io.Reader) error {
	if err := s.claim(ctx, taskID); err != nil {
		return err
	}

	dir := filepath.Join(s.dataDir, owner)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	dest := filepath.Join(dir, filepath.Base(filename))

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}

	outcome, err := s.engine.Copy(ctx, taskID, f, src)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close destination file: %w", cerr)
	}
	if err != nil {
		return err
	}
	if outcome == transfer.OutcomeAborted {
		if err := os.Remove(dest); err != nil {
			s.log.Warn("failed to remove partial upload", zap.String("path", dest), zap.Error(err))
		}
		return ErrTaskAborted
	}
	s.log.Info("file uploaded", zap.String("task_id", taskID), zap.String("path", dest))
	return nil
}

func (s *datastoreService) PrepareArchive(ctx context.Context, taskID, owner string, q FileQuery) (*Archive, error) {
	if err := s.claim(ctx, taskID); err != nil {
		return nil, err
	}

	paths, err := s.matchFiles(owner, q)
	if err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp("", "datastore-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	name := time.Now().Format("2006-01-02T15-04-05") + ".zip"
	zipPath := filepath.Join(scratch, name)
	if err := buildZip(zipPath, paths); err != nil {
		os.RemoveAll(scratch)
		return nil, err
	}
	return &Archive{Name: name, path: zipPath, scratch: scratch}, nil
}

func (s *datastoreService) StreamArchive(ctx context.Context, taskID string, archive *Archive, dst io.Writer) error {
	defer func() {
		if err := os.RemoveAll(archive.scratch); err != nil {
			s.log.Warn("failed to remove scratch dir", zap.String("path", archive.scratch), zap.Error(err))
		}
	}()

	f, err := os.Open(archive.path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	outcome, err := s.engine.Copy(ctx, taskID, dst, f)
	if err != nil {
		return err
	}
	if outcome == transfer.OutcomeAborted {
		return ErrTaskAborted
	}
	s.log.Info("archive downloaded", zap.String("task_id", taskID), zap.String("archive", archive.Name))
	return nil
}

func (s *datastoreService) Delete(ctx context.Context, taskID, owner string, q FileQuery) error {
	if err := s.claim(ctx, taskID); err != nil {
		return err
	}

	paths, err := s.matchFiles(owner, q)
	if err != nil {
		return err
	}

	outcome, err := s.engine.Purge(ctx, taskID, paths, os.Remove)
	if err != nil {
		return err
	}
	if outcome == transfer.OutcomeAborted {
		return ErrTaskAborted
	}
	s.log.Info("files deleted", zap.String("task_id", taskID), zap.Int("count", len(paths)))
	return nil
}

// claim marks the task assigned so no second transfer can run against it.
func (s *datastoreService) claim(ctx context.Context, taskID string) error {
	err := s.registry.Assign(ctx, taskID)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, task.ErrConflict):
		return ErrTaskAssigned
	}
	return err
}

// matchFiles lists regular files in the owner's directory matching the glob
// pattern whose mtime falls inside the query window.
func (s *datastoreService) matchFiles(owner string, q FileQuery) ([]string, error) {
	pattern := q.Pattern
	if pattern == "" {
		pattern = "*"
	}
	candidates, err := filepath.Glob(filepath.Join(s.dataDir, owner, pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, q.Pattern)
	}

	from := time.Unix(0, 0)
	if q.FromDate != nil {
		from = *q.FromDate
	}
	to := time.Now()
	if q.ToDate != nil {
		to = *q.ToDate
	}

	var paths []string
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		mtime := info.ModTime()
		if mtime.Before(from) || mtime.After(to) {
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// buildZip packages the given files under a top-level data/ directory.
func buildZip(zipPath string, paths []string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, p := range paths {
		src, err := os.Open(p)
		if err != nil {
			zw.Close()
			return fmt.Errorf("open %s: %w", p, err)
		}
		w, err := zw.Create(filepath.Join("data", filepath.Base(p)))
		if err == nil {
			_, err = io.Copy(w, src)
		}
		src.Close()
		if err != nil {
			zw.Close()
			return fmt.Errorf("archive %s: %w", p, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}
