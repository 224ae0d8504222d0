package trails

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/hikeplanner/internal/fileid"
	"github.com/hyperjump/hikeplanner/internal/importer"
	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/storage"
)

// ImportReport summarizes one imported file.
type ImportReport struct {
	Path     string   `json:"path"`
	Imported int      `json:"imported"`
	Removed  int      `json:"removed"`
	Skipped  []string `json:"skipped,omitempty"`
}

// ImportFile parses a trail file and upserts its trails. Trails without an ID get one derived
// from the absolute path and their position in the file, so re-importing replaces them.
// Trails previously imported from the same file but no longer in it are deleted.
// Invalid trails are skipped and reported, as are trails whose ID already belongs to another
// file or to a trail created through the API. A file that cannot be parsed is an error.
func (s *Service) ImportFile(ctx context.Context, path string, allowedExts []string) (*ImportReport, error) {
	s.logger.Debug("importing file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	parsed, err := s.parser.Parse(absPath)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", absPath, err)
	}

	report := &ImportReport{Path: absPath}
	kept := make(map[string]bool, len(parsed))
	var valid []*models.Trail
	for i, t := range parsed {
		if t.ID == "" {
			t.ID = fileid.TrailID(absPath, i)
		}
		t.Normalize()
		t.PartitionKey = t.Location.Region
		t.Source = absPath
		if err := t.Validate(); err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("trail %d (%s): %v", i+1, t.Name, err))
			continue
		}
		owner, err := s.ownerOf(ctx, t)
		if err != nil {
			return nil, err
		}
		if owner != absPath && owner != "" {
			report.Skipped = append(report.Skipped, fmt.Sprintf("trail %d (%s): id %q already belongs to %s", i+1, t.Name, t.ID, owner))
			continue
		}
		if err := s.store.Upsert(ctx, t); err != nil {
			return nil, err
		}
		kept[t.PartitionKey+"/"+t.ID] = true
		valid = append(valid, t)
		report.Imported++
	}
	if s.index != nil && len(valid) > 0 {
		if err := s.index.IndexBatch(ctx, valid); err != nil {
			return nil, fmt.Errorf("failed to index trails: %w", err)
		}
	}

	previous, err := s.store.ListBySource(ctx, absPath)
	if err != nil {
		return nil, err
	}
	for _, t := range previous {
		if kept[t.PartitionKey+"/"+t.ID] {
			continue
		}
		if err := s.Delete(ctx, t.ID, t.PartitionKey); err != nil {
			return nil, err
		}
		report.Removed++
	}

	s.logger.Debug("file imported", zap.String("path", absPath),
		zap.Int("imported", report.Imported), zap.Int("removed", report.Removed), zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// ownerOf returns where an existing trail with t's ID and region came from: its source file,
// a note for trails created outside imports, or "" when there is no such trail.
func (s *Service) ownerOf(ctx context.Context, t *models.Trail) (string, error) {
	existing, err := s.store.Get(ctx, t.ID, t.PartitionKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if existing.Source == "" {
		return "a trail created outside imports", nil
	}
	return existing.Source, nil
}

// ImportDirectory walks dir recursively and imports each regular file whose extension is in
// allowedExts. It stops at the first file that fails to import.
func (s *Service) ImportDirectory(ctx context.Context, dir string, allowedExts []string) ([]*ImportReport, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var reports []*ImportReport
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !extensionAllowed(strings.ToLower(filepath.Ext(path)), allowedExts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		report, importErr := s.ImportFile(ctx, path, allowedExts)
		if importErr != nil {
			return importErr
		}
		reports = append(reports, report)
		return nil
	})
	return reports, err
}

// RemoveSource deletes every trail imported from path. It returns the number removed.
func (s *Service) RemoveSource(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	trails, err := s.store.ListBySource(ctx, absPath)
	if err != nil {
		return 0, err
	}
	for _, t := range trails {
		if err := s.Delete(ctx, t.ID, t.PartitionKey); err != nil {
			return 0, err
		}
	}
	s.logger.Debug("source removed", zap.String("path", absPath), zap.Int("trails", len(trails)))
	return len(trails), nil
}

// extensionAllowed reports whether ext is in allowed. An empty list allows every format
// the parser understands.
func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		allowed = importer.Extensions
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
