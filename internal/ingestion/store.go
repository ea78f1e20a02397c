package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRetentionDays is how long saved attachments are kept before the
// retention sweep removes them
const DefaultRetentionDays = 7

// resumeExtensions lists file types the store considers resumes
var resumeExtensions = []string{".pdf", ".docx", ".txt"}

// Store manages the resume attachment directory. If the configured
// directory cannot be created, it falls back to a temporary directory
// rather than failing the fetch.
type Store struct {
	mu  sync.Mutex
	dir string
	log *zap.Logger
}

// NewStore creates a store rooted at dir
func NewStore(dir string, log *zap.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// Dir returns the directory resumes are currently written to
func (s *Store) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// ensureDir creates the resume directory, switching to a temporary
// directory when creation fails. Must be called with s.mu held.
func (s *Store) ensureDir() (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Error("failed to create resume directory, using temp dir",
			zap.String("dir", s.dir), zap.Error(err))
		tmp, tmpErr := os.MkdirTemp("", "resumes")
		if tmpErr != nil {
			return "", fmt.Errorf("failed to create resume directory: %w", err)
		}
		s.dir = tmp
	}
	return s.dir, nil
}

// Save writes attachment data under the resume directory and returns the
// saved path
func (s *Store) Save(filename string, data []byte) (string, error) {
	s.mu.Lock()
	dir, err := s.ensureDir()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return path, nil
}

// ListResumes returns resume files in the store, most recently modified
// first
func (s *Store) ListResumes() ([]string, error) {
	dir := s.Dir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read resume directory: %w", err)
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isResumeFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// Sweep deletes resume files older than the retention period, by file
// modification time. It runs independently of matching activity; per-file
// delete failures are logged and skipped.
func (s *Store) Sweep(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	dir := s.Dir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read resume directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.log.Warn("could not delete old resume",
				zap.String("path", path), zap.Error(err))
			continue
		}
		deleted++
		s.log.Info("deleted old resume", zap.String("path", path))
	}

	return deleted, nil
}

func isResumeFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range resumeExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
