package shots

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	ManifestFile = "manifest.txt"
	ReportFile   = "manifest.json"
)

var (
	ErrNotFound    = errors.New("screenshot not found")
	ErrInvalidName = errors.New("invalid screenshot filename")
)

var filenameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*\.png$`)

// Entry kinds and statuses recorded in the JSON report.
const (
	KindPage       = "page"
	KindErrorState = "error_state"

	StatusCaptured = "captured"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// Entry is one capture attempt.
type Entry struct {
	Filename   string `json:"filename"`
	Page       string `json:"page"`
	Viewport   string `json:"viewport"`
	Kind       string `json:"kind"`
	URL        string `json:"url,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Report is the machine-readable companion of manifest.txt.
type Report struct {
	RunID      string    `json:"run_id"`
	BaseURL    string    `json:"base_url"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Captured   []string  `json:"captured"`
	Errors     []string  `json:"errors"`
	Entries    []Entry   `json:"entries"`
}

// ImageInfo describes a screenshot file on disk.
type ImageInfo struct {
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Store owns the output directory: screenshots, manifest.txt and manifest.json.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists. Safe to call repeatedly.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shots store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute-or-relative path for a screenshot filename.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// ValidateName rejects anything that is not a bare png filename.
func ValidateName(filename string) error {
	if !filenameRe.MatchString(filename) {
		return fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return nil
}

// RenderManifest produces the plain-text manifest for a run.
func RenderManifest(captured, failed []string) []byte {
	var b bytes.Buffer
	b.WriteString("Screenshots captured:\n")
	for _, name := range captured {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	if len(failed) > 0 {
		b.WriteString("\nFailed:\n")
		for _, name := range failed {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	return b.Bytes()
}

// WriteManifest overwrites manifest.txt.
func (s *Store) WriteManifest(captured, failed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, ManifestFile)
	if err := os.WriteFile(path, RenderManifest(captured, failed), 0o644); err != nil {
		return fmt.Errorf("shots store: write manifest: %w", err)
	}
	return nil
}

// ReadManifest returns the last written manifest.txt.
func (s *Store) ReadManifest() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ManifestFile)
		}
		return nil, fmt.Errorf("shots store: read manifest: %w", err)
	}
	return data, nil
}

// WriteReport overwrites manifest.json.
func (s *Store) WriteReport(report Report) error {
	if report.Captured == nil {
		report.Captured = []string{}
	}
	if report.Errors == nil {
		report.Errors = []string{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("shots store: marshal report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.dir, ReportFile), data, 0o644); err != nil {
		return fmt.Errorf("shots store: write report: %w", err)
	}
	return nil
}

// ReadReport returns the last written manifest.json.
func (s *Store) ReadReport() (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, ReportFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Report{}, fmt.Errorf("%w: %s", ErrNotFound, ReportFile)
		}
		return Report{}, fmt.Errorf("shots store: read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("shots store: unmarshal report: %w", err)
	}
	return report, nil
}

// List returns all png files sorted by filename.
func (s *Store) List() ([]ImageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.png"))
	if err != nil {
		return nil, fmt.Errorf("shots store: glob: %w", err)
	}

	out := make([]ImageInfo, 0, len(matches))
	for _, path := range matches {
		st, err := os.Stat(path)
		if err != nil {
			slog.Debug("screenshot stat failed", "path", path, "error", err)
			continue
		}
		out = append(out, ImageInfo{
			Filename:   filepath.Base(path),
			SizeBytes:  st.Size(),
			ModifiedAt: st.ModTime().UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Filename < out[j].Filename
	})
	return out, nil
}

// ReadImage returns the raw png bytes for a filename.
func (s *Store) ReadImage(filename string) ([]byte, error) {
	filename = strings.TrimSpace(filename)
	if err := ValidateName(filename); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("shots store: read image: %w", err)
	}
	return data, nil
}
