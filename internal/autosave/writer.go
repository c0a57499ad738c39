// Package autosave keeps one JSON snapshot file per session so edits survive
// a restart.
package autosave

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/clips"
	"github.com/heimdex/clip-agent/internal/logging"
)

const (
	fileExt = ".json"

	// DefaultRetention is how long an untouched snapshot survives the
	// startup sweep.
	DefaultRetention = 5 * 24 * time.Hour

	unknown = "unknown"
)

// Summary describes one snapshot file without loading it into a session.
type Summary struct {
	FilePath     string    `json:"file_path"`
	Filename     string    `json:"filename"`
	SessionID    string    `json:"session_id"`
	ClipsCount   int       `json:"clips_count"`
	CreatedAt    string    `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// Writer persists session snapshots under a single directory.
type Writer struct {
	dir    string
	clock  clockwork.Clock
	logger *slog.Logger
}

var _ clips.SnapshotStore = (*Writer)(nil)

// NewWriter creates the directory if needed.
func NewWriter(dir string, clock clockwork.Clock, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create auto-save directory: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Writer{
		dir:    dir,
		clock:  clock,
		logger: logging.WithComponent(logging.OrDiscard(logger), "autosave"),
	}, nil
}

func (w *Writer) Dir() string {
	return w.dir
}

// Persist replaces the session's snapshot file. Sessions without clips are
// never written. The file is written to a temp name and renamed into place
// so a reader never observes a partial document.
func (w *Writer) Persist(snap clips.Snapshot) error {
	if len(snap.Clips) == 0 {
		return nil
	}
	if err := checkName(snap.SessionID + fileExt); err != nil {
		return err
	}

	data, err := encode(snap)
	if err != nil {
		return apperrors.Internal("encode snapshot", err)
	}

	path := filepath.Join(w.dir, snap.SessionID+fileExt)
	if err := writeAtomic(w.dir, path, data); err != nil {
		return apperrors.IO("failed to write auto-save", err)
	}

	w.logger.Debug("snapshot written", "session_id", snap.SessionID, "clips", len(snap.Clips))
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Sweep deletes snapshot files whose modification time is older than
// retention. A file that cannot be removed is logged and skipped.
func (w *Writer) Sweep(retention time.Duration) (int, error) {
	paths, err := filepath.Glob(filepath.Join(w.dir, "*"+fileExt))
	if err != nil {
		return 0, apperrors.IO("list auto-saves", err)
	}

	cutoff := w.clock.Now().Add(-retention)
	removed := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			w.logger.Warn("stat auto-save failed", "path", path, "error", err)
			continue
		}
		if info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			w.logger.Warn("remove stale auto-save failed", "path", path, "error", err)
			continue
		}
		removed++
		w.logger.Info("removed stale auto-save", "filename", filepath.Base(path), "modified", info.ModTime())
	}
	return removed, nil
}

// summaryDoc reads only what a listing needs and tolerates missing fields.
type summaryDoc struct {
	SessionID *string           `json:"session_id"`
	Clips     []json.RawMessage `json:"clips"`
	CreatedAt json.RawMessage   `json:"created_at"`
}

// List summarizes every snapshot, newest first. Files that do not parse are
// skipped with a warning.
func (w *Writer) List() ([]Summary, error) {
	paths, err := filepath.Glob(filepath.Join(w.dir, "*"+fileExt))
	if err != nil {
		return nil, apperrors.IO("list auto-saves", err)
	}

	summaries := make([]Summary, 0, len(paths))
	for _, path := range paths {
		s, err := summarize(path)
		if err != nil {
			w.logger.Warn("skipping unreadable auto-save", "path", path, "error", err)
			continue
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastModified.After(summaries[j].LastModified)
	})
	return summaries, nil
}

func summarize(path string) (Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Summary{}, err
	}
	if info.IsDir() {
		return Summary{}, errors.New("is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, err
	}

	var doc summaryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Summary{}, err
	}

	s := Summary{
		FilePath:     path,
		Filename:     filepath.Base(path),
		SessionID:    unknown,
		ClipsCount:   len(doc.Clips),
		CreatedAt:    unknown,
		LastModified: info.ModTime(),
	}
	if doc.SessionID != nil {
		s.SessionID = *doc.SessionID
	}
	var created string
	if len(doc.CreatedAt) > 0 && json.Unmarshal(doc.CreatedAt, &created) == nil && created != "" {
		s.CreatedAt = created
	}
	return s, nil
}

// Read loads one snapshot by file name. The name must be a plain file name
// inside the auto-save directory.
func (w *Writer) Read(filename string) (*clips.Snapshot, error) {
	if err := checkName(filename); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(w.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("auto-save %s not found", filename)
		}
		return nil, apperrors.IO("failed to read auto-save", err)
	}

	var snap clips.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, apperrors.IO(fmt.Sprintf("auto-save %s is corrupt", filename), err)
	}
	return &snap, nil
}

func checkName(name string) error {
	switch {
	case name == "" || name == fileExt:
		return apperrors.Validation("file name is required")
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return apperrors.Validation("invalid file name %q", name)
	}
	return nil
}
