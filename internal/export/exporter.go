// Package export writes a session's timeline to disk for other tools.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/clips"
	"github.com/heimdex/clip-agent/internal/logging"
)

const (
	defaultFrameRate = 30.0
	maxCollisions    = 1000
)

// Exporter turns session snapshots into export files.
type Exporter struct {
	clock  clockwork.Clock
	logger *slog.Logger
}

func NewExporter(clock clockwork.Clock, logger *slog.Logger) *Exporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Exporter{
		clock:  clock,
		logger: logging.WithComponent(logging.OrDiscard(logger), "export"),
	}
}

// Export writes snap to a new file under opts.OutputDir. An existing file is
// never overwritten: a name already taken gets a numeric suffix.
func (e *Exporter) Export(snap clips.Snapshot, opts Options) (Result, error) {
	if len(snap.Clips) == 0 {
		return Result{}, apperrors.EmptySession(snap.SessionID)
	}

	dir := opts.OutputDir
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}

	now := e.clock.Now()
	format := strings.ToLower(strings.TrimSpace(opts.Format))

	var (
		data []byte
		base string
		ext  string
		err  error
	)
	switch format {
	case "", FormatJSON:
		format = FormatJSON
		data, err = encodeDocument(Document{
			Clips:      snap.Clips,
			ExportedAt: clips.NewTimestamp(now),
			SessionID:  snap.SessionID,
		})
		if err != nil {
			return Result{}, apperrors.Internal("encode export", err)
		}
		base, ext = fmt.Sprintf("clips_%d", now.Unix()), ".json"

	case FormatEDL:
		project := SanitizeName(opts.ProjectName, 120)
		if project == "" {
			project = fmt.Sprintf("clips_%d", now.Unix())
		}
		frameRate := opts.FrameRate
		if frameRate <= 0 {
			frameRate = defaultFrameRate
		}
		events, err := resolveClips(snap.Clips)
		if err != nil {
			return Result{}, err
		}
		data = []byte(GenerateEDL(events, project, frameRate))
		base, ext = project, ".edl"

	default:
		return Result{}, apperrors.Validation("unsupported export format %q", opts.Format)
	}

	path, err := writeExclusive(dir, base, ext, data)
	if err != nil {
		return Result{}, apperrors.IO("failed to write export file", err)
	}

	e.logger.Info("session exported",
		"session_id", snap.SessionID,
		"format", format,
		"clips", len(snap.Clips),
		"path", path,
	)
	return Result{
		FilePath:  path,
		Filename:  filepath.Base(path),
		Format:    format,
		ClipCount: len(snap.Clips),
	}, nil
}

func encodeDocument(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resolveClips converts clip times to milliseconds. Every clip must carry
// parseable, increasing in and out points.
func resolveClips(in []clips.Clip) ([]ResolvedClip, error) {
	out := make([]ResolvedClip, 0, len(in))
	for i, c := range in {
		start, err := ParseTimecode(c.StartTime)
		if err != nil {
			return nil, apperrors.Validation("clip %d: start_time: %v", i, err)
		}
		end, err := ParseTimecode(c.EndTime)
		if err != nil {
			return nil, apperrors.Validation("clip %d: end_time: %v", i, err)
		}
		if start >= end {
			return nil, apperrors.Validation("clip %d: start_time must be before end_time", i)
		}

		name := SanitizeName(c.CustomName, 160)
		if name == "" {
			name = fmt.Sprintf("clip_%d", i+1)
		}
		mediaPath := ""
		if c.Path != nil {
			mediaPath = *c.Path
		}
		out = append(out, ResolvedClip{
			ClipName:  name,
			MediaPath: mediaPath,
			StartMs:   start,
			EndMs:     end,
		})
	}
	return out, nil
}

// writeExclusive creates base+ext in dir, or base_N+ext when taken.
func writeExclusive(dir, base, ext string, data []byte) (string, error) {
	for n := 0; n < maxCollisions; n++ {
		name := base + ext
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s%s in %s", base, ext, dir)
}
