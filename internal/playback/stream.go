// Package playback streams a clip's source media to the browser with HTTP
// range support so the preview player can seek.
package playback

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/logging"
)

// videoTypes covers containers the system mime table often lacks.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".ts":   "video/mp2t",
}

func contentTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Streamer serves media files from local disk.
type Streamer struct {
	logger *slog.Logger
}

func NewStreamer(logger *slog.Logger) *Streamer {
	return &Streamer{logger: logging.WithComponent(logging.OrDiscard(logger), "playback")}
}

// Stream writes filePath to w, honoring a Range header. Errors are returned
// only before anything has been written; a missing file is NotFound.
func (s *Streamer) Stream(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.NotFound("media file not found")
		}
		return apperrors.IO("failed to open media file", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return apperrors.IO("failed to stat media file", err)
	}
	if stat.IsDir() {
		return apperrors.NotFound("media file not found")
	}

	size := stat.Size()
	contentType := contentTypeOf(filePath)

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	span, partial, err := parseByteRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, errUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, errInvalidRange):
		// malformed ranges are ignored and the whole file is sent
		partial = false
	case err != nil:
		return apperrors.Internal("parse range", err)
	}

	var (
		status = http.StatusOK
		offset int64
		length = size
	)
	if partial {
		status = http.StatusPartialContent
		offset = span.start
		length = span.length
		w.Header().Set("Content-Range", span.contentRange(size))
	}
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return apperrors.IO("failed to seek media file", err)
		}
	}

	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return nil
	}

	if _, err := io.CopyN(w, file, length); err != nil {
		// the client usually went away mid-stream
		s.logger.Debug("media stream interrupted", "path", logging.SanitizePath(filePath), "error", err)
	}
	return nil
}
