package clips

import (
	"strings"

	"github.com/heimdex/clip-agent/internal/apperrors"
)

// Clip is one trimmed interval of a source media file. StartTime, EndTime and
// CustomName are caller-supplied and passed through untouched. Path is filled
// from the media player at creation and is nil when the player could not be
// reached.
type Clip struct {
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	CustomName string    `json:"custom_name"`
	Path       *string   `json:"path"`
	CreatedAt  Timestamp `json:"created_at"`
}

// ClipFields carries the caller-supplied part of a clip. A nil field was
// absent from the request.
type ClipFields struct {
	StartTime  *string `json:"start_time"`
	EndTime    *string `json:"end_time"`
	CustomName *string `json:"custom_name"`
}

// Validate requires all three fields to be present. Empty strings are allowed.
func (f ClipFields) Validate() error {
	var missing []string
	if f.StartTime == nil {
		missing = append(missing, "start_time")
	}
	if f.EndTime == nil {
		missing = append(missing, "end_time")
	}
	if f.CustomName == nil {
		missing = append(missing, "custom_name")
	}
	if len(missing) > 0 {
		return apperrors.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Snapshot is the serializable projection of a Session, and the shape of an
// auto-save file.
type Snapshot struct {
	SessionID    string    `json:"session_id"`
	Clips        []Clip    `json:"clips"`
	CreatedAt    Timestamp `json:"created_at"`
	LastModified Timestamp `json:"last_modified"`
}
