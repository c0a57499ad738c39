package export

import "github.com/heimdex/clip-agent/internal/clips"

const (
	FormatJSON = "json"
	FormatEDL  = "edl"
)

// Options selects where and how a session is exported. Zero values select
// the JSON format in the working directory.
type Options struct {
	Format      string  `json:"format"`
	OutputDir   string  `json:"output_path"`
	ProjectName string  `json:"project_name"`
	FrameRate   float64 `json:"frame_rate"`
}

// Document is the JSON export file.
type Document struct {
	Clips      []clips.Clip    `json:"clips"`
	ExportedAt clips.Timestamp `json:"exported_at"`
	SessionID  string          `json:"session_id"`
}

// Result describes a written export file.
type Result struct {
	FilePath  string `json:"file_path"`
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	ClipCount int    `json:"clip_count"`
}

// ResolvedClip is one EDL event with times in milliseconds.
type ResolvedClip struct {
	ClipName  string
	MediaPath string
	StartMs   int
	EndMs     int
}
