package api

import (
	"github.com/heimdex/clip-agent/internal/autosave"
	"github.com/heimdex/clip-agent/internal/clips"
	"github.com/heimdex/clip-agent/internal/render"
)

type HealthResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Timestamp clips.Timestamp `json:"timestamp"`
	Version   string          `json:"version"`
	UptimeS   int64           `json:"uptime_s"`
	Sessions  int             `json:"sessions"`
}

type CreateSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type SessionResponse struct {
	Success bool           `json:"success"`
	Data    clips.Snapshot `json:"data"`
	Message string         `json:"message,omitempty"`
}

type ClipResponse struct {
	Success bool       `json:"success"`
	Data    clips.Clip `json:"data"`
	Message string     `json:"message"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PositionData struct {
	FileName        string          `json:"file_name"`
	CurrentPosition string          `json:"current_position"`
	Timestamp       clips.Timestamp `json:"timestamp"`
}

type PositionResponse struct {
	Success bool         `json:"success"`
	Data    PositionData `json:"data"`
}

type FilePathData struct {
	FilePath  string          `json:"file_path"`
	Timestamp clips.Timestamp `json:"timestamp"`
}

type FilePathResponse struct {
	Success bool         `json:"success"`
	Data    FilePathData `json:"data"`
}

type ExportResponse struct {
	Success   bool   `json:"success"`
	FilePath  string `json:"file_path"`
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	ClipCount int    `json:"clip_count"`
	Message   string `json:"message"`
}

type RenderRequest struct {
	JSONFile        string `json:"json_file"`
	OutputDirectory string `json:"output_directory"`
}

type AutoSavesResponse struct {
	Success bool               `json:"success"`
	Data    []autosave.Summary `json:"data"`
}

type RenderHistoryResponse struct {
	Success bool         `json:"success"`
	Data    []render.Job `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}
