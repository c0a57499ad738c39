package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/clips"
	"github.com/heimdex/clip-agent/internal/export"
	"github.com/heimdex/clip-agent/internal/logging"
)

const maxBodyBytes = 1 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	cfg.Logger = logging.OrDiscard(cfg.Logger)
	if cfg.StartTime.IsZero() {
		cfg.StartTime = cfg.Clock.Now()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware)
	}

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(cfg))

		r.Post("/session/new", createSessionHandler(cfg))
		r.Get("/session/{id}", getSessionHandler(cfg))

		r.Get("/mpc/timestamp", positionHandler(cfg))
		r.Get("/mpc/filepath", filePathHandler(cfg))

		r.Post("/clips/{id}", addClipHandler(cfg))
		r.Put("/clips/{id}/{index}", updateClipHandler(cfg))
		r.Delete("/clips/{id}/{index}", removeClipHandler(cfg))
		r.With(LoopbackGuard()).Get("/clips/{id}/{index}/media", clipMediaHandler(cfg))

		r.Post("/export/{id}", exportHandler(cfg))
		r.Post("/clip-videos", renderHandler(cfg))
		r.Get("/render/history", renderHistoryHandler(cfg))

		r.Get("/auto-saves", listAutoSavesHandler(cfg))
		r.Get("/auto-saves/{filename}", loadAutoSaveHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := cfg.Clock.Now()
		resp := HealthResponse{
			Status:    "healthy",
			Message:   "clip agent is running",
			Timestamp: clips.NewTimestamp(now),
			Version:   cfg.Version,
			UptimeS:   int64(now.Sub(cfg.StartTime).Seconds()),
		}
		if cfg.Sessions != nil {
			resp.Sessions = cfg.Sessions.SessionCount()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Sessions.CreateSession()
		WriteJSON(w, http.StatusOK, CreateSessionResponse{
			Success:   true,
			SessionID: snap.SessionID,
			Message:   "session created",
		})
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := cfg.Sessions.GetSession(chi.URLParam(r, "id"))
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SessionResponse{Success: true, Data: snap})
	}
}

func positionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pos, err := cfg.Player.CurrentPosition(r.Context())
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, PositionResponse{
			Success: true,
			Data: PositionData{
				FileName:        pos.FileName,
				CurrentPosition: pos.CurrentPosition,
				Timestamp:       clips.NewTimestamp(cfg.Clock.Now()),
			},
		})
	}
}

func filePathHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := cfg.Player.CurrentFilePath(r.Context())
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, FilePathResponse{
			Success: true,
			Data: FilePathData{
				FilePath:  path,
				Timestamp: clips.NewTimestamp(cfg.Clock.Now()),
			},
		})
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields clips.ClipFields
		if err := decodeBody(r, &fields); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		clip, err := cfg.Sessions.AddClip(r.Context(), chi.URLParam(r, "id"), fields)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ClipResponse{Success: true, Data: clip, Message: "clip added"})
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := indexParam(r)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		var fields clips.ClipFields
		if err := decodeBody(r, &fields); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		if err := cfg.Sessions.UpdateClip(r.Context(), chi.URLParam(r, "id"), index, fields); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "clip updated"})
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := indexParam(r)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		if err := cfg.Sessions.RemoveClip(r.Context(), chi.URLParam(r, "id"), index); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "clip removed"})
	}
}

func clipMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := indexParam(r)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		clip, err := cfg.Sessions.ClipAt(chi.URLParam(r, "id"), index)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		if clip.Path == nil || *clip.Path == "" {
			WriteAppError(w, cfg.Logger, apperrors.NotFound("clip %d has no source media", index))
			return
		}

		if err := cfg.Media.Stream(w, r, *clip.Path); err != nil {
			WriteAppError(w, cfg.Logger, err)
		}
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts export.Options
		if err := decodeBody(r, &opts); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		snap, err := cfg.Sessions.GetSession(chi.URLParam(r, "id"))
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		res, err := cfg.Exporter.Export(snap, opts)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		cfg.Logger.Info("session exported",
			"session_id", snap.SessionID,
			"format", res.Format,
			"clips", res.ClipCount,
			"file", logging.SanitizePath(res.FilePath),
		)
		WriteJSON(w, http.StatusOK, ExportResponse{
			Success:   true,
			FilePath:  res.FilePath,
			Filename:  res.Filename,
			Format:    res.Format,
			ClipCount: res.ClipCount,
			Message:   fmt.Sprintf("clips exported to %s", res.Filename),
		})
	}
}

func renderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderRequest
		if err := decodeBody(r, &req); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		if err := cfg.Renders.Dispatch(req.JSONFile, req.OutputDirectory); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, MessageResponse{Success: true, Message: "clip rendering started"})
	}
}

func renderHistoryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteAppError(w, cfg.Logger, apperrors.Validation("limit must be a positive integer"))
				return
			}
			limit = n
		}

		jobs, err := cfg.RenderHistory.List(r.Context(), limit)
		if err != nil {
			WriteAppError(w, cfg.Logger, apperrors.Internal("failed to list render history", err))
			return
		}
		WriteJSON(w, http.StatusOK, RenderHistoryResponse{Success: true, Data: jobs})
	}
}

func listAutoSavesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := cfg.Snapshots.List()
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, AutoSavesResponse{Success: true, Data: summaries})
	}
}

func loadAutoSaveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := cfg.Sessions.LoadSnapshot(chi.URLParam(r, "filename"))
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SessionResponse{Success: true, Data: snap, Message: "auto-save loaded"})
	}
}

// decodeBody reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Validation("invalid request body")
	}
	return nil
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("clip index must be an integer, got %q", raw)
	}
	return index, nil
}
