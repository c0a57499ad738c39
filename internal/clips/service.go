package clips

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/logging"
	"github.com/heimdex/clip-agent/internal/metrics"
)

// PathResolver reports the file currently open in the media player.
type PathResolver interface {
	CurrentFilePath(ctx context.Context) (string, error)
}

// SnapshotStore durably stores session snapshots.
type SnapshotStore interface {
	// Persist writes snap, replacing any previous version. It is a no-op
	// for snapshots without clips.
	Persist(snap Snapshot) error
	// Read loads the snapshot stored under filename.
	Read(filename string) (*Snapshot, error)
}

// SessionService is the engine's operation set, as consumed by the HTTP layer.
type SessionService interface {
	CreateSession() Snapshot
	GetSession(id string) (Snapshot, error)
	AddClip(ctx context.Context, id string, fields ClipFields) (Clip, error)
	UpdateClip(ctx context.Context, id string, index int, fields ClipFields) error
	RemoveClip(ctx context.Context, id string, index int) error
	ClipAt(id string, index int) (Clip, error)
	LoadSnapshot(filename string) (Snapshot, error)
	SessionCount() int
}

type ServiceConfig struct {
	Store     *Store
	Resolver  PathResolver
	Snapshots SnapshotStore
	Clock     clockwork.Clock
	Metrics   *metrics.Engine
	Logger    *slog.Logger
}

// Service funnels every session mutation through the session's lock and
// persists the result before returning.
type Service struct {
	store     *Store
	resolver  PathResolver
	snapshots SnapshotStore
	clock     clockwork.Clock
	metrics   *metrics.Engine
	logger    *slog.Logger
}

var _ SessionService = (*Service)(nil)

func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	store := cfg.Store
	if store == nil {
		store = NewStore(clock, cfg.Logger)
	}
	return &Service{
		store:     store,
		resolver:  cfg.Resolver,
		snapshots: cfg.Snapshots,
		clock:     clock,
		metrics:   cfg.Metrics,
		logger:    logging.WithComponent(logging.OrDiscard(cfg.Logger), "clips"),
	}
}

func (s *Service) CreateSession() Snapshot {
	session := s.store.Create()
	s.logger.Info("session created", "session_id", session.ID())
	return session.Snapshot()
}

func (s *Service) GetSession(id string) (Snapshot, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *Service) SessionCount() int {
	return s.store.Len()
}

// AddClip appends a clip built from fields. The source path comes from the
// media player; when the player is unavailable the clip is still created
// with a nil path.
func (s *Service) AddClip(ctx context.Context, id string, fields ClipFields) (clip Clip, err error) {
	defer func() { s.metrics.ObserveMutation("add", err) }()

	if err := fields.Validate(); err != nil {
		return Clip{}, err
	}
	session, err := s.store.Get(id)
	if err != nil {
		return Clip{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	clip = Clip{
		StartTime:  *fields.StartTime,
		EndTime:    *fields.EndTime,
		CustomName: *fields.CustomName,
		Path:       s.resolvePath(ctx, id),
	}
	now := s.clock.Now()
	clip.CreatedAt = NewTimestamp(now)

	prev := session.saveLocked()
	session.appendLocked(clip, now)
	if err := s.persistLocked(session, prev); err != nil {
		return Clip{}, err
	}

	s.logger.Info("clip added", "session_id", id, "index", len(session.clips)-1, "has_path", clip.Path != nil)
	return clip, nil
}

// UpdateClip replaces the clip at index. All three caller fields are
// required; the clip's path and creation time are kept.
func (s *Service) UpdateClip(ctx context.Context, id string, index int, fields ClipFields) (err error) {
	defer func() { s.metrics.ObserveMutation("update", err) }()

	if err := fields.Validate(); err != nil {
		return err
	}
	session, err := s.store.Get(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	prev := session.saveLocked()
	if err := session.replaceLocked(index, fields, s.clock.Now()); err != nil {
		return err
	}
	if err := s.persistLocked(session, prev); err != nil {
		return err
	}

	s.logger.Info("clip updated", "session_id", id, "index", index)
	return nil
}

// RemoveClip deletes the clip at index; later clips shift down by one.
func (s *Service) RemoveClip(ctx context.Context, id string, index int) (err error) {
	defer func() { s.metrics.ObserveMutation("remove", err) }()

	session, err := s.store.Get(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	prev := session.saveLocked()
	if err := session.removeLocked(index, s.clock.Now()); err != nil {
		return err
	}
	if err := s.persistLocked(session, prev); err != nil {
		return err
	}

	s.logger.Info("clip removed", "session_id", id, "index", index, "remaining", len(session.clips))
	return nil
}

// ClipAt returns one clip of a session.
func (s *Service) ClipAt(id string, index int) (Clip, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return Clip{}, err
	}
	return session.Clip(index)
}

// LoadSnapshot restores an auto-saved session and registers it, replacing a
// live session with the same identifier.
func (s *Service) LoadSnapshot(filename string) (Snapshot, error) {
	if s.snapshots == nil {
		return Snapshot{}, apperrors.Internal("snapshot storage not configured", nil)
	}

	snap, err := s.snapshots.Read(filename)
	if err != nil {
		return Snapshot{}, err
	}

	session := restoreSession(*snap, s.store.newID, s.clock.Now())
	s.store.Register(session)

	s.logger.Info("session restored from snapshot",
		"session_id", session.ID(),
		"filename", filename,
		"clips", len(snap.Clips),
	)
	return session.Snapshot(), nil
}

// persistLocked writes the session's new state. On failure the mutation is
// rolled back so memory never holds an unacknowledged change.
func (s *Service) persistLocked(session *Session, prev state) error {
	if s.snapshots == nil {
		return nil
	}

	snap := session.snapshotLocked()
	if len(snap.Clips) == 0 {
		s.metrics.ObserveSnapshotWrite(metrics.OutcomeSkipped)
		return nil
	}

	if err := s.snapshots.Persist(snap); err != nil {
		s.metrics.ObserveSnapshotWrite(metrics.OutcomeError)
		session.restoreLocked(prev)
		logging.WithSessionID(s.logger, session.ID()).Error("snapshot persist failed, change rolled back", "error", err)

		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.IO("failed to persist session", err)
	}

	s.metrics.ObserveSnapshotWrite(metrics.OutcomeOK)
	return nil
}

// resolvePath asks the player for the current file. Any failure degrades to
// a nil path.
func (s *Service) resolvePath(ctx context.Context, sessionID string) *string {
	if s.resolver == nil {
		return nil
	}

	path, err := s.resolver.CurrentFilePath(ctx)
	if err != nil {
		logging.WithSessionID(s.logger, sessionID).Warn("media player unavailable, clip created without path", "error", err)
		return nil
	}
	return &path
}
