package clips

import (
	"sync"
	"time"

	"github.com/heimdex/clip-agent/internal/apperrors"
)

// Session is an ordered timeline of clips. Clips are addressed by index; a
// removal shifts every later clip down by one, so indexes are only valid
// until the next structural change.
//
// mu is the session's mutation scope. Service holds it across
// mutate-then-persist so concurrent edits of one session never interleave.
type Session struct {
	id        string
	createdAt time.Time

	mu           sync.Mutex
	clips        []Clip
	lastModified time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:           id,
		createdAt:    now,
		clips:        []Clip{},
		lastModified: now,
	}
}

// restoreSession rebuilds a session from a snapshot, defaulting missing
// fields.
func restoreSession(snap Snapshot, newID func() string, now time.Time) *Session {
	id := snap.SessionID
	if id == "" {
		id = newID()
	}

	createdAt := snap.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = now
	}

	s := &Session{
		id:           id,
		createdAt:    createdAt,
		clips:        make([]Clip, len(snap.Clips)),
		lastModified: createdAt,
	}
	copy(s.clips, snap.Clips)

	lastModified := snap.LastModified.Time
	if lastModified.IsZero() {
		lastModified = now
	}
	s.touch(lastModified)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Snapshot returns a copy of the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	clips := make([]Clip, len(s.clips))
	copy(clips, s.clips)
	return Snapshot{
		SessionID:    s.id,
		Clips:        clips,
		CreatedAt:    NewTimestamp(s.createdAt),
		LastModified: NewTimestamp(s.lastModified),
	}
}

// Clip returns the clip at index.
func (s *Session) Clip(index int) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.clips) {
		return Clip{}, apperrors.Index(index, len(s.clips))
	}
	return s.clips[index], nil
}

// Len returns the number of clips.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

// touch advances lastModified. It never moves backwards and never precedes
// createdAt, even when the wall clock does.
func (s *Session) touch(now time.Time) {
	if now.Before(s.createdAt) {
		now = s.createdAt
	}
	if now.After(s.lastModified) {
		s.lastModified = now
	}
}

func (s *Session) appendLocked(c Clip, now time.Time) {
	s.clips = append(s.clips, c)
	s.touch(now)
}

// replaceLocked swaps the caller-supplied fields of the clip at index,
// keeping its path and creation time.
func (s *Session) replaceLocked(index int, f ClipFields, now time.Time) error {
	if index < 0 || index >= len(s.clips) {
		return apperrors.Index(index, len(s.clips))
	}

	existing := s.clips[index]
	s.clips[index] = Clip{
		StartTime:  *f.StartTime,
		EndTime:    *f.EndTime,
		CustomName: *f.CustomName,
		Path:       existing.Path,
		CreatedAt:  existing.CreatedAt,
	}
	s.touch(now)
	return nil
}

func (s *Session) removeLocked(index int, now time.Time) error {
	if index < 0 || index >= len(s.clips) {
		return apperrors.Index(index, len(s.clips))
	}

	s.clips = append(s.clips[:index], s.clips[index+1:]...)
	s.touch(now)
	return nil
}

// state captures what a failed persist must roll back.
type state struct {
	clips        []Clip
	lastModified time.Time
}

func (s *Session) saveLocked() state {
	clips := make([]Clip, len(s.clips))
	copy(clips, s.clips)
	return state{clips: clips, lastModified: s.lastModified}
}

func (s *Session) restoreLocked(st state) {
	s.clips = st.clips
	s.lastModified = st.lastModified
}
