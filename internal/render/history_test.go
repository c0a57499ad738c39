package render

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/clip-agent/internal/db"
)

func newTestHistory(t *testing.T) *SQLiteHistory {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewSQLiteHistory(database.Conn())
}

func TestSQLiteHistory_SaveAndList(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := Job{ID: "job-1", TimelineFile: "/t/a.json", OutputDir: "/out", Status: StatusRunning, StartedAt: base}
	second := Job{ID: "job-2", TimelineFile: "/t/b.json", OutputDir: "/out", Status: StatusRunning, StartedAt: base.Add(500 * time.Millisecond)}
	require.NoError(t, h.Save(ctx, first))
	require.NoError(t, h.Save(ctx, second))

	finished := base.Add(time.Minute)
	first.Status = StatusSucceeded
	first.Outputs = []string{"/out/a.mp4"}
	first.FinishedAt = &finished
	require.NoError(t, h.Save(ctx, first))

	jobs, err := h.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "job-2", jobs[0].ID, "newest first")
	assert.Equal(t, StatusRunning, jobs[0].Status)
	assert.Empty(t, jobs[0].Outputs)
	assert.Nil(t, jobs[0].FinishedAt)

	assert.Equal(t, "job-1", jobs[1].ID)
	assert.Equal(t, StatusSucceeded, jobs[1].Status)
	assert.Equal(t, []string{"/out/a.mp4"}, jobs[1].Outputs)
	assert.True(t, jobs[1].StartedAt.Equal(base))
	require.NotNil(t, jobs[1].FinishedAt)
	assert.True(t, jobs[1].FinishedAt.Equal(finished))
}

func TestSQLiteHistory_FinishWithoutStart(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, h.Save(ctx, Job{
		ID: "job-1", TimelineFile: "/t/a.json", OutputDir: "/out",
		Status: StatusFailed, Error: "boom", StartedAt: now, FinishedAt: &now,
	}))

	jobs, err := h.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "boom", jobs[0].Error)
}

func TestSQLiteHistory_ListLimit(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, h.Save(ctx, Job{
			ID: id, TimelineFile: "/t", OutputDir: "/o", Status: StatusRunning,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	jobs, err := h.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "c", jobs[0].ID)
	assert.Equal(t, "b", jobs[1].ID)
}
