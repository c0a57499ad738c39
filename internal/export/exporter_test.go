package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/clips"
)

var exportTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestExporter() *Exporter {
	return NewExporter(clockwork.NewFakeClockAt(exportTime), nil)
}

func testSnapshot(clipSpecs ...[3]string) clips.Snapshot {
	path := "/media/源.mkv"
	snap := clips.Snapshot{
		SessionID:    "session-1",
		CreatedAt:    clips.NewTimestamp(exportTime.Add(-time.Hour)),
		LastModified: clips.NewTimestamp(exportTime),
	}
	for _, c := range clipSpecs {
		snap.Clips = append(snap.Clips, clips.Clip{
			StartTime:  c[0],
			EndTime:    c[1],
			CustomName: c[2],
			Path:       &path,
			CreatedAt:  clips.NewTimestamp(exportTime),
		})
	}
	return snap
}

func TestExport_JSON(t *testing.T) {
	dir := t.TempDir()
	e := newTestExporter()

	res, err := e.Export(testSnapshot([3]string{"00:01", "00:05", "開場"}), Options{OutputDir: dir})
	require.NoError(t, err)

	wantName := "clips_1714557600.json"
	assert.Equal(t, wantName, res.Filename)
	assert.Equal(t, filepath.Join(dir, wantName), res.FilePath)
	assert.Equal(t, FormatJSON, res.Format)
	assert.Equal(t, 1, res.ClipCount)

	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "開場")
	assert.Contains(t, string(data), "\n    \"clips\": [")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "clips")
	assert.Contains(t, doc, "exported_at")
	assert.JSONEq(t, `"session-1"`, string(doc["session_id"]))
}

func TestExport_NameCollision(t *testing.T) {
	dir := t.TempDir()
	e := newTestExporter()
	snap := testSnapshot([3]string{"1", "2", "a"})

	first, err := e.Export(snap, Options{OutputDir: dir})
	require.NoError(t, err)
	second, err := e.Export(snap, Options{OutputDir: dir})
	require.NoError(t, err)
	third, err := e.Export(snap, Options{OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "clips_1714557600.json", first.Filename)
	assert.Equal(t, "clips_1714557600_1.json", second.Filename)
	assert.Equal(t, "clips_1714557600_2.json", third.Filename)
}

func TestExport_EmptySession(t *testing.T) {
	dir := t.TempDir()
	e := newTestExporter()

	_, err := e.Export(testSnapshot(), Options{OutputDir: dir})
	require.ErrorIs(t, err, apperrors.ErrEmptySession)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file may be written for an empty session")
}

func TestExport_MissingDirectory(t *testing.T) {
	e := newTestExporter()

	_, err := e.Export(testSnapshot([3]string{"1", "2", "a"}), Options{
		OutputDir: filepath.Join(t.TempDir(), "missing"),
	})
	assert.ErrorIs(t, err, apperrors.ErrIO)
}

func TestExport_UnknownFormat(t *testing.T) {
	e := newTestExporter()

	_, err := e.Export(testSnapshot([3]string{"1", "2", "a"}), Options{OutputDir: t.TempDir(), Format: "xml"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestExport_EDL(t *testing.T) {
	dir := t.TempDir()
	e := newTestExporter()
	snap := testSnapshot(
		[3]string{"00:00:01", "00:00:03", "Intro"},
		[3]string{"01:00", "01:02.5", "Outro"},
	)

	res, err := e.Export(snap, Options{OutputDir: dir, Format: "EDL", ProjectName: "My/Project"})
	require.NoError(t, err)
	assert.Equal(t, "My_Project.edl", res.Filename)
	assert.Equal(t, FormatEDL, res.Format)

	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	edl := string(data)

	assert.True(t, strings.HasPrefix(edl, "TITLE: My_Project\n"))
	assert.Contains(t, edl, "001  AX       V     C        00:00:01:00 00:00:03:00 00:00:00:00 00:00:02:00")
	assert.Contains(t, edl, "002  AX       V     C        00:01:00:00 00:01:02:15 00:00:02:00 00:00:04:15")
	assert.Contains(t, edl, "* MEDIA PATH:  /media/源.mkv")
}

func TestExport_EDLRejectsUnparseableTimes(t *testing.T) {
	dir := t.TempDir()
	e := newTestExporter()

	_, err := e.Export(testSnapshot([3]string{"start", "end", "x"}), Options{OutputDir: dir, Format: FormatEDL})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = e.Export(testSnapshot([3]string{"00:05", "00:01", "x"}), Options{OutputDir: dir, Format: FormatEDL})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
