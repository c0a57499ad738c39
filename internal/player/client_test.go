package player

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/metrics"
)

const infoBody = `<html><body>
<p id="mpchc_np">« MPC-HC v1.9.24 • 第一集.mkv • 00:01:02/00:42:10 • 1.2 GB »</p>
</body></html>`

type fakePlayer struct {
	hits     atomic.Int32
	status   atomic.Int32
	filepath string
	body     string
	delay    time.Duration
}

func (p *fakePlayer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.hits.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if status := int(p.status.Load()); status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	switch r.URL.Path {
	case "/variables.html":
		if p.body != "" {
			_, _ = w.Write([]byte(p.body))
			return
		}
		_, _ = w.Write([]byte("<html><body><p id=\"filepath\">" + p.filepath + "</p></body></html>"))
	case "/info.html":
		_, _ = w.Write([]byte(infoBody))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, p *fakePlayer, m *metrics.Engine) *Client {
	t.Helper()
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseURL: server.URL + "/",
		Timeout: 100 * time.Millisecond,
		Metrics: m,
	})
}

func TestCurrentFilePath(t *testing.T) {
	p := &fakePlayer{filepath: `C:\Videos\clip.mkv`}
	c := newTestClient(t, p, nil)

	path, err := c.CurrentFilePath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `C:\Videos\clip.mkv`, path)
}

func TestCurrentFilePath_ReinterpretsUTF8Bytes(t *testing.T) {
	p := &fakePlayer{filepath: `D:\影片\第一集.mkv`}
	c := newTestClient(t, p, nil)

	path, err := c.CurrentFilePath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `D:\影片\第一集.mkv`, path)
}

func TestCurrentFilePath_InvalidEncoding(t *testing.T) {
	p := &fakePlayer{filepath: "C:\\caf\xe9.mkv"}
	c := newTestClient(t, p, nil)

	_, err := c.CurrentFilePath(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestCurrentFilePath_MissingElement(t *testing.T) {
	p := &fakePlayer{body: "<html><body><p id=\"file\">a.mkv</p></body></html>"}
	c := newTestClient(t, p, nil)

	_, err := c.CurrentFilePath(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestCurrentFilePath_Non200(t *testing.T) {
	p := &fakePlayer{}
	p.status.Store(http.StatusInternalServerError)
	c := newTestClient(t, p, nil)

	_, err := c.CurrentFilePath(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestCurrentFilePath_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewClient(Options{BaseURL: url, Timeout: 100 * time.Millisecond})

	_, err := c.CurrentFilePath(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestCurrentFilePath_Timeout(t *testing.T) {
	p := &fakePlayer{filepath: "a.mkv", delay: 500 * time.Millisecond}
	c := newTestClient(t, p, nil)

	start := time.Now()
	_, err := c.CurrentFilePath(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestCurrentPosition(t *testing.T) {
	c := newTestClient(t, &fakePlayer{}, nil)

	pos, err := c.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "第一集.mkv", pos.FileName)
	assert.Equal(t, "00:01:02", pos.CurrentPosition)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	p := &fakePlayer{}
	p.status.Store(http.StatusServiceUnavailable)
	m := metrics.NewEngine(metrics.NewRegistry())
	c := newTestClient(t, p, m)

	for i := 0; i < 3; i++ {
		_, err := c.CurrentFilePath(context.Background())
		require.ErrorIs(t, err, apperrors.ErrUnavailable)
	}
	require.Equal(t, gobreaker.StateOpen, c.State())
	require.Equal(t, int32(3), p.hits.Load())

	_, err := c.CurrentFilePath(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, int32(3), p.hits.Load(), "open breaker must not reach the player")

	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.BreakerState))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.PlayerLookups.WithLabelValues(metrics.OutcomeUnavailable)))
}

func TestBreakerRecovers(t *testing.T) {
	p := &fakePlayer{filepath: "a.mkv"}
	p.status.Store(http.StatusServiceUnavailable)
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)
	c := NewClient(Options{
		BaseURL:          server.URL,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 1,
		OpenTimeout:      20 * time.Millisecond,
	})

	_, err := c.CurrentFilePath(context.Background())
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, c.State())

	p.status.Store(http.StatusOK)
	time.Sleep(40 * time.Millisecond)

	path, err := c.CurrentFilePath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a.mkv", path)
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestCanceledLookupDoesNotTrip(t *testing.T) {
	p := &fakePlayer{filepath: "a.mkv"}
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)
	c := NewClient(Options{BaseURL: server.URL, FailureThreshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CurrentFilePath(ctx)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestConcurrentLookupsShareRequest(t *testing.T) {
	p := &fakePlayer{filepath: "a.mkv", delay: 80 * time.Millisecond}
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)
	c := NewClient(Options{BaseURL: server.URL, Timeout: time.Second})

	const callers = 5
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			path, err := c.CurrentFilePath(context.Background())
			if err == nil && path != "a.mkv" {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	for i := 0; i < callers; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), p.hits.Load())
}

func TestCallerCancelDoesNotFailSharedLookup(t *testing.T) {
	p := &fakePlayer{filepath: "a.mkv", delay: 50 * time.Millisecond}
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)
	c := NewClient(Options{BaseURL: server.URL, Timeout: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.CurrentFilePath(ctx)
	require.ErrorIs(t, err, apperrors.ErrUnavailable)

	// The abandoned request still completes and counts as a success.
	path, err := c.CurrentFilePath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a.mkv", path)
	assert.Equal(t, gobreaker.StateClosed, c.State())
}
