// Package player reads playback state from an MPC-HC compatible web
// interface.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/logging"
	"github.com/heimdex/clip-agent/internal/metrics"
)

const (
	variablesPage = "/variables.html"
	infoPage      = "/info.html"

	filePathID   = "filepath"
	nowPlayingID = "mpchc_np"

	maxPageBytes = 1 << 20
)

// Position is what the player reports it is playing.
type Position struct {
	FileName        string `json:"file_name"`
	CurrentPosition string `json:"current_position"`
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. OpenTimeout is how long it stays open before a probe.
	FailureThreshold uint32
	OpenTimeout      time.Duration

	HTTPClient *http.Client
	Metrics    *metrics.Engine
	Logger     *slog.Logger
}

// Client talks to the player. Every lookup goes through a circuit breaker,
// so a player that is down costs one timeout and then fails fast until the
// breaker probes again.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	cb         *gobreaker.CircuitBreaker
	group      singleflight.Group
	metrics    *metrics.Engine
	logger     *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 15 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		timeout:    opts.Timeout,
		metrics:    opts.Metrics,
		logger:     logging.WithComponent(logging.OrDiscard(opts.Logger), "player"),
	}

	threshold := opts.FailureThreshold
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "media-player",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("media player breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			c.metrics.SetBreakerState(float64(to))
		},
	})
	return c
}

// State reports the breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// CurrentFilePath returns the full path of the file open in the player.
func (c *Client) CurrentFilePath(ctx context.Context) (string, error) {
	result, err := c.lookup(ctx, variablesPage, func(body io.Reader) (interface{}, error) {
		text, err := findText(latin1Reader(body), filePathID)
		if err != nil {
			return nil, err
		}
		return reinterpretUTF8(text)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// CurrentPosition returns the playing file's name and playback offset.
func (c *Client) CurrentPosition(ctx context.Context) (Position, error) {
	result, err := c.lookup(ctx, infoPage, func(body io.Reader) (interface{}, error) {
		text, err := findText(body, nowPlayingID)
		if err != nil {
			return nil, err
		}
		return parseNowPlaying(text)
	})
	if err != nil {
		return Position{}, err
	}
	return result.(Position), nil
}

// lookup fetches and parses page. Concurrent lookups of the same page share
// one request, which runs detached from any single caller so that one caller
// giving up does not fail the others.
func (c *Client) lookup(ctx context.Context, page string, parse func(io.Reader) (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable("media player lookup canceled", err)
	}

	ch := c.group.DoChan(page, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.cb.Execute(func() (interface{}, error) {
			return c.fetch(fetchCtx, page, parse)
		})
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, apperrors.Unavailable("media player lookup canceled", ctx.Err())
	}

	if err := res.Err; err != nil {
		c.metrics.ObservePlayerLookup(metrics.OutcomeUnavailable)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.Unavailable("media player breaker open", err)
		}
		return nil, apperrors.Unavailable("media player unavailable", err)
	}

	c.metrics.ObservePlayerLookup(metrics.OutcomeOK)
	return res.Val, nil
}

func (c *Client) fetch(ctx context.Context, page string, parse func(io.Reader) (interface{}, error)) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+page, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player responded HTTP %d", resp.StatusCode)
	}

	out, err := parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", page, err)
	}
	return out, nil
}
