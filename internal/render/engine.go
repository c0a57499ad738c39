package render

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/heimdex/clip-agent/internal/export"
	"github.com/heimdex/clip-agent/internal/logging"
)

const maxStderrBytes = 8 * 1024

// SubprocessEngine runs an external render command as
// "<command> <args...> <timeline_file> <output_dir>". Each non-empty line
// the command prints on stdout is taken as a rendered file.
type SubprocessEngine struct {
	Command string
	Args    []string
	Logger  *slog.Logger
}

func (e *SubprocessEngine) Render(ctx context.Context, timelineFile, outputDir string) ([]string, error) {
	logger := logging.OrDiscard(e.Logger)
	start := time.Now()

	args := append(append([]string{}, e.Args...), timelineFile, outputDir)
	cmd := exec.CommandContext(ctx, e.Command, args...)

	var stdout, stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}

	logger.Info("executing render command", "command", e.Command, "args", args)

	err := cmd.Run()
	elapsed := time.Since(start)
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		tail := truncate(stderrBuf.String(), 512)
		logger.Warn("render command failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", tail,
		)
		if tail != "" {
			return nil, fmt.Errorf("render command exited %d: %s", exitCode, tail)
		}
		return nil, fmt.Errorf("render command exited %d: %w", exitCode, err)
	}

	outputs := make([]string, 0)
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			outputs = append(outputs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read render output: %w", err)
	}

	logger.Info("render command succeeded", "duration_ms", elapsed.Milliseconds(), "outputs", len(outputs))
	return outputs, nil
}

// StubEngine stands in when no render command is configured. It renders
// nothing and reports one output per clip in the timeline.
type StubEngine struct {
	Logger *slog.Logger
}

func (e *StubEngine) Render(ctx context.Context, timelineFile, outputDir string) ([]string, error) {
	data, err := os.ReadFile(timelineFile)
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}

	var doc export.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse timeline: %w", err)
	}

	outputs := make([]string, 0, len(doc.Clips))
	for i, c := range doc.Clips {
		name := export.SanitizeName(c.CustomName, 120)
		if name == "" {
			name = fmt.Sprintf("clip_%d", i+1)
		}
		outputs = append(outputs, filepath.Join(outputDir, name+".mp4"))
	}

	logging.OrDiscard(e.Logger).Info("stub render engine: nothing rendered",
		"timeline", logging.SanitizePath(timelineFile),
		"clips", len(outputs),
	)
	return outputs, nil
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
