package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/clip-agent/internal/apperrors"
)

func TestSanitizeName_ControlChars(t *testing.T) {
	got := SanitizeName(" A\nB\rC\tD\x00 ", 100)
	if strings.ContainsAny(got, "\n\r\t\x00") {
		t.Fatalf("sanitize output contains control chars: %q", got)
	}
	if got != "ABCD" {
		t.Fatalf("SanitizeName control char behavior mismatch, got %q", got)
	}
}

func TestSanitizeName_MaxLength(t *testing.T) {
	got := SanitizeName("abcdefghijklmnopqrstuvwxyz", 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("expected length 10, got %d (%q)", len([]rune(got)), got)
	}
}

func TestSanitizeName_AllowedChars(t *testing.T) {
	input := "Az09 -_.,()"
	got := SanitizeName(input, 100)
	if got != input {
		t.Fatalf("SanitizeName changed allowed chars: got %q want %q", got, input)
	}
}

func TestSanitizeName_ReplacesDisallowed(t *testing.T) {
	got := SanitizeName("bad<>|\"name", 100)
	if got != "bad____name" {
		t.Fatalf("SanitizeName disallowed replacement mismatch: got %q", got)
	}
}

func TestValidateOutputDir(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "file.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{name: "existing dir", dir: tmp},
		{name: "empty", dir: "  ", wantErr: true},
		{name: "missing", dir: filepath.Join(tmp, "missing"), wantErr: true},
		{name: "traversal", dir: "/tmp/../etc", wantErr: true},
		{name: "regular file", dir: filePath, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOutputDir("output_directory", tc.dir)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("ValidateOutputDir(%q) error = %v, want nil", tc.dir, err)
				}
				return
			}
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("ValidateOutputDir(%q) error = %v, want validation error", tc.dir, err)
			}
			if !strings.Contains(err.Error(), "output_directory") {
				t.Fatalf("error %q should name the field", err)
			}
		})
	}
}

func TestValidateInputFile(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "timeline.json")
	if err := os.WriteFile(filePath, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	if err := ValidateInputFile("json_file", filePath); err != nil {
		t.Fatalf("ValidateInputFile(%q) error = %v, want nil", filePath, err)
	}
	if err := ValidateInputFile("json_file", tmp); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("ValidateInputFile(dir) error = %v, want validation error", err)
	}
	if err := ValidateInputFile("json_file", filepath.Join(tmp, "nope.json")); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("ValidateInputFile(missing) error = %v, want validation error", err)
	}
}
