package export

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/heimdex/clip-agent/internal/apperrors"
)

// SanitizeName keeps letters, digits and a few punctuation marks, replacing
// everything else with '_' and dropping control characters.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// ValidateOutputDir requires dir to name an existing directory.
func ValidateOutputDir(field, dir string) error {
	info, err := statPath(field, dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return apperrors.Validation("%s is not a directory", field)
	}
	return nil
}

// ValidateInputFile requires path to name an existing regular file.
func ValidateInputFile(field, path string) error {
	info, err := statPath(field, path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return apperrors.Validation("%s is a directory", field)
	}
	return nil
}

func statPath(field, path string) (os.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.Validation("%s is required", field)
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return nil, apperrors.Validation("%s cannot contain path traversal", field)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Validation("%s does not exist", field)
		}
		return nil, apperrors.Validation("invalid %s: %v", field, err)
	}
	return info, nil
}
