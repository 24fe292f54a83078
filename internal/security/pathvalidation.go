// Package security holds filesystem safety helpers for tools that
// write reports and databases to user-supplied paths.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports an error when filePath resolves
// outside safeDir. Both paths are made absolute and cleaned before the
// containment check so ".." segments cannot escape.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("resolving safe directory: %w", err)
	}

	rel, err := filepath.Rel(absSafeDir, absPath)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, safeDir)
	}
	return nil
}

// ValidateExportPath validates an output file path for report and
// database writes. The path must land inside the temp directory or the
// current working directory.
func ValidateExportPath(filePath string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	for _, dir := range []string{os.TempDir(), cwd} {
		if ValidatePathWithinDirectory(filePath, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("output path must be under the temp or working directory: %s", filePath)
}

// SanitizeFilename makes a safe filename fragment from an arbitrary
// string such as a dataset name. Characters outside ASCII letters,
// digits, dot, underscore and dash become single underscores; the
// result is trimmed and length-capped.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
