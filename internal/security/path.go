package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects paths that could name files outside a media
// directory. Callers pass paths relative to their configured root.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}

	return nil
}

// ResolveWithinBase joins path onto baseDir after validation and returns
// the resolved filesystem path. The result is guaranteed to be inside
// baseDir.
func ResolveWithinBase(baseDir, path string) (string, error) {
	if err := ValidateFilePath(path); err != nil {
		return "", err
	}

	cleanBase := filepath.Clean(baseDir)
	resolved := filepath.Join(cleanBase, path)

	rel, err := filepath.Rel(cleanBase, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", path)
	}

	return resolved, nil
}
