// Package security holds path checks for operator-facing file endpoints.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory rejects file paths that resolve outside
// safeDir. Symlinks are resolved before comparison; for a path that does
// not exist yet (e.g. a backup target), the nearest existing ancestor is
// resolved so a symlinked parent cannot smuggle the path elsewhere.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}

	canonicalPath := resolveThroughAncestors(absPath)
	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalSafeDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", safeDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, safeDir)
	}
	return nil
}

// resolveThroughAncestors returns absPath with symlinks resolved. When
// absPath itself does not exist, the deepest existing ancestor is resolved
// and the remaining components are re-joined onto it.
func resolveThroughAncestors(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}

	for dir := filepath.Dir(absPath); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, relErr := filepath.Rel(dir, absPath)
			if relErr != nil {
				return absPath
			}
			return filepath.Join(resolved, rel)
		}
		if dir == filepath.Dir(dir) {
			return absPath
		}
	}
}
