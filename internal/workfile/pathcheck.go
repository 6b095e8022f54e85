package workfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/miniwriter/internal/errors"
)

// Ext is the required work file extension.
const Ext = ".md"

// validatePath rejects work file paths that traverse upward, lack the .md
// extension or name an existing symlink.
func validatePath(path string) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != Ext {
		return errors.NewInvalidRequest("path must have .md extension")
	}
	if info, err := os.Lstat(cleaned); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// containsTraversal checks whether any path component is "..".
func containsTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}
