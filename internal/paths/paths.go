// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand resolves a user-supplied path from the config file or a flag.
//
// Input normalization:
//   - "~" and "~/x" -> the home directory and paths under it
//   - "$VAR/x" and "${VAR}/x" -> environment variables substituted
//   - "" -> ""
//
// The result is cleaned. A "~" that cannot be resolved is left in place.
func Expand(path string) string {
	if path == "" {
		return ""
	}
	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Clean(path)
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Clean(path)
}
