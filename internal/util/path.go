package util

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	homeDir     string
	homeDirOnce sync.Once
)

// cachedHomeDir returns the user's home directory, cached after the first call.
func cachedHomeDir() string {
	homeDirOnce.Do(func() {
		homeDir, _ = os.UserHomeDir()
	})
	return homeDir
}

// ExpandHome expands a leading ~/ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~/ or if
// the home directory cannot be determined.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home := cachedHomeDir()
	if home == "" {
		return path
	}
	return home + path[1:]
}

// NormalizeAbsPath expands ~, cleans the path, and reports whether the
// result is absolute. Editor events carrying relative or empty paths are
// rejected at the ingress boundary.
func NormalizeAbsPath(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	p := filepath.Clean(ExpandHome(path))
	if !filepath.IsAbs(p) {
		return "", false
	}
	return p, true
}
