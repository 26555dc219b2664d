// Package appdir resolves the OS-appropriate per-user application data
// directory the server stores its WAL in. No library in the dependency
// set covers this narrow a concern, so it is implemented directly on
// os/path/filepath (see DESIGN.md).
package appdir

import (
	"os"
	"path/filepath"
)

const (
	appName = "mycokv"
	walName = "wal.mkv"
)

// WALPath returns the full path to the WAL file inside the resolved data
// directory, creating the directory if it does not already exist.
func WALPath(override string) (string, error) {
	dir, err := dataDir(override)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, walName), nil
}

// dataDir resolves the directory itself, honoring an explicit override
// first, then XDG_DATA_HOME, then the platform default under the user's
// home or config directory.
func dataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName), nil
	}

	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, appName), nil
}
