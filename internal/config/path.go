package config

import (
	"os"
	"path/filepath"
)

const appDir = "flo-transform"

// DefaultDataDir returns the default data directory. FLO_DATA_DIR wins;
// otherwise it prefers the host's standard application data location and
// falls back to a dotdir in the user's home directory.
func DefaultDataDir() string {
	if dir := os.Getenv("FLO_DATA_DIR"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}

	// macOS: ~/Library/Application Support/flo-transform
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", appDir)
	}

	// Windows: %USERPROFILE%/AppData/Local/flo-transform
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", appDir)
	}

	return filepath.Join(homeDir, "."+appDir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
