package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.linkmap/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".linkmap", "logs")
	}
	return filepath.Join(home, ".linkmap", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "linkmap.log")
}
