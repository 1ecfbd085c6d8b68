package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFile is the database file name inside the vitaldyn directory.
const DBFile = "vitaldyn.db"

// GlobalDir returns the path to the global .vitaldyn directory.
// On Unix: ~/.vitaldyn
// On Windows: %USERPROFILE%\.vitaldyn
func GlobalDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".vitaldyn"), nil
}

// DefaultDBPath returns ~/.vitaldyn/vitaldyn.db.
func DefaultDBPath() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DBFile), nil
}
