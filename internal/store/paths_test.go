package store

import (
	"path/filepath"
	"testing"
)

func TestDefaultDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath() error = %v", err)
	}
	want := filepath.Join(home, ".vitaldyn", DBFile)
	if got != want {
		t.Errorf("DefaultDBPath() = %q, want %q", got, want)
	}
}
