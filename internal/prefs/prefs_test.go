package prefs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/classroute/routeconsole/internal/prefs"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := prefs.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if got := s.Get(prefs.KeyIdentity); got != "" {
		t.Errorf("Get(identity) = %q on fresh store, want empty", got)
	}

	if err := s.Set(prefs.KeyIdentity, "teacher-7"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := s.Set(prefs.KeyManualPanelOpen, "true"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got := s.Get(prefs.KeyIdentity); got != "teacher-7" {
		t.Errorf("Get(identity) = %q", got)
	}
}

func TestFileStore_SurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := prefs.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if err := s.Set(prefs.KeyHistoryPanelOpen, "true"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	reloaded, err := prefs.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reload error: %v", err)
	}
	if got := reloaded.Get(prefs.KeyHistoryPanelOpen); got != "true" {
		t.Errorf("Get(history panel) after reload = %q, want true", got)
	}
}

func TestFileStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.json")

	s, err := prefs.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if err := s.Set(prefs.KeyIdentity, "teacher-1"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("prefs file not written: %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := prefs.NewFileStore(path); err == nil {
		t.Error("NewFileStore() = nil error on corrupt file, want error")
	}
}
