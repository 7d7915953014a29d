package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestManager(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "out")

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if manager.GetOutputDir() != tempDir {
		t.Errorf("GetOutputDir() = %s, want %s", manager.GetOutputDir(), tempDir)
	}
	if _, err := os.Stat(tempDir); err != nil {
		t.Fatalf("output directory not created: %v", err)
	}

	if manager.Exists("report.txt") {
		t.Error("Expected Exists to return false for missing file")
	}

	err = manager.WriteFile("report.txt", func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "report.txt"))
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("content = %q", content)
	}
	if !manager.Exists("report.txt") {
		t.Error("Expected Exists to return true after write")
	}
}

func TestManagerWriteFailureKeepsOldFile(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	write := func(s string) func(io.Writer) error {
		return func(w io.Writer) error {
			_, err := io.WriteString(w, s)
			return err
		}
	}
	if err := manager.WriteFile("data.csv", write("v1")); err != nil {
		t.Fatal(err)
	}

	err = manager.WriteFile("data.csv", func(w io.Writer) error {
		io.WriteString(w, "partial")
		return errors.New("disk full")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	content, _ := os.ReadFile(manager.Path("data.csv"))
	if string(content) != "v1" {
		t.Errorf("old content replaced by failed write: %q", content)
	}
	if _, err := os.Stat(manager.Path("data.csv") + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestManagerPath(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	abs := filepath.Join(t.TempDir(), "elsewhere.csv")
	if manager.Path(abs) != abs {
		t.Errorf("absolute path rewritten: %s", manager.Path(abs))
	}
	if manager.Path("a.csv") != filepath.Join(manager.GetOutputDir(), "a.csv") {
		t.Errorf("relative path not joined: %s", manager.Path("a.csv"))
	}
}
