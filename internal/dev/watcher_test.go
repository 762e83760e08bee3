package dev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_Basic(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "app.js")
	if err := os.WriteFile(testFile, []byte("console.log(1)"), 0644); err != nil {
		t.Fatal(err)
	}

	watcher := NewWatcher(WatcherConfig{
		Paths:    []string{tmpDir},
		Debounce: 50 * time.Millisecond,
	})

	changes := make(chan Change, 10)
	watcher.OnChange(func(c Change) {
		changes <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watcher.Start(ctx)

	// Wait for initial scan.
	time.Sleep(100 * time.Millisecond)

	now := time.Now().Add(time.Second)
	if err := os.Chtimes(testFile, now, now); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-changes:
		if change.Path != testFile {
			t.Errorf("Path = %q, want %q", change.Path, testFile)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for change")
	}

	watcher.Stop()
}

func TestWatcher_NewFile(t *testing.T) {
	tmpDir := t.TempDir()

	watcher := NewWatcher(WatcherConfig{
		Paths:    []string{tmpDir},
		Debounce: 50 * time.Millisecond,
	})

	changes := make(chan Change, 10)
	watcher.OnChange(func(c Change) {
		changes <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watcher.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	newFile := filepath.Join(tmpDir, "fresh.css")
	if err := os.WriteFile(newFile, []byte("body{}"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-changes:
		if change.Path != newFile {
			t.Errorf("Path = %q, want %q", change.Path, newFile)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for new file change")
	}

	watcher.Stop()
}

func TestWatcher_Ignore(t *testing.T) {
	tmpDir := t.TempDir()

	watcher := NewWatcher(WatcherConfig{
		Paths:  []string{tmpDir},
		Ignore: []string{"*.tmp", "node_modules"},
	})

	if !watcher.shouldIgnore(filepath.Join(tmpDir, "scratch.tmp")) {
		t.Error("should ignore *.tmp files")
	}
	if !watcher.shouldIgnore(filepath.Join(tmpDir, "node_modules", "lib.js")) {
		t.Error("should ignore node_modules directory")
	}
	if watcher.shouldIgnore(filepath.Join(tmpDir, "main.js")) {
		t.Error("should not ignore main.js")
	}
}

func TestWatcher_IgnoreSegments(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Paths:  []string{"."},
		Ignore: []string{"tmp"},
	})

	if !watcher.shouldIgnore(filepath.Join("foo", "tmp", "bar.js")) {
		t.Error("should ignore tmp directory segment")
	}
	if watcher.shouldIgnore(filepath.Join("foo", "attempt.js")) {
		t.Error("should not ignore substring match")
	}
}

func TestWatcher_IsRunning(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Paths: []string{"."},
	})

	if watcher.IsRunning() {
		t.Error("watcher should not be running initially")
	}
}
