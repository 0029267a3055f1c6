package feather2d

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watchTimeout = 5 * time.Second

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatchConfig_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	writeConfigFile(t, path, "workers: 1\n")

	watcher, err := WatchConfig(path)
	if err != nil {
		t.Fatalf("WatchConfig() error = %v", err)
	}
	defer watcher.Close()

	writeConfigFile(t, path, "workers: 3\nallow_sleep: false\n")

	select {
	case config := <-watcher.Configs:
		if config.Workers != 3 || config.AllowSleep {
			t.Errorf("reloaded config = %+v", config)
		}
	case err := <-watcher.Errors:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(watchTimeout):
		t.Fatal("no config received")
	}
}

func TestWatchConfig_ReportsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	writeConfigFile(t, path, "workers: 1\n")

	watcher, err := WatchConfig(path)
	if err != nil {
		t.Fatalf("WatchConfig() error = %v", err)
	}
	defer watcher.Close()

	writeConfigFile(t, path, "workers: 0\n")

	select {
	case config := <-watcher.Configs:
		t.Fatalf("invalid file delivered a config: %+v", config)
	case err := <-watcher.Errors:
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	case <-time.After(watchTimeout):
		t.Fatal("no error received")
	}
}

func TestWatchConfig_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.yaml")
	writeConfigFile(t, path, "workers: 1\n")

	watcher, err := WatchConfig(path)
	if err != nil {
		t.Fatalf("WatchConfig() error = %v", err)
	}
	defer watcher.Close()

	writeConfigFile(t, filepath.Join(dir, "other.yaml"), "workers: 2\n")

	select {
	case config := <-watcher.Configs:
		t.Errorf("config reloaded for another file: %+v", config)
	case <-time.After(5 * watchDebounce):
	}
}

func TestConfigWatcher_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	writeConfigFile(t, path, "workers: 1\n")

	watcher, err := WatchConfig(path)
	if err != nil {
		t.Fatalf("WatchConfig() error = %v", err)
	}

	if err := watcher.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, ok := <-watcher.Configs; ok {
		t.Errorf("Configs still open after Close")
	}
}

func TestWatchConfig_MissingDirectory(t *testing.T) {
	if _, err := WatchConfig(filepath.Join(t.TempDir(), "missing", "world.yaml")); err == nil {
		t.Errorf("WatchConfig() on a missing directory succeeded")
	}
}
