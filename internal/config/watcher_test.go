package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/fsnotify/fsnotify"
)

func watchedConfig(topic string) string {
	return `
cls:
  endpoint: ap-guangzhou.cls.myqcloud.com
  secretid: AKIDtest
  secretkey: secret
  topicname: ` + topic + "\n"
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func startWatcher(t *testing.T, path string) *ConfigWatcher {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	w := NewConfigWatcher(path, logger.NewConsoleLogger(io.Discard))
	w.debounce = 10 * time.Millisecond
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return w
}

func waitChange(t *testing.T, w *ConfigWatcher) *Config {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-w.Changes():
			return cfg
		case err := <-w.Errors():
			// A reload can observe the file mid-write
			t.Logf("reload error: %v", err)
		case <-timeout:
			t.Fatal("timed out waiting for config change")
			return nil
		}
	}
}

func TestConfigWatcher_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, watchedConfig("api"))

	w := startWatcher(t, path)
	writeFile(t, path, watchedConfig("web"))

	cfg := waitChange(t, w)
	if cfg.CLS.TopicName != "web" {
		t.Errorf("expected topicname=web, got %s", cfg.CLS.TopicName)
	}
	if w.LastConfig() != cfg {
		t.Error("expected LastConfig to return the published config")
	}
}

func TestConfigWatcher_RenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, watchedConfig("api"))

	w := startWatcher(t, path)

	tmp := filepath.Join(dir, ".config.yaml.swp")
	writeFile(t, tmp, watchedConfig("replaced"))
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	cfg := waitChange(t, w)
	if cfg.CLS.TopicName != "replaced" {
		t.Errorf("expected topicname=replaced, got %s", cfg.CLS.TopicName)
	}
}

func TestConfigWatcher_InvalidNotPublished(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, watchedConfig("api"))

	w := startWatcher(t, path)
	writeFile(t, path, "cls:\n  endpoint: ap-guangzhou.cls.myqcloud.com\n")

	select {
	case err := <-w.Errors():
		if err == nil {
			t.Fatal("expected a validation error")
		}
	case cfg := <-w.Changes():
		t.Fatalf("invalid config published: %+v", cfg.CLS)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
	if w.LastConfig() != nil {
		t.Error("expected no config to be recorded")
	}
}

func TestConfigWatcher_NewestWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	w := NewConfigWatcher(path, logger.NewConsoleLogger(io.Discard))

	writeFile(t, path, watchedConfig("first"))
	w.reload()
	writeFile(t, path, watchedConfig("second"))
	w.reload()

	cfg := <-w.Changes()
	if cfg.CLS.TopicName != "second" {
		t.Errorf("expected the newest config, got %s", cfg.CLS.TopicName)
	}
	select {
	case stale := <-w.Changes():
		t.Errorf("unexpected pending config %s", stale.CLS.TopicName)
	default:
	}
}

func TestConfigWatcher_Relevant(t *testing.T) {
	w := NewConfigWatcher("/etc/cls-shipper/config.yaml", logger.NewConsoleLogger(io.Discard))

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: "/etc/cls-shipper/config.yaml", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "/etc/cls-shipper/config.yaml", Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: "/etc/cls-shipper/config.yaml", Op: fsnotify.Chmod}, false},
		{"sibling", fsnotify.Event{Name: "/etc/cls-shipper/other.yaml", Op: fsnotify.Write}, false},
		{"configmap swap", fsnotify.Event{Name: "/etc/cls-shipper/..data", Op: fsnotify.Create}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}
