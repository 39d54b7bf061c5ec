package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultIsSilent(t *testing.T) {
	// Must not panic before Init.
	Debug("debug message")
	Info("info message")
	Sugar.Infof("entry %d", 1)
}

func TestLogLevels(t *testing.T) {
	tempDir := t.TempDir()
	t.Cleanup(func() { Set(nil) })

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{
			level:    "error",
			expected: []string{"ERROR"},
			excluded: []string{"WARN", "INFO", "DEBUG"},
		},
		{
			level:    "warn",
			expected: []string{"ERROR", "WARN"},
			excluded: []string{"INFO", "DEBUG"},
		},
		{
			level:    "info",
			expected: []string{"ERROR", "WARN", "INFO"},
			excluded: []string{"DEBUG"},
		},
		{
			level:    "debug",
			expected: []string{"ERROR", "WARN", "INFO", "DEBUG"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(tempDir, tt.level+".log")

			cfg := FileConfig{
				Path:       logFile,
				MaxSizeMB:  10,
				MaxBackups: 1,
				MaxAgeDays: 1,
			}
			if err := InitWithFileConfig(tt.level, cfg, false); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("failed to read log file: %v", err)
			}
			logContent := string(content)

			for _, exp := range tt.expected {
				if !strings.Contains(logContent, exp) {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if strings.Contains(logContent, exc) {
					t.Errorf("unexpected %s in log output for level %s", exc, tt.level)
				}
			}
		})
	}
}

func TestInitWithoutOutputs(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	if err := InitWithFileConfig("debug", FileConfig{}, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if Log.Core().Enabled(zap.ErrorLevel) {
		t.Error("logger without outputs should be a no-op")
	}
}

func TestSet(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core))

	Info("replaced", zap.Int("count", 3))
	Debug("dropped")

	if logs.Len() != 1 {
		t.Fatalf("got %d entries, want 1", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "replaced" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.ContextMap()["count"] != int64(3) {
		t.Errorf("count field = %v", entry.ContextMap()["count"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "debug",
		"warn":    "warn",
		"error":   "error",
		"info":    "info",
		"verbose": "info",
		"":        "info",
	}
	for in, want := range tests {
		if got := ParseLevel(in).String(); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/papercraft.log")

	if cfg.Path != "/tmp/papercraft.log" {
		t.Errorf("expected path /tmp/papercraft.log, got %s", cfg.Path)
	}
	if cfg.MaxSizeMB != 20 {
		t.Errorf("expected MaxSizeMB 20, got %d", cfg.MaxSizeMB)
	}
	if cfg.MaxBackups != 3 {
		t.Errorf("expected MaxBackups 3, got %d", cfg.MaxBackups)
	}
	if !cfg.Compress {
		t.Error("expected Compress to be true")
	}
}
