package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "debug", "json")
	l.WithField("component", "test").Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "test" || entry["msg"] != "hello" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"WARN":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"info":    logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("COMMENTRADAR_TEST_VAR=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COMMENTRADAR_TEST_VAR", "")
	os.Unsetenv("COMMENTRADAR_TEST_VAR")

	loaded := LoadEnv(nil, path, filepath.Join(t.TempDir(), "missing.env"))
	if len(loaded) != 1 {
		t.Fatalf("expected one file loaded, got %v", loaded)
	}
	if got := os.Getenv("COMMENTRADAR_TEST_VAR"); got != "from-file" {
		t.Errorf("expected variable from file, got %q", got)
	}
}

func TestLoadEnv_DoesNotOverrideProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("COMMENTRADAR_TEST_KEEP=file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COMMENTRADAR_TEST_KEEP", "process")

	LoadEnv(nil, path)
	if got := os.Getenv("COMMENTRADAR_TEST_KEEP"); got != "process" {
		t.Errorf("process environment must win, got %q", got)
	}
}
