package clog

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLoggerIncludesKeyValues(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	SetLevel(LevelTrace)
	defer SetOutput(os.Stderr)

	l := New("downloader")
	l.Info("scheduled block", "hash", "0xabc", "source", "peer-1")

	got := buf.String()
	for _, want := range []string{"INFO", "[downloader]", "scheduled block", "hash=0xabc", "source=peer-1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected log line to contain %q, got %q", want, got)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	SetLevel(LevelWarn)
	defer SetOutput(os.Stderr)

	l := New("relay")
	l.Debug("should not appear")
	l.Warn("should appear")

	got := buf.String()
	if strings.Contains(got, "should not appear") {
		t.Fatalf("debug message leaked through Warn threshold: %q", got)
	}
	if !strings.Contains(got, "should appear") {
		t.Fatalf("expected warn message in output: %q", got)
	}
}

func TestWithAddsPersistentContext(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	SetLevel(LevelTrace)
	defer SetOutput(os.Stderr)

	l := New("relay").With("round", 1)
	l.Info("announced", "peer", "p1")

	got := buf.String()
	if !strings.Contains(got, "round=1") || !strings.Contains(got, "peer=p1") {
		t.Fatalf("expected both persistent and call context, got %q", got)
	}
}
