// log/log_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		s   string
		lvl slog.Level
		err bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	} {
		lvl, err := ParseLevel(tc.s)
		if lvl != tc.lvl || (err != nil) != tc.err {
			t.Errorf("ParseLevel(%q) = %v, %v", tc.s, lvl, err)
		}
	}
}

func TestLoggerLevelsAndCallstack(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter(&buf, slog.LevelInfo)

	lg.Debugf("dropped %d", 1)
	lg.Infof("kept %d", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["msg"] != "kept 2" {
		t.Errorf("msg = %v", rec["msg"])
	}
	stack, ok := rec["callstack"].([]any)
	if !ok || len(stack) == 0 {
		t.Fatalf("no callstack attribute in %v", rec)
	}
	if fr, _ := stack[0].(map[string]any); fr["function"] != "log.TestLoggerLevelsAndCallstack" || fr["file"] != "log_test.go" {
		t.Errorf("callstack starts at %v, expected the logging call", stack[0])
	}
}

func TestNilLogger(t *testing.T) {
	var lg *Logger
	// None of these should crash.
	lg.Debug("debug")
	lg.Info("info")
	if lg.With("k", "v") != nil {
		t.Errorf("With on nil logger should return nil")
	}
}
