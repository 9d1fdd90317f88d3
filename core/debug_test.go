package core_test

import (
	"testing"

	"hrpwm/core"
)

func TestDebugLogger(t *testing.T) {
	var lines []string
	w := func(s string) { lines = append(lines, s) }

	quiet := core.DebugLogger(w, false)
	quiet.Debugf("hidden %d", 1)
	quiet.Infof("info %d", 2)
	quiet.Warnf("warn %s", "x")
	quiet.Errorf("error")

	expected := []string{"[INFO] info 2", "[WARN] warn x", "[ERROR] error"}
	if len(lines) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("line %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}

	lines = nil
	core.DebugLogger(w, true).Debugf("shown")
	if len(lines) != 1 || lines[0] != "[DEBUG] shown" {
		t.Errorf("verbose logger dropped debug output: %v", lines)
	}

	if core.DebugLogger(nil, true) != core.NopLogger {
		t.Error("nil writer should yield NopLogger")
	}
}
