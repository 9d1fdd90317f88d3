package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"hrpwm/config"
	"hrpwm/core"
	"hrpwm/hal/sim"
)

func newTestShell(t *testing.T) (*shell, *sim.HRTIM, *bytes.Buffer) {
	t.Helper()
	hw := sim.New()
	logger, _ := test.NewNullLogger()
	setup, err := config.DefaultBoard().Build(hw, logger)
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	return newShell(setup, out), hw, out
}

func TestShellCommands(t *testing.T) {
	sh, hw, out := newTestShell(t)

	testCases := []struct {
		line string
		ok   bool
	}{
		{"", true},
		{"# comment", true},
		{"write 'phase1' 0.5", true},
		{"write 'phase1 0.5", false},
		{"write phase1 0.5", true},
		{"write PWM2_OUT 0.25", true},
		{"write phase1", false},
		{"write phase1 half", false},
		{"write nosuch 0.1", false},
		{"stop phase3", true},
		{"start phase3", true},
		{"sync phase1 phase2", true},
		{"sync phase1", false},
		{"show", true},
		{"help", true},
		{"frobnicate", false},
	}

	for _, tc := range testCases {
		err := sh.exec(tc.line)
		if (err == nil) != tc.ok {
			t.Errorf("%q: unexpected result %v", tc.line, err)
		}
	}

	if got := hw.CompareValue(core.TimerC, core.Compare1); got != 32381 {
		t.Errorf("phase1 compare %d, expected 32381", got)
	}
	if !strings.Contains(out.String(), "phase3") || !strings.Contains(out.String(), "MUL16") {
		t.Errorf("show output missing channel table:\n%s", out.String())
	}
}

func TestShellRun(t *testing.T) {
	sh, hw, out := newTestShell(t)
	in := strings.NewReader("stop phase2\nbogus\nquit\nwrite phase1 1\n")
	if err := sh.run(in); err != nil {
		t.Fatal(err)
	}
	if hw.Enabled()&core.OutputTD1 != 0 {
		t.Error("phase2 still enabled")
	}
	if !strings.Contains(out.String(), "Error: unknown command") {
		t.Errorf("error not reported:\n%s", out.String())
	}
	if hw.CompareValue(core.TimerC, core.Compare1) != 0 {
		t.Error("commands after quit must not run")
	}
}
