package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	type spec struct {
		in     string
		expLvl Level
		expErr bool
	}

	specs := []spec{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{"", Notice, false},
		{" warn ", Warning, false},
		{"error", Error, false},
		{"loud", Notice, true},
	}

	for specIndex, s := range specs {
		lvl, err := ParseLevel(s.in)
		if s.expErr != (err != nil) {
			t.Fatalf("[spec %d] expected error to be %t; got %v", specIndex, s.expErr, err)
		}
		if lvl != s.expLvl {
			t.Fatalf("[spec %d] expected level %s; got %s", specIndex, s.expLvl, lvl)
		}
	}
}

func TestSinkAndLevel(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer func() {
		SetSink(os.Stdout)
		SetLevel(Notice)
	}()

	logger := New("test")
	SetLevel(Warning)
	logger.Info("hidden")
	logger.Warning("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info message to be filtered; got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "[test]") {
		t.Fatalf("expected warning message tagged with module name; got %q", out)
	}
}

func TestConfigure(t *testing.T) {
	defer SetLevel(Notice)

	specs := []struct {
		levelName string
		verbosity int
		expLvl    Level
		expErr    bool
	}{
		{"", 0, Notice, false},
		{"warning", 0, Warning, false},
		{"error", 1, Info, false},
		{"info", 2, Debug, false},
		// Unknown names keep the previous level.
		{"loud", 0, Notice, true},
		{"loud", 1, Info, true},
	}

	for specIndex, s := range specs {
		SetLevel(Notice)
		err := Configure(s.levelName, s.verbosity)
		if s.expErr != (err != nil) {
			t.Fatalf("[spec %d] expected error to be %t; got %v", specIndex, s.expErr, err)
		}
		if CurrentLevel() != s.expLvl {
			t.Fatalf("[spec %d] expected level %s; got %s", specIndex, s.expLvl, CurrentLevel())
		}
	}
}

func TestPlainSinkFormat(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stdout)

	SetLevel(Debug)
	defer SetLevel(Notice)
	New("frame").Debugf("frame %d", 7)

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color escapes when logging to a buffer; got %q", out)
	}
	if !strings.Contains(out, "[frame] [DEBUG] frame 7") {
		t.Fatalf("expected module, level and message; got %q", out)
	}
}
