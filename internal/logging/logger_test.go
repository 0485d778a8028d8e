package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/events"
)

func TestNewTestLogger_WritesConsole(t *testing.T) {
	var buf bytes.Buffer
	l := NewTestLogger(&buf)
	l.Infof("uploaded %s", "posts/a.md")

	if !strings.Contains(buf.String(), "uploaded posts/a.md") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}

func TestEnableFileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	l := NewTestLogger(&buf)

	if err := l.EnableFileLogging(dir); err != nil {
		t.Fatalf("EnableFileLogging: %v", err)
	}
	l.Info().Str("key", "posts/a.md").Msg("file logging works")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, constants.LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"key":"posts/a.md"`) {
		t.Errorf("log file should hold JSON entries, got %q", data)
	}
	if !strings.Contains(buf.String(), "file logging works") {
		t.Error("console output should still receive the entry")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWarningsReachEventBus(t *testing.T) {
	bus := events.NewEventBus(4)
	defer bus.Close()
	ch := bus.Subscribe(events.EventLog)

	l := NewLogger("gui", bus)
	l.SetOutput(&bytes.Buffer{})
	l.Infof("not forwarded")
	l.Warnf("bucket has %d objects", 5000)

	select {
	case ev := <-ch:
		le := ev.(*events.LogEvent)
		if le.Level != events.WarnLevel || le.Message != "bucket has 5000 objects" {
			t.Errorf("unexpected log event: %+v", le)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("warning was not published")
	}
	select {
	case ev := <-ch:
		t.Errorf("unexpected extra event: %+v", ev)
	default:
	}
}
