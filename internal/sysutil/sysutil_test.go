package sysutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	lg := NewLogger(&buf, false)
	lg.Info().Str("op", "create_post").Msg("Post 'x' was created")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["op"] != "create_post" || line["message"] != "Post 'x' was created" {
		t.Fatalf("unexpected fields: %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Fatalf("expected timestamp field: %v", line)
	}
}

func TestNewLogger_Pretty(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	lg := NewLogger(&buf, true)
	lg.Info().Str("op", "upvote").Msg("hello")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Fatalf("pretty output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "hello") || !strings.Contains(out, "op=upvote") {
		t.Fatalf("unexpected pretty output: %q", out)
	}
}

func TestNewLogger_RespectsGlobalLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	var buf bytes.Buffer
	lg := NewLogger(&buf, false)
	SetLogLevel("warn")
	lg.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line should be filtered at warn level: %q", buf.String())
	}
}
