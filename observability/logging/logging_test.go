package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupWriterRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(&buf, "bondswapd", "test", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("request executed", "contract", "pool")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["message"] != "request executed" || line["severity"] != "INFO" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line["service"] != "bondswapd" || line["env"] != "test" || line["contract"] != "pool" {
		t.Fatalf("missing attributes: %v", line)
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("token", "eyJhbGciOi").Value.String(); got != RedactedValue {
		t.Fatalf("token not masked: %q", got)
	}
	if got := MaskField("token", "").Value.String(); got != "" {
		t.Fatalf("empty value should stay empty: %q", got)
	}
}
