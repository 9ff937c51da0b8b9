package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"testing"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "soulbound", "test", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("minted", MaskField("to", "0x2403db2cd0a7504f1edf778b888786eb802ccf17"), MaskField("ledger", "0xb1"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["service"] != "soulbound" || line["env"] != "test" {
		t.Fatalf("missing service attributes: %v", line)
	}
	if line["severity"] != "INFO" || line["message"] != "minted" {
		t.Fatalf("unexpected envelope: %v", line)
	}
	if line["to"] != RedactedValue {
		t.Fatalf("expected holder masked, got %v", line["to"])
	}
	if line["ledger"] != "0xb1" {
		t.Fatalf("allowlisted key was masked: %v", line["ledger"])
	}
}

func TestMaskValue(t *testing.T) {
	if MaskValue("") != "" || MaskValue("  ") != "  " {
		t.Fatalf("empty values must pass through")
	}
	if MaskValue("john") != RedactedValue {
		t.Fatalf("expected redaction")
	}
	if !slices.IsSorted(RedactionAllowlist()) {
		t.Fatalf("allowlist must be sorted")
	}
	if IsAllowlisted("to") || !IsAllowlisted(" Ledger ") {
		t.Fatalf("unexpected allowlist membership")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("%q: got %v want %v", input, got, want)
		}
	}
}
