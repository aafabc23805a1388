package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)
	SetRedactPII(true)
	t.Cleanup(func() {
		SetOutput(nopWriter{})
		SetLevel(INFO)
	})
	return &buf
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestInfo_WritesJSONWithFields(t *testing.T) {
	buf := capture(t)

	Info("record transitioned", "record_id", 42, "status", "followup_due")

	var entry map[string]string
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry["level"] != "INFO" || entry["msg"] != "record transitioned" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["record_id"] != "42" {
		t.Errorf("record_id = %q", entry["record_id"])
	}
}

func TestRedaction_EmailKeysAndEmbedded(t *testing.T) {
	buf := capture(t)

	Warn("notify failed", "recipient_email", "jane.doe@example.com", "error", "smtp: rejected bob@corp.io")

	out := buf.String()
	if strings.Contains(out, "jane.doe@") || strings.Contains(out, "bob@corp.io") {
		t.Errorf("PII leaked: %s", out)
	}
	if !strings.Contains(out, "ja***@example.com") {
		t.Errorf("expected redacted address, got %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	Info("dropped")
	Error("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("INFO entry written at WARN level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("ERROR entry missing")
	}
}

func TestWith_BindsFields(t *testing.T) {
	buf := capture(t)

	l := With("component", "sweep")
	l.Info("pass done", "processed", 3)

	if !strings.Contains(buf.String(), `"component":"sweep"`) {
		t.Errorf("bound field missing: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": DEBUG, "warning": WARN, "ERROR": ERROR, "": INFO, "loud": INFO}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRedactEmail(t *testing.T) {
	cases := map[string]string{
		"john.doe@example.com": "jo***@example.com",
		"ab@example.com":       "***@example.com",
		"not-an-email":         "***@***",
	}
	for in, want := range cases {
		if got := RedactEmail(in); got != want {
			t.Errorf("RedactEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
