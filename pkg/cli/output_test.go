package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type verifyReport struct {
	Type   string `json:"type"`
	Issues int    `json:"issues"`
}

func TestTextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatText).FormatTo(buf, "3 records imported"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "3 records imported\n" {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), "3 records imported\n")
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	report := verifyReport{Type: "Patient", Issues: 2}
	if err := NewFormatter(FormatJSON).FormatTo(buf, report); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded verifyReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("FormatTo() produced invalid JSON: %v", err)
	}
	if decoded != report {
		t.Errorf("round trip = %+v, want %+v", decoded, report)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output should be indented")
	}
}

func TestJSONFormatBytes(t *testing.T) {
	out, err := NewFormatter(FormatJSON).Format(verifyReport{Type: "Patient"})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !json.Valid(out) {
		t.Errorf("Format() produced invalid JSON: %q", out)
	}
}

func TestUnknownFormatFallsBackToText(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter("csv").FormatTo(buf, "ok"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "ok\n" {
		t.Errorf("FormatTo() = %q, want text fallback", buf.String())
	}
}
