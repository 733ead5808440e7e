package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWritesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "rentacard", "test")
	logger.Info("started", MaskField("passphrase", "hunter2"), MaskField("method", "rental"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["service"] != "rentacard" || line["env"] != "test" {
		t.Fatalf("missing base attributes: %v", line)
	}
	if line["message"] != "started" || line["severity"] != "INFO" {
		t.Fatalf("unexpected renamed keys: %v", line)
	}
	if line["passphrase"] != RedactedValue {
		t.Fatalf("passphrase leaked: %v", line["passphrase"])
	}
	if line["method"] != "rental" {
		t.Fatalf("allowlisted key masked: %v", line["method"])
	}
}

func TestMaskFieldKeepsEmptyValues(t *testing.T) {
	if attr := MaskField("secret", " "); attr.Value.String() != " " {
		t.Fatalf("empty value should pass through, got %q", attr.Value.String())
	}
}
