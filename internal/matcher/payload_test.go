package matcher

import (
	"errors"
	"testing"

	"github.com/ssematimba/gate-check/internal/attendance"
)

func TestParsePayload_StructuredJSON(t *testing.T) {
	id, err := ParsePayload(`{"personId": 42}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestParsePayload_BareInteger(t *testing.T) {
	id, err := ParsePayload("42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestParsePayload_IntegerWithWhitespace(t *testing.T) {
	id, err := ParsePayload("  117\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 117 {
		t.Errorf("expected 117, got %d", id)
	}
}

func TestParsePayload_PrefixedIdentifier(t *testing.T) {
	// Printed card codes carry the id as the last dash-separated segment.
	id, err := ParsePayload("not-json-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("expected 42 via integer fallback, got %d", id)
	}
}

func TestParsePayload_Malformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"hello",
		"{}",
		`{"personId": "x"}`,
		`{"personId": 0}`,
		"-5",
		"card-abc",
	}

	for _, payload := range cases {
		_, err := ParsePayload(payload)
		if !errors.Is(err, attendance.ErrMalformedPayload) {
			t.Errorf("ParsePayload(%q): expected ErrMalformedPayload, got %v", payload, err)
		}
	}
}
