package manifest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPackRecordRoundTrip(t *testing.T) {
	r := NewPackRecord("0.3.0", "release build")
	if _, err := uuid.Parse(r.BuildID); err != nil {
		t.Fatalf("BuildID %q is not a UUID: %v", r.BuildID, err)
	}
	if r.CreatedAt == 0 {
		t.Error("CreatedAt not set")
	}

	data, err := EncodePackRecord(r)
	if err != nil {
		t.Fatalf("EncodePackRecord failed: %v", err)
	}

	got, err := DecodePackRecord(data)
	if err != nil {
		t.Fatalf("DecodePackRecord failed: %v", err)
	}
	if got != r {
		t.Errorf("decoded = %+v, want %+v", got, r)
	}
}

func TestPackRecordDeterministic(t *testing.T) {
	r := PackRecord{
		BuildID:     "00000000-0000-0000-0000-000000000001",
		ToolVersion: "0.3.0",
		CreatedAt:   1700000000,
	}
	a, err := EncodePackRecord(r)
	if err != nil {
		t.Fatalf("EncodePackRecord failed: %v", err)
	}
	b, err := EncodePackRecord(r)
	if err != nil {
		t.Fatalf("EncodePackRecord failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical records encoded differently")
	}
}

func TestDecodePackRecordRejectsBadBuildID(t *testing.T) {
	data, err := EncodePackRecord(PackRecord{BuildID: "not-a-uuid", ToolVersion: "x"})
	if err != nil {
		t.Fatalf("EncodePackRecord failed: %v", err)
	}
	if _, err := DecodePackRecord(data); err == nil {
		t.Error("accepted a record with a malformed build ID")
	}
}

func TestDecodePackRecordRejectsGarbage(t *testing.T) {
	if _, err := DecodePackRecord([]byte("definitely not cbor")); err == nil {
		t.Error("accepted non-CBOR input")
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	s := Summary{
		Version:        3,
		SourceHash:     strings.Repeat("ab", 32),
		FunctionCount:  12,
		StringCount:    40,
		RegExpCount:    2,
		CJSModuleCount: 1,
		FileLength:     8192,
		Options:        1,
	}
	data, err := EncodeSummary(s)
	if err != nil {
		t.Fatalf("EncodeSummary failed: %v", err)
	}
	got, err := DecodeSummary(data)
	if err != nil {
		t.Fatalf("DecodeSummary failed: %v", err)
	}
	if got != s {
		t.Errorf("decoded = %+v, want %+v", got, s)
	}
}

func TestHashHex(t *testing.T) {
	if got := HashHex([]byte{0xDE, 0xAD}); got != "dead" {
		t.Errorf("HashHex = %q, want %q", got, "dead")
	}
}
