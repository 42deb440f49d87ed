package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/hold/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"ResourceID", id.NewResourceID, "res_"},
		{"ClaimID", id.NewClaimID, "clm_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixClaim)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixClaim {
		t.Errorf("expected prefix %q, got %q", id.PrefixClaim, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"ResourceID", id.NewResourceID, id.ParseResourceID},
		{"ClaimID", id.NewClaimID, id.ParseClaimID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	resID := id.NewResourceID()

	if _, err := id.ParseClaimID(resID.String()); err == nil {
		t.Error("expected error parsing resource ID as claim ID")
	}
	if _, err := id.ParseResourceID(id.NewClaimID().String()); err == nil {
		t.Error("expected error parsing claim ID as resource ID")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"Garbage", "not-a-typeid"},
		{"MissingSuffix", "clm_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := id.Parse(tt.input); err == nil {
				t.Errorf("expected error parsing %q", tt.input)
			}
		})
	}
}

func TestNilID(t *testing.T) {
	var nilID id.ID

	if !nilID.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if nilID.String() != "" {
		t.Errorf("nil ID string should be empty, got %q", nilID.String())
	}

	data, err := nilID.MarshalText()
	if err != nil {
		t.Fatalf("marshal nil ID: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("nil ID should marshal to empty text, got %q", data)
	}
}

func TestTextRoundTrip(t *testing.T) {
	original := id.NewClaimID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed id.ID
	if err := parsed.UnmarshalText(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}
}

func TestSQLRoundTrip(t *testing.T) {
	original := id.NewResourceID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", scanned.String(), original.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !fromNil.IsNil() {
		t.Error("scanning NULL should produce the nil ID")
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		s := id.NewClaimID().String()
		if seen[s] {
			t.Fatalf("duplicate ID generated: %s", s)
		}
		seen[s] = true
	}
}
