package token

import (
	"strings"
	"testing"
)

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"100", true},
		{"999999999999999999999999", true},
		{"", false},
		{"0", false},
		{"007", false},
		{"-5", false},
		{"+5", false},
		{"1.5", false},
		{"1e3", false},
		{" 10", false},
		{"10 ", false},
		{"abc", false},
	}
	for _, tt := range tests {
		if got := IsValidAmount(tt.in); got != tt.want {
			t.Errorf("IsValidAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsValidDecimals(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"2", true},
		{"18", true},
		{"19", false},
		{"-1", false},
		{"", false},
		{"02", false},
		{"2.0", false},
		{"99999999999999999999", false},
	}
	for _, tt := range tests {
		if got := IsValidDecimals(tt.in); got != tt.want {
			t.Errorf("IsValidDecimals(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	for _, in := range []string{"250", "\"250\"", " 250\n"} {
		d, err := ParseAmount([]byte(in))
		if err != nil {
			t.Fatalf("ParseAmount(%q) failed: %v", in, err)
		}
		if d.String() != "250" {
			t.Errorf("ParseAmount(%q) = %s, want 250", in, d)
		}
	}

	if _, err := ParseAmount([]byte("not-a-number")); err == nil {
		t.Error("expected error for non-numeric payload")
	}
}

func TestValidator_TokenTags(t *testing.T) {
	type req struct {
		Amount   string `json:"amount" validate:"amount"`
		Decimals string `json:"decimals" validate:"decimals"`
		To       string `json:"to" validate:"required"`
	}
	v := NewValidator()

	if err := v.Struct(req{Amount: "10", Decimals: "2", To: "bob"}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	err := v.Struct(req{Amount: "010", Decimals: "19"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := Describe(err)
	for _, want := range []string{"amount must be a positive integer", "decimals must be an integer between 0 and 18", "to is required"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Describe() = %q, missing %q", msg, want)
		}
	}
}
