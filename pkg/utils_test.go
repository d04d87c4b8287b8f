package common

import (
	"testing"

	"placedir/internal/domain"
)

func TestContains(t *testing.T) {
	if !Contains([]string{"a", "b", "c"}, "b") {
		t.Error("expected slice to contain \"b\"")
	}

	if Contains([]string{"a", "b", "c"}, "z") {
		t.Error("expected slice not to contain \"z\"")
	}
}

func TestValidateCountryAddress(t *testing.T) {
	if err := ValidateCountryAddress("BR"); err != nil {
		t.Errorf("expected BR to be valid, got %v", err)
	}

	err := ValidateCountryAddress("ZZ")
	if err == nil {
		t.Fatal("expected an error for an unknown country code")
	}

	if err != domain.ErrInvalidCountry {
		t.Errorf("expected domain.ErrInvalidCountry, got %v", err)
	}
}

func TestIsUUID(t *testing.T) {
	cases := map[string]bool{
		"0191d6e2-9b1e-7c3a-8b2e-1a2b3c4d5e6f": true,
		"not-a-uuid":                          false,
		"":                                    false,
	}

	for in, want := range cases {
		if got := IsUUID(in); got != want {
			t.Errorf("IsUUID(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGenerateUUIDv7(t *testing.T) {
	a := GenerateUUIDv7()
	b := GenerateUUIDv7()

	if !IsUUID(a) {
		t.Errorf("generated id %q does not look like a UUID", a)
	}

	if a == b {
		t.Error("expected two distinct generated ids")
	}
}
