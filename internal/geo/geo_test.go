package geo

import (
	"math"
	"testing"
)

func TestHaversineMetersKnownDistance(t *testing.T) {
	// Princess Margaret Cancer Centre area to a point ~208m away.
	d := HaversineMeters(43.6582, -79.3907, 43.66, -79.39)
	if d < 100 || d > 400 {
		t.Fatalf("expected distance in the hundreds of meters, got %.2f", d)
	}
}

func TestHaversineMetersZero(t *testing.T) {
	d := HaversineMeters(10, 20, 10, 20)
	if math.Abs(d) > 1e-9 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestNormalizeWikidataID(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"q42", "Q42", true},
		{"Q123456", "Q123456", true},
		{"see https://wikidata.org/wiki/Q7259", "Q7259", true},
		{"no id here", "", false},
		{"Q0", "", false}, // Q0 is not a valid id (leading digit must be 1-9)
	}
	for _, c := range cases {
		got, ok := NormalizeWikidataID(c.raw)
		if ok != c.ok || got != c.want {
			t.Errorf("NormalizeWikidataID(%q) = (%q, %v), want (%q, %v)", c.raw, got, ok, c.want, c.ok)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	got, ok := SanitizeText("  hello world  ", 100)
	if !ok || got != "hello world" {
		t.Fatalf("got (%q, %v)", got, ok)
	}

	_, ok = SanitizeText("   ", 100)
	if ok {
		t.Fatalf("expected empty after trim to be rejected")
	}

	got, ok = SanitizeText("abcdefgh", 4)
	if !ok || got != "abcd" {
		t.Fatalf("truncation failed: got (%q, %v)", got, ok)
	}
}

func TestFiniteInRange(t *testing.T) {
	if !FiniteInRange(45.0, -90, 90) {
		t.Fatal("expected in range")
	}
	if FiniteInRange(math.NaN(), -90, 90) {
		t.Fatal("NaN should not be in range")
	}
	if FiniteInRange(91, -90, 90) {
		t.Fatal("91 should not be in [-90,90]")
	}
}
