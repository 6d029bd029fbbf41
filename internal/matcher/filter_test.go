package matcher

import (
	"testing"

	"github.com/pinggolf/cancercenter-offices/internal/normalize"
)

func TestFilterOfficesWithKnownCompanies(t *testing.T) {
	idx := testIndex()
	offices := []normalize.Office{
		{OSMType: "node", OSMID: 1, Name: "Google LLC"},
		{OSMType: "node", OSMID: 2, Name: "Unrelated Bakery"},
	}

	matched, matchedCount, filteredOutCount := FilterOfficesWithKnownCompanies(idx, offices)

	if matchedCount != 1 || filteredOutCount != 1 {
		t.Fatalf("unexpected counts: matched=%d filteredOut=%d", matchedCount, filteredOutCount)
	}
	if len(matched) != 1 || matched[0].OSMID != 1 {
		t.Fatalf("unexpected survivors: %+v", matched)
	}
	if matched[0].Tags["_matched_company"] != "Google LLC" {
		t.Fatalf("expected matched company tag, got %+v", matched[0].Tags)
	}
}

func TestFilterOfficesDoesNotMutateOriginalTags(t *testing.T) {
	idx := testIndex()
	original := map[string]string{"name": "Google LLC"}
	offices := []normalize.Office{
		{OSMType: "node", OSMID: 1, Name: "Google LLC", Tags: original},
	}

	matched, _, _ := FilterOfficesWithKnownCompanies(idx, offices)

	if _, ok := original["_matched_company"]; ok {
		t.Fatal("original tags map was mutated")
	}
	if matched[0].Tags["_matched_company"] != "Google LLC" {
		t.Fatalf("expected matched tag on copy, got %+v", matched[0].Tags)
	}
}
