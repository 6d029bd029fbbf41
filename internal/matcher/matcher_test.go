package matcher

import "testing"

func testIndex() *Index {
	return BuildIndex([]Company{
		{ID: 1, Name: "Google LLC", KnownAliases: []string{"Google", "Alphabet Inc"}},
		{ID: 2, Name: "Microsoft Corporation", KnownAliases: []string{"MSFT"}},
		{ID: 3, Name: "3M Company"},
	})
}

func TestMatchExact(t *testing.T) {
	idx := testIndex()
	r, ok := idx.Match("Google", "", "")
	if !ok {
		t.Fatal("expected match")
	}
	if r.CompanyID != 1 || r.Score != 1.0 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestMatchPhraseContainmentBoost(t *testing.T) {
	idx := testIndex()
	r, ok := idx.Match("Google LLC Toronto Office", "", "")
	if !ok {
		t.Fatal("expected match")
	}
	if r.CompanyID != 1 {
		t.Fatalf("expected Google match, got %+v", r)
	}
	if r.Score < 0.91 {
		t.Fatalf("expected phrase-containment boost, got score %v", r.Score)
	}
}

func TestMatchRejectsLooseSingleToken(t *testing.T) {
	idx := testIndex()
	_, ok := idx.Match("Googly", "", "")
	if ok {
		t.Fatal("expected no match for unrelated single-token name")
	}
}

func TestMatchSingleTokenExactStillMatches(t *testing.T) {
	idx := testIndex()
	r, ok := idx.Match("google", "", "")
	if !ok || r.CompanyID != 1 {
		t.Fatalf("expected single-token exact match, got ok=%v r=%+v", ok, r)
	}
}

func TestMatchPrefersCompanyNameOverAliasOnTie(t *testing.T) {
	// Company 1's alias and company 2's name normalize to the same "acme",
	// and the alias is indexed first.
	idx := BuildIndex([]Company{
		{ID: 1, Name: "Acme Widgets", KnownAliases: []string{"Acme"}},
		{ID: 2, Name: "Acme"},
	})
	r, ok := idx.Match("Acme", "", "")
	if !ok {
		t.Fatal("expected match")
	}
	if r.Source != "company_name" {
		t.Fatalf("expected tie-break to prefer company_name, got %s", r.Source)
	}
}

func TestMatchFallsBackToBrandThenOperator(t *testing.T) {
	idx := testIndex()
	r, ok := idx.Match("Some Random Office", "Microsoft Corporation", "")
	if !ok {
		t.Fatal("expected brand match")
	}
	if r.CompanyID != 2 || r.MatchedField != "brand" {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestMatchNoCandidateFields(t *testing.T) {
	idx := testIndex()
	_, ok := idx.Match("", "", "")
	if ok {
		t.Fatal("expected no match with empty fields")
	}
}

func TestMatchBelowThresholdRejected(t *testing.T) {
	idx := testIndex()
	_, ok := idx.Match("Totally Unrelated Business Name", "", "")
	if ok {
		t.Fatal("expected unrelated name to be rejected")
	}
}
