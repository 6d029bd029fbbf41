package wikidata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchClaimsParsesEmployeeCountAndMarketCap(t *testing.T) {
	body := `{
		"entities": {
			"Q95": {
				"claims": {
					"P1128": [
						{
							"mainsnak": {"datavalue": {"value": {"amount": "+139995", "unit": "1"}}},
							"rank": "normal",
							"qualifiers": {
								"P585": [{"datavalue": {"value": {"time": "+2023-00-00T00:00:00Z"}}}]
							}
						}
					],
					"P2226": [
						{
							"mainsnak": {"datavalue": {"value": {"amount": "+1780000000000", "unit": "http://www.wikidata.org/entity/Q4917"}}},
							"rank": "preferred"
						}
					]
				}
			}
		}
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.sleep = func(time.Duration) {}

	claims, err := c.FetchClaims(context.Background(), []string{"Q95"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claim, ok := claims["Q95"]
	if !ok {
		t.Fatal("expected claim for Q95")
	}
	if claim.EmployeeCount == nil || *claim.EmployeeCount != 139995 {
		t.Fatalf("unexpected employee count: %+v", claim.EmployeeCount)
	}
	if claim.EmployeeCountAsOf == nil || *claim.EmployeeCountAsOf != "2023-01-01" {
		t.Fatalf("unexpected employee count as-of: %+v", claim.EmployeeCountAsOf)
	}
	if claim.MarketCap == nil || *claim.MarketCap != 1780000000000 {
		t.Fatalf("unexpected market cap: %+v", claim.MarketCap)
	}
	if claim.MarketCapCurrency == nil || *claim.MarketCapCurrency != "Q4917" {
		t.Fatalf("unexpected market cap currency: %+v", claim.MarketCapCurrency)
	}
}

func TestFetchClaimsSkipsDeprecatedRank(t *testing.T) {
	body := `{
		"entities": {
			"Q1": {
				"claims": {
					"P1128": [
						{"mainsnak": {"datavalue": {"value": {"amount": "+1", "unit": "1"}}}, "rank": "deprecated"},
						{"mainsnak": {"datavalue": {"value": {"amount": "+500", "unit": "1"}}}, "rank": "normal"}
					]
				}
			}
		}
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.sleep = func(time.Duration) {}

	claims, err := c.FetchClaims(context.Background(), []string{"Q1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *claims["Q1"].EmployeeCount != 500 {
		t.Fatalf("expected deprecated claim to be skipped, got %+v", claims["Q1"].EmployeeCount)
	}
}

func TestFetchClaimsNoClaimReturnsNilNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entities": {"Q2": {"claims": {}}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.sleep = func(time.Duration) {}

	claims, err := c.FetchClaims(context.Background(), []string{"Q2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims["Q2"].EmployeeCount != nil || claims["Q2"].MarketCap != nil {
		t.Fatalf("expected nil fields, got %+v", claims["Q2"])
	}
}

func TestChunkIDsRespectsChunkSize(t *testing.T) {
	ids := make([]string, 65)
	for i := range ids {
		ids[i] = "Q1"
	}
	chunks := chunkIDs(ids, chunkSize)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != chunkSize || len(chunks[2]) != 5 {
		t.Fatalf("unexpected chunk sizes: %d, %d", len(chunks[0]), len(chunks[2]))
	}
}

func TestCanonicalizeWikidataTime(t *testing.T) {
	cases := map[string]string{
		"+2021-00-00T00:00:00Z": "2021-01-01",
		"+2021-06-15T00:00:00Z": "2021-06-15",
	}
	for in, want := range cases {
		if got := canonicalizeWikidataTime(in); got != want {
			t.Errorf("canonicalizeWikidataTime(%q) = %q, want %q", in, got, want)
		}
	}
}
