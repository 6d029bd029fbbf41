package csvimport

import (
	"strings"
	"testing"
)

func normalizeStub(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func TestParseCentersAccepted(t *testing.T) {
	body := "center_code,name,lat,lon,country,region,tier,source_url\n" +
		"PM,Princess Margaret,43.6582,-79.3907,CA,ON,1,https://example.org\n"

	rows, issues, err := ParseCenters(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if len(rows) != 1 || rows[0].CenterCode != "PM" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParseCentersLaterRowOverwrites(t *testing.T) {
	body := "center_code,name,lat,lon,country,region,tier,source_url\n" +
		"PM,First Name,43.0,-79.0,CA,ON,1,\n" +
		"PM,Second Name,44.0,-80.0,CA,ON,2,\n"

	rows, _, err := ParseCenters(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected dedupe to one row, got %d", len(rows))
	}
	if rows[0].Name != "Second Name" {
		t.Fatalf("expected later row to win, got %q", rows[0].Name)
	}
}

func TestParseCentersRejectsBadLatLon(t *testing.T) {
	body := "center_code,name,lat,lon,country,region,tier,source_url\n" +
		"PM,Princess Margaret,200,-79.39,CA,ON,1,\n"

	rows, issues, err := ParseCenters(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected row to be rejected, got %+v", rows)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %+v", issues)
	}
}

func TestParseCentersBadSourceURL(t *testing.T) {
	body := "center_code,name,lat,lon,country,region,tier,source_url\n" +
		"PM,Princess Margaret,43.0,-79.0,CA,ON,1,ftp://bad\n"

	_, issues, err := ParseCenters(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected source_url rejection, got %+v", issues)
	}
}

func TestParseCentersMissingHeader(t *testing.T) {
	body := "center_code,name,lat,lon\nPM,X,1,1\n"
	_, _, err := ParseCenters(strings.NewReader(body))
	if err == nil {
		t.Fatal("expected error for missing required header")
	}
}

func TestParseCentersUnterminatedQuoteFails(t *testing.T) {
	body := "center_code,name,lat,lon,country,region,tier,source_url\n" +
		"PM,\"unterminated,43.0,-79.0,CA,ON,1,\n"
	_, _, err := ParseCenters(strings.NewReader(body))
	if err == nil {
		t.Fatal("expected parser-wide error for unterminated quote")
	}
}

func TestParseCompaniesAliasHandling(t *testing.T) {
	body := "company_name,known_aliases\nAcme,Acme Corp|Acme|Acme Ltd\n"
	rows, issues, err := ParseCompanies(strings.NewReader(body), normalizeStub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	// "Acme" alias should be dropped since it normalizes same as company name.
	if strings.Contains(rows[0].KnownAliases, "|Acme|") || rows[0].KnownAliases == "Acme" {
		t.Fatalf("expected self-referential alias dropped, got %q", rows[0].KnownAliases)
	}
	if !strings.Contains(rows[0].KnownAliases, "Acme Corp") {
		t.Fatalf("expected Acme Corp alias kept, got %q", rows[0].KnownAliases)
	}
}

func TestParseCompaniesDedupe(t *testing.T) {
	body := "company_name\nAcme\nACME\n"
	rows, _, err := ParseCompanies(strings.NewReader(body), normalizeStub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected dedupe to 1 row, got %d", len(rows))
	}
}
