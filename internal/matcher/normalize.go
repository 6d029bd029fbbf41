package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var corporateSuffixes = map[string]bool{
	"inc": true, "incorporated": true, "llc": true, "ltd": true, "limited": true,
	"corp": true, "corporation": true, "co": true, "company": true, "plc": true,
	"gmbh": true, "sa": true, "ag": true, "nv": true, "bv": true, "sarl": true,
	"spa": true, "holdings": true, "holding": true,
}

var lowSignalWords = map[string]bool{
	"the": true, "of": true, "and": true, "for": true, "to": true, "in": true,
	"on": true, "at": true, "by": true, "from": true, "with": true, "de": true,
	"la": true, "le": true, "el": true, "da": true, "do": true, "di": true,
	"du": true, "del": true, "des": true, "van": true, "von": true, "y": true,
	"a": true, "an": true,
}

// NormalizeName exposes normalizeName for callers outside the package that
// need the same canonical form, e.g. company CSV import dedup against
// company_name_normalized.
func NormalizeName(raw string) string {
	return normalizeName(raw)
}

// normalizeName applies the deterministic company-name normalization from
// §4.E: lowercase, NFKD with combining marks stripped, "&" -> " and ",
// apostrophes stripped, non-alphanumerics to space, whitespace collapsed,
// corporate suffixes and low-signal stopword tokens dropped.
func normalizeName(raw string) string {
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "") // right single quote

	decomposed := norm.NFKD.String(s)
	var stripped strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) { // combining mark
			continue
		}
		stripped.WriteRune(r)
	}
	s = stripped.String()

	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}

	tokens := strings.Fields(sb.String())
	var kept []string
	for _, tok := range tokens {
		if corporateSuffixes[tok] || lowSignalWords[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// tokenSet returns the unique token set of a normalized string.
func tokenSet(normalized string) map[string]bool {
	tokens := strings.Fields(normalized)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
