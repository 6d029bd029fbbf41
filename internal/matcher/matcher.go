// Package matcher implements the company-name matching engine from §4.E:
// normalization, alias expansion, and phrase/containment/Jaccard/edit
// similarity scoring with a hard acceptance threshold.
package matcher

import (
	"github.com/agnivade/levenshtein"
)

// MinAccept is the hard floor below which a match is rejected.
const MinAccept = 0.86

// Company is the minimal shape the index needs from a persisted company row.
type Company struct {
	ID           int64
	Name         string
	KnownAliases []string // already split on '|'
}

type variant struct {
	companyID   int64
	companyName string
	text        string // raw variant text (name or alias)
	normalized  string
	tokens      map[string]bool
	source      string // "company_name" | "alias"
}

// Index is an in-memory, immutable snapshot of the company catalog used to
// score offices against known companies. Build it once per refresh batch.
type Index struct {
	variants   []variant
	exactIndex map[string][]int
	tokenIndex map[string][]int
}

// BuildIndex constructs the matcher index from the company catalog.
func BuildIndex(companies []Company) *Index {
	idx := &Index{
		exactIndex: make(map[string][]int),
		tokenIndex: make(map[string][]int),
	}

	for _, c := range companies {
		seenNorm := make(map[string]bool)

		addVariant := func(text, source string) {
			normalized := normalizeName(text)
			if normalized == "" || seenNorm[normalized] {
				return
			}
			seenNorm[normalized] = true

			v := variant{
				companyID:   c.ID,
				companyName: c.Name,
				text:        text,
				normalized:  normalized,
				tokens:      tokenSet(normalized),
				source:      source,
			}
			vIdx := len(idx.variants)
			idx.variants = append(idx.variants, v)
			idx.exactIndex[normalized] = append(idx.exactIndex[normalized], vIdx)
			for tok := range v.tokens {
				idx.tokenIndex[tok] = append(idx.tokenIndex[tok], vIdx)
			}
		}

		addVariant(c.Name, "company_name")
		for _, alias := range c.KnownAliases {
			addVariant(alias, "alias")
		}
	}

	return idx
}

// Result carries the outcome of a successful match.
type Result struct {
	CompanyID      int64
	CompanyName    string
	MatchedField   string // "name" | "brand" | "operator"
	MatchedVariant string // raw variant text
	Source         string // "company_name" | "alias"
	Score          float64
}

// Match tries to match an office's name/brand/operator fields against the
// index, in that priority order, per §4.E. It returns the best surviving
// candidate, or ok=false if nothing clears MinAccept.
func (idx *Index) Match(name, brand, operator string) (Result, bool) {
	candidates := []struct {
		field string
		text  string
	}{
		{"name", name},
		{"brand", brand},
		{"operator", operator},
	}

	var best Result
	found := false
	seenNorm := make(map[string]bool)

	for _, cand := range candidates {
		normalized := normalizeName(cand.text)
		if normalized == "" || seenNorm[normalized] {
			continue
		}
		seenNorm[normalized] = true

		result, ok := idx.matchOne(cand.field, normalized)
		if !ok {
			continue
		}
		if !found || result.Score > best.Score ||
			(result.Score == best.Score && result.Source == "company_name" && best.Source != "company_name") {
			best = result
			found = true
		}
	}

	return best, found
}

func (idx *Index) matchOne(field, normalized string) (Result, bool) {
	candTokens := tokenSet(normalized)

	// 1. Exact lookup.
	if vIdxs, ok := idx.exactIndex[normalized]; ok {
		vIdx := pickBestSource(idx, vIdxs)
		v := idx.variants[vIdx]
		return Result{
			CompanyID: v.companyID, CompanyName: v.companyName,
			MatchedField: field, MatchedVariant: v.text, Source: v.source,
			Score: 1.0,
		}, true
	}

	// 2. Token shortlist.
	shortlist := make(map[int]bool)
	for tok := range candTokens {
		for _, vIdx := range idx.tokenIndex[tok] {
			shortlist[vIdx] = true
		}
	}

	var bestResult Result
	bestScore := -1.0
	haveBest := false

	for vIdx := range shortlist {
		v := idx.variants[vIdx]
		score := scoreVariant(normalized, candTokens, v.normalized, v.tokens)
		if score > bestScore || (score == bestScore && haveBest && v.source == "company_name" && bestResult.Source != "company_name") {
			bestScore = score
			bestResult = Result{
				CompanyID: v.companyID, CompanyName: v.companyName,
				MatchedField: field, MatchedVariant: v.text, Source: v.source,
				Score: score,
			}
			haveBest = true
		}
	}

	if !haveBest || bestScore < MinAccept {
		return Result{}, false
	}
	return bestResult, true
}

// scoreVariant implements steps 2-5 of §4.E's scoring algorithm for one
// candidate/variant pair.
func scoreVariant(normA string, tokensA map[string]bool, normB string, tokensB map[string]bool) float64 {
	// Single-token trap (step 5): equal single tokens match perfectly;
	// otherwise single-token pairs are scored normally (no special boost).
	if len(tokensA) == 1 && len(tokensB) == 1 {
		for t := range tokensA {
			if tokensB[t] {
				return 1.0
			}
		}
	}

	shared := 0
	for t := range tokensA {
		if tokensB[t] {
			shared++
		}
	}
	minLen := len(tokensA)
	if len(tokensB) < minLen {
		minLen = len(tokensB)
	}
	unionLen := len(tokensA) + len(tokensB) - shared

	containment := 0.0
	if minLen > 0 {
		containment = float64(shared) / float64(minLen)
	}
	jaccard := 0.0
	if unionLen > 0 {
		jaccard = float64(shared) / float64(unionLen)
	}

	editSim := editSimilarity(normA, normB)

	score := 0.5*containment + 0.2*jaccard + 0.3*editSim

	// Step 3: phrase containment boost.
	shorter, longer := normA, normB
	if len(longer) < len(shorter) {
		shorter, longer = longer, shorter
	}
	if len(shorter) >= 4 && containsWholeTokenPhrase(longer, shorter) {
		if score < 0.91 {
			score = 0.91
		}
	}

	// Step 4: strong containment boost (denominator is min(|A|,|B|) >= 2).
	if containment == 1 && minLen >= 2 && editSim >= 0.8 {
		if score < 0.90 {
			score = 0.90
		}
	}

	return score
}

// containsWholeTokenPhrase reports whether phrase appears in s as a run of
// whole tokens (not a mid-token substring match).
func containsWholeTokenPhrase(s, phrase string) bool {
	sTokens := splitFields(s)
	pTokens := splitFields(phrase)
	if len(pTokens) == 0 || len(pTokens) > len(sTokens) {
		return false
	}
	for start := 0; start+len(pTokens) <= len(sTokens); start++ {
		match := true
		for i, pt := range pTokens {
			if sTokens[start+i] != pt {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func splitFields(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func editSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// pickBestSource prefers a "company_name"-sourced variant over "alias" among
// exact-match ties.
func pickBestSource(idx *Index, vIdxs []int) int {
	best := vIdxs[0]
	for _, vIdx := range vIdxs[1:] {
		if idx.variants[vIdx].source == "company_name" && idx.variants[best].source != "company_name" {
			best = vIdx
		}
	}
	return best
}
