package matcher

import "github.com/pinggolf/cancercenter-offices/internal/normalize"

// FilterOfficesWithKnownCompanies keeps only offices whose name, brand, or
// operator matches a known company in idx per §4.E, attaching the winning
// match to each survivor's Tags under "_matched_company" for downstream use.
func FilterOfficesWithKnownCompanies(idx *Index, offices []normalize.Office) (matched []normalize.Office, matchedCount, filteredOutCount int) {
	for _, o := range offices {
		result, ok := idx.Match(o.Name, o.Brand, o.Operator)
		if !ok {
			filteredOutCount++
			continue
		}
		matchedCount++
		matched = append(matched, attachMatch(o, result))
	}
	return matched, matchedCount, filteredOutCount
}

func attachMatch(o normalize.Office, r Result) normalize.Office {
	if o.Tags == nil {
		o.Tags = make(map[string]string, 1)
	} else {
		tags := make(map[string]string, len(o.Tags)+1)
		for k, v := range o.Tags {
			tags[k] = v
		}
		o.Tags = tags
	}
	o.Tags["_matched_company"] = r.CompanyName
	return o
}
