// Package normalize turns raw Overpass elements into canonical Office
// records per §4.D: required fields, sanitization, low-confidence marking,
// and dedupe by (normalized name, rounded coordinates).
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pinggolf/cancercenter-offices/internal/geo"
	"github.com/pinggolf/cancercenter-offices/internal/overpass"
)

// Office is a canonical office record produced from one (or several
// deduplicated) raw Overpass elements.
type Office struct {
	OSMType           string
	OSMID             int64
	Name              string
	Brand             string
	Operator          string
	Website           string
	Wikidata          string // raw tag value
	WikidataEntityID  string // normalized Q-id, "" if absent
	Lat               float64
	Lon               float64
	LowConfidence     bool
	Tags              map[string]string
}

// TagsJSON marshals Tags for storage, returning nil if there are none.
func (o Office) TagsJSON() []byte {
	if len(o.Tags) == 0 {
		return nil
	}
	b, err := json.Marshal(o.Tags)
	if err != nil {
		return nil
	}
	return b
}

// evidenceScore ranks how well-tagged an office is, used to break dedupe
// ties per §4.D: website:4 + wikidata:3 + brand:2 + operator:1.
func evidenceScore(o Office) int {
	score := 0
	if o.Website != "" {
		score += 4
	}
	if o.WikidataEntityID != "" {
		score += 3
	}
	if o.Brand != "" {
		score += 2
	}
	if o.Operator != "" {
		score += 1
	}
	return score
}

// FromElements normalizes and dedupes a batch of raw Overpass elements into
// canonical Office records.
func FromElements(elements []overpass.Element) []Office {
	byKey := make(map[string]Office)
	var order []string

	for _, el := range elements {
		office, ok := fromElement(el)
		if !ok {
			continue
		}

		key := dedupeKey(office)
		existing, seen := byKey[key]
		if !seen || evidenceScore(office) > evidenceScore(existing) {
			if !seen {
				order = append(order, key)
			}
			byKey[key] = office
		}
	}

	offices := make([]Office, 0, len(order))
	for _, key := range order {
		offices = append(offices, byKey[key])
	}
	return offices
}

func fromElement(el overpass.Element) (Office, bool) {
	switch el.Type {
	case "node", "way", "relation":
	default:
		return Office{}, false
	}

	lat, lon, ok := elementCoord(el)
	if !ok {
		return Office{}, false
	}

	name, ok := geo.SanitizeText(el.Tags["name"], 250)
	if !ok {
		return Office{}, false
	}

	brand, _ := geo.SanitizeText(el.Tags["brand"], 250)
	operator, _ := geo.SanitizeText(el.Tags["operator"], 250)
	website, _ := geo.SanitizeText(el.Tags["website"], 500)

	rawWikidata := el.Tags["wikidata"]
	entityID, _ := geo.NormalizeWikidataID(rawWikidata)

	office := Office{
		OSMType:          el.Type,
		OSMID:            el.ID,
		Name:             name,
		Brand:            brand,
		Operator:         operator,
		Website:          website,
		Wikidata:         rawWikidata,
		WikidataEntityID: entityID,
		Lat:              lat,
		Lon:              lon,
		Tags:             el.Tags,
	}
	office.LowConfidence = website == "" && entityID == "" && brand == "" && operator == ""

	return office, true
}

func elementCoord(el overpass.Element) (lat, lon float64, ok bool) {
	if el.Lat != 0 || el.Lon != 0 {
		return el.Lat, el.Lon, true
	}
	if el.Center != nil {
		return el.Center.Lat, el.Center.Lon, true
	}
	return 0, 0, false
}

func dedupeKey(o Office) string {
	name := geo.CollapseWhitespace(o.Name)
	lat := geo.RoundCoord(o.Lat)
	lon := geo.RoundCoord(o.Lon)
	return fmt.Sprintf("%s|%.6f|%.6f", name, lat, lon)
}

// SortByDistance sorts offices by Haversine distance to (lat, lon), ascending.
func SortByDistance(offices []Office, lat, lon float64) {
	sort.SliceStable(offices, func(i, j int) bool {
		di := geo.HaversineMeters(lat, lon, offices[i].Lat, offices[i].Lon)
		dj := geo.HaversineMeters(lat, lon, offices[j].Lat, offices[j].Lon)
		return di < dj
	})
}
