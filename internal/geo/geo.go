// Package geo provides the small set of geometric and text helpers shared
// by the normalizer, matcher, and persistence layers.
package geo

import (
	"math"
	"regexp"
	"strings"
)

// earthRadiusMeters is the mean radius used for haversine distance.
const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two WGS-84
// points in meters.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

var wikidataIDPattern = regexp.MustCompile(`(?i)\bQ[1-9]\d*\b`)

// NormalizeWikidataID extracts and uppercases the first Q-id found in raw,
// or returns "", false if none is present.
func NormalizeWikidataID(raw string) (string, bool) {
	match := wikidataIDPattern.FindString(raw)
	if match == "" {
		return "", false
	}
	return strings.ToUpper(match), true
}

// SanitizeText trims raw, truncates it to maxLen runes, and returns "", false
// if the result is empty.
func SanitizeText(raw string, maxLen int) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	runes := []rune(trimmed)
	if len(runes) > maxLen {
		trimmed = string(runes[:maxLen])
	}
	return trimmed, true
}

// CollapseWhitespace lowercases s and collapses runs of whitespace to a
// single space, trimming the ends. Used for office dedupe keys.
func CollapseWhitespace(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}

// RoundCoord rounds a coordinate to 6 decimal places (~0.11m precision),
// used as part of the office dedupe key.
func RoundCoord(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// FiniteInRange reports whether v is a finite number within [min, max].
func FiniteInRange(v, min, max float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= min && v <= max
}
