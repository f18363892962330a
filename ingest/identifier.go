package ingest

import "strings"

// csvSuffix is stripped from upload names. The match is case-sensitive:
// "march.CSV" keeps its suffix.
const csvSuffix = ".csv"

// FileIdentifier derives the ingestion identifier from an upload's file name.
func FileIdentifier(filename string) string {
	return strings.TrimSuffix(filename, csvSuffix)
}

// IsDuplicateIdentifier reports whether candidate collides with an identifier
// that was already accepted. Two identifiers collide when either one contains
// the other, ignoring case: after "march" is accepted, "March_v2" and "mar"
// are both rejected.
func IsDuplicateIdentifier(candidate, existing string) bool {
	c := strings.ToLower(candidate)
	e := strings.ToLower(existing)
	return strings.Contains(e, c) || strings.Contains(c, e)
}

// FindDuplicate returns the first accepted identifier that collides with
// candidate.
func FindDuplicate(candidate string, accepted []string) (string, bool) {
	for _, existing := range accepted {
		if IsDuplicateIdentifier(candidate, existing) {
			return existing, true
		}
	}
	return "", false
}
