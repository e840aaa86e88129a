package pairing

import "strings"

// TermSet is a case-insensitive substring matcher over report and DICOM
// text fields.
type TermSet []string

// NewTermSet upper-cases and trims terms, dropping empties.
func NewTermSet(terms []string) TermSet {
	ts := make(TermSet, 0, len(terms))
	for _, t := range terms {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			ts = append(ts, t)
		}
	}
	return ts
}

// Match reports whether any term occurs in s. An empty set never matches;
// callers decide whether an empty set disables the predicate.
func (ts TermSet) Match(s string) bool {
	if len(ts) == 0 {
		return false
	}
	u := strings.ToUpper(s)
	for _, t := range ts {
		if strings.Contains(u, t) {
			return true
		}
	}
	return false
}

// Empty reports whether the set holds no terms.
func (ts TermSet) Empty() bool { return len(ts) == 0 }
