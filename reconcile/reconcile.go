// Package reconcile intersects extracted screener symbols with the
// reference instrument list.
package reconcile

// Match returns the entries of extracted that also occur in reference, in
// the order of extracted. Matching is exact and case-sensitive. Duplicates
// in extracted are kept; the result is never nil.
func Match(extracted, reference []string) []string {
	set := make(map[string]struct{}, len(reference))
	for _, sym := range reference {
		set[sym] = struct{}{}
	}

	matched := make([]string, 0, min(len(extracted), len(set)))
	for _, sym := range extracted {
		if _, ok := set[sym]; ok {
			matched = append(matched, sym)
		}
	}
	return matched
}
