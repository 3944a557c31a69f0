package utils

// SortPair orders two user ids so an unordered pair always maps to the same
// (user1, user2) tuple.
func SortPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PairKey returns the canonical map key for an unordered user pair.
func PairKey(a, b string) string {
	a, b = SortPair(a, b)
	return a + "|" + b
}
