package textutil

// Similarity floors on the 0-100 Score scale.
const (
	// CatalogMinScore is the lowest score accepted when fuzzy-matching the
	// canonical catalog.
	CatalogMinScore = 55.0
	// ExternalMinScore is the default lowest score accepted for a bibliographic
	// provider result.
	ExternalMinScore = 62.0
)

// Score weighs title similarity at 60% and author similarity at 40%. Inputs are
// expected to be normalized already.
func Score(candidateTitle, candidateAuthor, targetTitle, targetAuthor string) float64 {
	return 0.6*Similarity(candidateTitle, targetTitle) + 0.4*Similarity(candidateAuthor, targetAuthor)
}

// Similarity returns the percentage of bytes shared by a and b, computed the
// way PHP's similar_text does: take the first longest common substring, then
// recurse on the unmatched text to its left and right. The arguments are put
// in a fixed order first so Similarity(a, b) == Similarity(b, a).
func Similarity(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	if b < a {
		a, b = b, a
	}
	common := similarChars(a, b)
	return float64(common*2) * 100 / float64(len(a)+len(b))
}

func similarChars(a, b string) int {
	pos1, pos2, max, count := longestCommon(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	if pos1 > 0 && pos2 > 0 && count > 1 {
		sum += similarChars(a[:pos1], b[:pos2])
	}
	if pos1+max < len(a) && pos2+max < len(b) {
		sum += similarChars(a[pos1+max:], b[pos2+max:])
	}
	return sum
}

// longestCommon finds the first longest common substring of a and b. count is
// the number of times the running maximum improved during the scan; the left
// recursion in similarChars depends on it.
func longestCommon(a, b string) (pos1, pos2, max, count int) {
	for p := 0; p < len(a); p++ {
		for q := 0; q < len(b); q++ {
			l := 0
			for p+l < len(a) && q+l < len(b) && a[p+l] == b[q+l] {
				l++
			}
			if l > max {
				max = l
				count++
				pos1 = p
				pos2 = q
			}
		}
	}
	return pos1, pos2, max, count
}
