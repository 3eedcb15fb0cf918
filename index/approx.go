package index

import (
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// locationDistance is how many characters past the start of a field it takes
// for a perfect match to accumulate a full score of 1.
const locationDistance = 100.0

// substringScore scores the best approximate occurrence of pattern anywhere in
// text, in [0,1] with 0 a perfect match at position 0.
//
// The score is errors/len(pattern) + start/locationDistance, where errors is the
// edit distance of the best-aligned substring (Sellers' algorithm). column is
// scratch space of at least len(pattern)+1 ints.
func substringScore(pattern, text []rune, column []int) float64 {
	m := len(pattern)
	if m == 0 {
		return 0
	}
	if len(text) == 0 {
		return 1
	}

	// column[i] is the edit distance between pattern[:i] and the best suffix of
	// text ending at the current position.
	col := column[:m+1]
	for i := range col {
		col[i] = i
	}

	best := 1.0
	pm := float64(m)
	for j := 1; j <= len(text); j++ {
		diag := col[0] // substrings may start anywhere: row 0 stays 0
		tc := text[j-1]
		for i := 1; i <= m; i++ {
			cost := 1
			if pattern[i-1] == tc {
				cost = 0
			}
			above := col[i]
			v := diag + cost
			if above+1 < v {
				v = above + 1
			}
			if col[i-1]+1 < v {
				v = col[i-1] + 1
			}
			col[i] = v
			diag = above
		}

		start := j - m
		if start < 0 {
			start = 0
		}
		score := float64(col[m])/pm + float64(start)/locationDistance
		if score < best {
			best = score
			if best == 0 {
				break
			}
		}
	}
	if best > 1 {
		best = 1
	}
	return best
}

// parcelIDScore scores a query against a parcel identifier. Identifiers are
// typed left to right, so the query is compared with the identifier prefix of
// the same length before falling back to a substring match.
func parcelIDScore(query string, queryRunes, id []rune, column []int) float64 {
	best := substringScore(queryRunes, id, column)
	if n := len(queryRunes); len(id) >= n && best > 0 {
		d := fuzzy.LevenshteinDistance(query, string(id[:n]))
		if prefix := float64(d) / float64(n); prefix < best {
			best = prefix
		}
	}
	if best > 1 {
		best = 1
	}
	return best
}
