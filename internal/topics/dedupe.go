package topics

import (
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// selectTerms walks ranked terms in order and keeps up to n of them. With
// dedupe on, a candidate is skipped when it contains or is contained in a
// kept term, or stems to the same root as one.
func selectTerms(ranked []Term, n int, dedupe bool) []Term {
	out := make([]Term, 0, min(n, len(ranked)))
	stems := make(map[string]struct{}, n)

	for _, cand := range ranked {
		if len(out) == n {
			break
		}
		if !dedupe {
			out = append(out, cand)
			continue
		}

		stem := porterstemmer.StemString(cand.Term)
		if _, dup := stems[stem]; dup {
			continue
		}
		if overlaps(cand.Term, out) {
			continue
		}
		stems[stem] = struct{}{}
		out = append(out, cand)
	}
	return out
}

func overlaps(term string, kept []Term) bool {
	for _, k := range kept {
		if strings.Contains(k.Term, term) || strings.Contains(term, k.Term) {
			return true
		}
	}
	return false
}
