package scout

import "strings"

// stopwords are filler terms that carry no signal in a targeted
// verification query.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "companies": {}, "company": {}, "find": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"offering": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"their": {}, "to": {}, "which": {}, "with": {},
}

// topKeywords returns up to n distinctive terms from the criteria, in
// order of first appearance, lower-cased and stripped of punctuation.
func topKeywords(criteria string, n int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, field := range strings.Fields(strings.ToLower(criteria)) {
		word := strings.Trim(field, ".,;:!?\"'()[]")
		if len(word) <= 2 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
		if len(out) == n {
			break
		}
	}
	return out
}
