package categorizer

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// keywordHit is one keyword-tier match with its tie-break position.
type keywordHit struct {
	ruleIndex    int
	keywordIndex int
	category     string
}

// keywordEngine scans a description against every rule keyword in one pass
// using an Aho-Corasick automaton. Rule tables are small, but statements can
// carry thousands of lines, so the single-pass scan matters.
type keywordEngine struct {
	matcher *ahocorasick.Matcher
	// hits is indexed by automaton pattern id.
	hits []keywordHit
}

// newKeywordEngine builds the automaton over the normalized keywords of the
// ordered rule list.
func newKeywordEngine(rules []Rule) *keywordEngine {
	var patterns []string
	var hits []keywordHit

	for ri, rule := range rules {
		for ki, keyword := range rule.Keywords {
			normalized := normalizeText(keyword)
			if normalized == "" {
				continue
			}
			patterns = append(patterns, normalized)
			hits = append(hits, keywordHit{
				ruleIndex:    ri,
				keywordIndex: ki,
				category:     rule.Category,
			})
		}
	}

	if len(patterns) == 0 {
		return &keywordEngine{}
	}
	return &keywordEngine{
		matcher: ahocorasick.NewStringMatcher(patterns),
		hits:    hits,
	}
}

// Match returns the winning category for a normalized description. When
// keywords from several rules hit, the earliest-declared rule wins, then the
// earliest keyword within it, so the outcome is independent of match order.
func (e *keywordEngine) Match(normalized string) (string, bool) {
	if e.matcher == nil || normalized == "" {
		return "", false
	}

	matched := e.matcher.Match([]byte(normalized))
	if len(matched) == 0 {
		return "", false
	}

	best := e.hits[matched[0]]
	for _, id := range matched[1:] {
		hit := e.hits[id]
		if hit.ruleIndex < best.ruleIndex ||
			(hit.ruleIndex == best.ruleIndex && hit.keywordIndex < best.keywordIndex) {
			best = hit
		}
	}
	return best.category, true
}

// normalizeText uppercases and strips punctuation so "UPI-Swiggy order"
// and "UPI SWIGGY ORDER" compare equal.
func normalizeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
