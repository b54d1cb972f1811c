package wiki

import (
	"strings"
	"unicode"
)

// Slug rules the candidate generator applies. Fandom subdomains are usually
// concatenated ("devilmaycry.fandom.com"), wiki.gg sometimes hyphenates, so
// both variants are tried, concatenated first.
const (
	RuleConcat = "concat"
	RuleHyphen = "hyphen"
)

// slugVariants derives the ordered slug forms for a topic: lowercase, with
// runs of non-alphanumeric characters removed (concat) or collapsed to a
// single hyphen. Pure function; returns nil when nothing usable remains.
func slugVariants(topic string) []string {
	words := splitWords(topic)
	if len(words) == 0 {
		return nil
	}

	concat := strings.Join(words, "")
	hyphen := strings.Join(words, "-")

	variants := []string{concat}
	if hyphen != concat {
		variants = append(variants, hyphen)
	}
	return variants
}

// splitWords lowercases the topic and splits it on any run of
// non-alphanumeric characters
func splitWords(topic string) []string {
	return strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// generateCandidates produces the ordered base-URL hypotheses for a topic:
// each slug variant crossed with each allowed suffix, suffixes in configured
// order. The order is deterministic so resolution is reproducible.
func generateCandidates(topic string, suffixes []string) []Candidate {
	variants := slugVariants(topic)
	if len(variants) == 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(variants)*len(suffixes))
	for i, slug := range variants {
		rule := RuleConcat
		if i > 0 {
			rule = RuleHyphen
		}
		for _, suffix := range suffixes {
			host := slug + "." + suffix
			candidates = append(candidates, Candidate{
				BaseURL: "https://" + host,
				Host:    host,
				Rule:    rule,
			})
		}
	}
	return candidates
}
