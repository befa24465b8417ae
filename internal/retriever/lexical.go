package retriever

import (
	"sort"
	"strings"
	"unicode"
)

// Lexical scoring tiers. An exact phrase occurrence outranks having every
// term, which outranks partial term overlap and substring matches.
const (
	phraseScore    = 1.0
	allTermsScore  = 0.7
	partialCeiling = 0.5
)

// lexicalScore rates how well text matches the query, in [0, 1].
func lexicalScore(query, text string) float64 {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	textLower := strings.ToLower(text)
	if queryLower == "" {
		return 0
	}

	if strings.Contains(textLower, queryLower) {
		return phraseScore
	}

	terms := tokenize(queryLower)
	if len(terms) == 0 {
		return 0
	}

	words := wordSet(textLower)
	var hits float64
	for _, term := range terms {
		switch {
		case words[term]:
			hits += 1.0
		case strings.Contains(textLower, term):
			// Substring-only match, e.g. "auth" inside "authorize".
			hits += 0.5
		}
	}

	coverage := hits / float64(len(terms))
	if coverage == 1.0 && len(terms) > 1 {
		return allTermsScore
	}
	return partialCeiling * coverage
}

// scoredChunk pairs a chunk id with its lexical score.
type scoredChunk struct {
	id    string
	score float64
}

// topLexical scores every candidate text and returns the best k non-zero
// scorers, descending.
func topLexical(query string, texts map[string]string, k int) []scoredChunk {
	scored := make([]scoredChunk, 0, len(texts))
	for id, text := range texts {
		if s := lexicalScore(query, text); s > 0 {
			scored = append(scored, scoredChunk{id: id, score: s})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].id < scored[j].id
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// tokenize splits a query into lowercase terms, dropping single-rune noise.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}

// wordSet builds the set of distinct words in text.
func wordSet(s string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	return words
}
