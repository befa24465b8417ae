package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexicalScorePhrase(t *testing.T) {
	text := "func HandleLogin validates the session token"

	assert.InDelta(t, 1.0, lexicalScore("session token", text), 1e-9)
	// Phrase matching is case-insensitive.
	assert.InDelta(t, 1.0, lexicalScore("handlelogin", text), 1e-9)
}

func TestLexicalScoreAllTerms(t *testing.T) {
	text := "the token is stored in the session map"

	// Both terms present as words, but not adjacent: all-terms tier.
	assert.InDelta(t, 0.7, lexicalScore("token session", text), 1e-9)
}

func TestLexicalScorePartial(t *testing.T) {
	text := "the token is refreshed hourly"

	// One of two terms matched as a word: 0.5 * (1/2).
	assert.InDelta(t, 0.25, lexicalScore("token session", text), 1e-9)
}

func TestLexicalScoreSubstring(t *testing.T) {
	text := "authorization middleware chain"

	// "auth" only appears inside a longer word, half credit per term:
	// 0.5 * (0.5/1).
	assert.InDelta(t, 0.25, lexicalScore("auth", text), 1e-9)
}

func TestLexicalScoreNoMatch(t *testing.T) {
	assert.Zero(t, lexicalScore("database migration", "frontend button styles"))
	assert.Zero(t, lexicalScore("", "anything"))
	assert.Zero(t, lexicalScore("   ", "anything"))
}

func TestTopLexical(t *testing.T) {
	texts := map[string]string{
		"c1": "session token refresh logic",
		"c2": "the token is stored in the session map",
		"c3": "unrelated rendering code",
		"c4": "token parsing helpers",
	}

	top := topLexical("session token", texts, 2)
	assert.Len(t, top, 2)
	assert.Equal(t, "c1", top[0].id) // phrase beats all-terms
	assert.Equal(t, "c2", top[1].id)

	// Zero scorers never appear, even with room.
	all := topLexical("session token", texts, 10)
	for _, sc := range all {
		assert.NotEqual(t, "c3", sc.id)
	}
}

func TestTopLexicalTiebreak(t *testing.T) {
	texts := map[string]string{
		"b": "token here",
		"a": "token there",
	}
	top := topLexical("token", texts, 2)
	assert.Equal(t, "a", top[0].id)
	assert.Equal(t, "b", top[1].id)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"handle", "login", "v2"}, tokenize("handle-login v2"))
	// Single-rune fragments are dropped.
	assert.Equal(t, []string{"go"}, tokenize("a go b"))
	assert.Empty(t, tokenize("! ? ."))
}
