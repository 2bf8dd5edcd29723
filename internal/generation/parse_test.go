package generation

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummary(t *testing.T) {
	s, err := ParseSummary("  ATP is made in mitochondria.\n")
	require.NoError(t, err)
	assert.Equal(t, "ATP is made in mitochondria.", s)

	_, err = ParseSummary(" \n\t")
	assert.Error(t, err)
}

func TestParseFlashcards_Valid(t *testing.T) {
	raw := `[
		{"question": " What makes ATP? ", "answer": "Mitochondria"},
		{"question": "What is osmosis?", "answer": "Diffusion of water", "difficulty": "easy"}
	]`

	cards, err := ParseFlashcards(raw)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, Flashcard{Question: "What makes ATP?", Answer: "Mitochondria"}, cards[0])
	assert.Equal(t, "Diffusion of water", cards[1].Answer)
}

func TestParseFlashcards_SurroundingWhitespace(t *testing.T) {
	cards, err := ParseFlashcards("\n  [{\"question\":\"Q\",\"answer\":\"A\"}]  \n")
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestParseFlashcards_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "Here are your flashcards!"},
		{"markdown fence", "```json\n[{\"question\":\"Q\",\"answer\":\"A\"}]\n```"},
		{"leading prose", "Sure: [{\"question\":\"Q\",\"answer\":\"A\"}]"},
		{"trailing data", "[{\"question\":\"Q\",\"answer\":\"A\"}] thanks"},
		{"object", `{"question":"Q","answer":"A"}`},
		{"wrapped object", `{"flashcards":[{"question":"Q","answer":"A"}]}`},
		{"null", "null"},
		{"empty array", "[]"},
		{"missing answer", `[{"question":"Q"}]`},
		{"blank question", `[{"question":"   ","answer":"A"}]`},
		{"non-string answer", `[{"question":"Q","answer":42}]`},
		{"array of strings", `["Q","A"]`},
		{"duplicate questions", `[{"question":"Q","answer":"A"},{"question":" Q ","answer":"B"}]`},
		{"truncated", `[{"question":"Q","answer":"A"},{"question":"R"`},
		{"uppercase keys", `[{"QUESTION":"Q","ANSWER":"A"}]`},
		{"capitalized answer key", `[{"question":"Q","Answer":"A"}]`},
		{"null element", `[null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := ParseFlashcards(tt.raw)
			assert.Error(t, err)
			assert.Nil(t, cards)
		})
	}
}

func TestParseFlashcards_Limit(t *testing.T) {
	build := func(n int) string {
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf(`{"question":"Q%d","answer":"A%d"}`, i, i)
		}
		return "[" + strings.Join(items, ",") + "]"
	}

	cards, err := ParseFlashcards(build(MaxFlashcards))
	require.NoError(t, err)
	assert.Len(t, cards, MaxFlashcards)

	_, err = ParseFlashcards(build(MaxFlashcards + 1))
	assert.Error(t, err)
}

func TestParseFlashcards_RoundTrip(t *testing.T) {
	raw := `[
		{"question": "What makes ATP?", "answer": "Mitochondria"},
		{"question": "What is osmosis?", "answer": "Diffusion of water across a membrane"},
		{"question": "Where is DNA stored?", "answer": "In the nucleus"}
	]`

	cards, err := ParseFlashcards(raw)
	require.NoError(t, err)

	encoded, err := json.Marshal(cards)
	require.NoError(t, err)

	again, err := ParseFlashcards(string(encoded))
	require.NoError(t, err)
	assert.Equal(t, cards, again)
}
