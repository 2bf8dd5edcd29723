package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxFlashcards is the largest set accepted from the provider. ParseFlashcards
// enforces it before validation.
const MaxFlashcards = 10

type Flashcard struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

type flashcardSet struct {
	Cards []Flashcard `validate:"min=1,unique=Question,dive"`
}

var (
	errEmptySummary     = errors.New("provider returned an empty summary")
	flashcardsValidator = validator.New()
)

// ParseSummary accepts any non-blank text.
func ParseSummary(raw string) (string, error) {
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", errEmptySummary
	}
	return summary, nil
}

// ParseFlashcards decodes provider output that must be exactly a JSON array
// of {question, answer} objects. Fences, prose or trailing data around the
// array are rejected, as are blank fields and repeated questions. Keys are
// matched case-sensitively.
func ParseFlashcards(raw string) ([]Flashcard, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &items); err != nil {
		return nil, fmt.Errorf("decoding flashcards: %w", err)
	}
	if len(items) > MaxFlashcards {
		return nil, fmt.Errorf("validating flashcards: got %d cards, at most %d allowed", len(items), MaxFlashcards)
	}

	cards := make([]Flashcard, 0, len(items))
	for i, item := range items {
		question, err := cardField(item, "question")
		if err != nil {
			return nil, fmt.Errorf("decoding flashcard %d: %w", i, err)
		}
		answer, err := cardField(item, "answer")
		if err != nil {
			return nil, fmt.Errorf("decoding flashcard %d: %w", i, err)
		}
		cards = append(cards, Flashcard{Question: question, Answer: answer})
	}

	if err := flashcardsValidator.Struct(flashcardSet{Cards: cards}); err != nil {
		return nil, fmt.Errorf("validating flashcards: %w", err)
	}
	return cards, nil
}

func cardField(item map[string]json.RawMessage, key string) (string, error) {
	raw, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing %q", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%q: %w", key, err)
	}
	return strings.TrimSpace(s), nil
}
