package generation

import "fmt"

// Operation is the kind of study artifact to generate.
type Operation string

const (
	OpSummary    Operation = "summary"
	OpFlashcards Operation = "flashcards"
)

// ParseOperation maps a wire name to an Operation.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpSummary, OpFlashcards:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

func (op Operation) Valid() bool {
	return op == OpSummary || op == OpFlashcards
}

// Fixed provider parameters per operation.
func (op Operation) maxTokens() int {
	if op == OpFlashcards {
		return 500
	}
	return 300
}

func (op Operation) temperature() float32 {
	return 0.3
}
