package generation

import "fmt"

// Prompt is the instruction pair sent to the provider.
type Prompt struct {
	System string
	User   string
}

const summarySystemPrompt = `You are an AI-powered study assistant that summarizes student notes for quick review. Your summaries must:
- Focus only on key concepts or essential facts.
- Be significantly shorter than the original notes, no more than 30-50% of the original length.
- Never include full sentences from the notes unless they are extremely important.
- Avoid filler, repetition, or unnecessary phrasing.

If the original notes are short, your summary must be even shorter.
Never let the summary be close in length to or longer than the original notes.`

const summaryUserPrompt = `Summarize the following notes into a concise, structured paragraph for study review. The summary must be no more than 30-50%% of the length of the original notes and only include the most important points.

Notes:
%s`

const flashcardsSystemPrompt = `You are an AI that generates study flashcards from class notes.

Only respond with a JSON array of flashcard objects in this exact format:
[
  {
    "question": "A clear, concise question.",
    "answer": "An accurate, well-structured answer."
  }
]

Guidelines:
- Only use information found in the notes.
- If a term is mentioned without definition, infer its meaning from context.
- Do NOT use outside knowledge.
- Do NOT include any commentary, explanation, or markdown. Only return a raw JSON array.
- Do NOT repeat flashcards.
- Each flashcard must test a distinct concept.
- Questions should be short and specific.
- Answers should be concise and factual.`

const flashcardsUserPrompt = `Generate 5 to 10 high-quality flashcards from the following class notes.

Respond with a JSON array only, in this format:
[
  { "question": "What is ...?", "answer": "..." }
]

If there is not enough information for 5, generate as many as possible (minimum 1).

Class Notes:
%s`

// BuildPrompt renders the prompt for op around the note text. The output
// depends only on its arguments.
func BuildPrompt(op Operation, content string) (Prompt, error) {
	switch op {
	case OpSummary:
		return Prompt{System: summarySystemPrompt, User: fmt.Sprintf(summaryUserPrompt, content)}, nil
	case OpFlashcards:
		return Prompt{System: flashcardsSystemPrompt, User: fmt.Sprintf(flashcardsUserPrompt, content)}, nil
	default:
		return Prompt{}, fmt.Errorf("building prompt: unknown operation %q", op)
	}
}
