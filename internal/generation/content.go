package generation

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Thresholds holds the minimum word count per operation.
type Thresholds struct {
	Summary    int
	Flashcards int
}

func (t Thresholds) For(op Operation) int {
	if op == OpFlashcards {
		return t.Flashcards
	}
	return t.Summary
}

// Tags that separate words when markup is removed.
var breakingTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Footer: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// PlainText strips markup from rich-text note content. Entities are decoded,
// script and style bodies dropped, and block boundaries become spaces.
func PlainText(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return content
	}

	z := html.NewTokenizer(strings.NewReader(content))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				skip++
			}
			if breakingTags[a] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
			if breakingTags[a] {
				b.WriteByte(' ')
			}
		}
	}
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ValidateContent checks the plain-text projection of content against the
// operation's threshold. It has no side effects.
func ValidateContent(op Operation, content string, t Thresholds) error {
	plain := strings.TrimSpace(PlainText(content))
	if plain == "" {
		return &Error{Kind: KindInvalidArgument, Message: "Must send notes"}
	}

	minWords := t.For(op)
	if CountWords(plain) < minWords {
		return &Error{
			Kind:     KindInvalidArgument,
			Message:  fmt.Sprintf("Notes must be %d+ words long", minWords),
			MinWords: minWords,
		}
	}
	return nil
}
