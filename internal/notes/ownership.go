package notes

import "context"

type contextKey string

const noteCtxKey contextKey = "note"

func SetNoteInContext(ctx context.Context, note *Note) context.Context {
	return context.WithValue(ctx, noteCtxKey, note)
}

func GetNoteFromContext(ctx context.Context) *Note {
	note, _ := ctx.Value(noteCtxKey).(*Note)
	return note
}
