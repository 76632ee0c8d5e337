package translator

import (
	"context"

	"golang.org/x/text/language"
)

// Kind is the response variant of a backend. It decides how a batch is
// encoded into a request and how the reply is mapped back to blocks.
type Kind string

const (
	// KindChat is a chat-completions model answering in the tagged form.
	KindChat Kind = "chat"
	// KindGenerative is a generateContent model answering in the tagged form.
	KindGenerative Kind = "generative"
	// KindParamTranslate is a parameter-based translation API that keeps no
	// block boundaries; blocks are joined and split on blank lines.
	KindParamTranslate Kind = "paramTranslate"
)

// Tagged reports whether the variant exchanges blocks in the [#n] form.
func (k Kind) Tagged() bool {
	return k == KindChat || k == KindGenerative
}

// Request is one backend call.
type Request struct {
	System string
	Text   string
	Target language.Tag
	// Source is language.Und when unknown.
	Source language.Tag
}

// Engine is a translation backend. Call returns the reply text extracted from
// the backend specific response body.
type Engine interface {
	Name() string
	Kind() Kind
	DefaultBatchSize() int
	Call(ctx context.Context, req Request) (string, error)
}
