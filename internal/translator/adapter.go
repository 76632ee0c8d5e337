package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
	"github.com/MimeLyc/structured-doc-translator/internal/batch"
	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/glossary"
	"github.com/MimeLyc/structured-doc-translator/pkg/log"
	"golang.org/x/text/language"
)

// Adapter sends batches to an engine and maps the replies back to block
// indices. It is safe for concurrent use.
type Adapter struct {
	engine      Engine
	pacer       *Pacer
	callTimeout time.Duration
	glossary    glossary.Glossary
}

type AdapterOption func(*Adapter)

// WithPacer makes every call wait on p first.
func WithPacer(p *Pacer) AdapterOption {
	return func(a *Adapter) {
		a.pacer = p
	}
}

// WithCallTimeout bounds a single backend call.
func WithCallTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		a.callTimeout = d
	}
}

func NewAdapter(engine Engine, opts ...AdapterOption) *Adapter {
	a := &Adapter{engine: engine}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Engine() Engine {
	return a.engine
}

// WithGlossary returns a copy of a that pins the terms of g in tagged
// prompts. The copy shares the engine and pacer of a.
func (a *Adapter) WithGlossary(g glossary.Glossary) *Adapter {
	cp := *a
	cp.glossary = g
	return &cp
}

// Translate sends one batch and returns the lines the backend produced per
// block index. Blocks the backend left out are absent from the result. An
// error means the whole batch failed.
func (a *Adapter) Translate(ctx context.Context, b batch.Batch, format document.Format, target, source language.Tag) (map[int][]string, error) {
	if len(b.Blocks) == 0 {
		return map[int][]string{}, nil
	}

	if err := a.pacer.Wait(ctx); err != nil {
		return nil, apperr.Wrap(err, apperr.KindBackend, "waiting for batch slot").
			WithContext("engine", a.engine.Name())
	}

	callCtx := ctx
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	var (
		ret map[int][]string
		err error
	)
	if a.engine.Kind().Tagged() {
		ret, err = a.translateTagged(callCtx, b, format, target, source)
	} else {
		ret, err = a.translateJoined(callCtx, b, target, source)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindBackend, "backend call failed").
			WithContext("engine", a.engine.Name()).
			WithContext("batch_start", b.Start).
			WithContext("target", target.String())
	}
	return ret, nil
}

func (a *Adapter) translateTagged(ctx context.Context, b batch.Batch, format document.Format, target, source language.Tag) (map[int][]string, error) {
	var terms []glossary.Entry
	if len(a.glossary) > 0 {
		texts := make([]string, len(b.Blocks))
		for i, block := range b.Blocks {
			texts[i] = block.Text()
		}
		terms = glossary.Match(a.glossary, texts)
	}

	reply, err := a.engine.Call(ctx, Request{
		System: buildSystemPrompt(format, source, target, terms),
		Text:   document.FormatTagged(b.Blocks),
		Target: target,
		Source: source,
	})
	if err != nil {
		return nil, err
	}

	parsed := document.ParseBackendResponse(reply)

	inBatch := make(map[int]bool, len(b.Blocks))
	for _, seq := range b.Seqs() {
		inBatch[seq] = true
	}

	ret := make(map[int][]string, len(b.Blocks))
	for index, lines := range parsed {
		if !inBatch[index] {
			log.Warn("Dropping block [#%d] returned outside batch starting at %d", index, b.Start)
			continue
		}
		ret[index] = lines
	}
	if missing := len(b.Blocks) - len(ret); missing > 0 {
		log.Debug("Backend %s left out %d of %d blocks in batch starting at %d", a.engine.Name(), missing, len(b.Blocks), b.Start)
	}
	return ret, nil
}

// translateJoined handles backends without block boundaries: blocks are
// separated by a blank line and the reply is split the same way.
func (a *Adapter) translateJoined(ctx context.Context, b batch.Batch, target, source language.Tag) (map[int][]string, error) {
	segments := make([]string, len(b.Blocks))
	for i, block := range b.Blocks {
		segments[i] = strings.Join(nonEmptyLines(block.Lines), "\n")
	}

	reply, err := a.engine.Call(ctx, Request{
		Text:   strings.Join(segments, "\n\n"),
		Target: target,
		Source: source,
	})
	if err != nil {
		return nil, err
	}

	parts := splitSegments(reply)
	if len(parts) != len(b.Blocks) {
		return nil, fmt.Errorf("segment count mismatch: sent %d blocks, got %d segments", len(b.Blocks), len(parts))
	}

	ret := make(map[int][]string, len(b.Blocks))
	for i, block := range b.Blocks {
		ret[block.Seq] = parts[i]
	}
	return ret, nil
}

// splitSegments splits text on blank lines into trimmed, non-empty line groups.
func splitSegments(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		ret     [][]string
		current []string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				ret = append(ret, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		ret = append(ret, current)
	}
	return ret
}

func nonEmptyLines(lines []string) []string {
	ret := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			ret = append(ret, l)
		}
	}
	return ret
}
