package translator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
	"github.com/MimeLyc/structured-doc-translator/internal/batch"
	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/glossary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// fakeEngine replies with a canned response and records requests.
type fakeEngine struct {
	kind  Kind
	reply func(Request) (string, error)

	mu       sync.Mutex
	requests []Request
}

func (f *fakeEngine) Name() string          { return "fake" }
func (f *fakeEngine) Kind() Kind            { return f.kind }
func (f *fakeEngine) DefaultBatchSize() int { return 2 }

func (f *fakeEngine) Call(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.reply(req)
}

func testBatch() batch.Batch {
	return batch.Batch{
		Start: 1,
		Blocks: []document.Block{
			{Seq: 1, Lines: []string{"Hello", "world"}},
			{Seq: 2, Lines: []string{"Bye"}},
		},
	}
}

func TestAdapter_TaggedVariant(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{kind: KindChat, reply: func(Request) (string, error) {
		return "[#1]\nHallo\nWelt\n\n[#2]\nTschüss\n\n[#9]\nstray", nil
	}}
	a := NewAdapter(engine)

	got, err := a.Translate(context.Background(), testBatch(), document.FormatSRT, language.German, language.English)
	require.NoError(t, err)
	assert.Equal(t, map[int][]string{1: {"Hallo", "Welt"}, 2: {"Tschüss"}}, got)

	require.Len(t, engine.requests, 1)
	req := engine.requests[0]
	assert.Equal(t, "[#1]\nHello\nworld\n\n[#2]\nBye", req.Text)
	assert.Contains(t, req.System, "German (de)")
	assert.Contains(t, req.System, "English (en)")
	assert.Contains(t, req.System, "Do not include any explanations")
}

func TestAdapter_TaggedMissingBlocksAreAbsent(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{kind: KindGenerative, reply: func(Request) (string, error) {
		return "[#2]\nTschüss", nil
	}}

	got, err := NewAdapter(engine).Translate(context.Background(), testBatch(), document.FormatText, language.German, language.Und)
	require.NoError(t, err)
	assert.Equal(t, map[int][]string{2: {"Tschüss"}}, got)
	assert.NotContains(t, engine.requests[0].System, "English")
}

func TestAdapter_GlossaryTermsInPrompt(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{kind: KindChat, reply: func(Request) (string, error) {
		return "[#1]\nHallo\nWelt\n\n[#2]\nTschüss", nil
	}}
	base := NewAdapter(engine)
	a := base.WithGlossary(glossary.Glossary{"world": "Erde", "moon": "Mond"})

	_, err := a.Translate(context.Background(), testBatch(), document.FormatSRT, language.German, language.English)
	require.NoError(t, err)
	_, err = base.Translate(context.Background(), testBatch(), document.FormatSRT, language.German, language.English)
	require.NoError(t, err)

	require.Len(t, engine.requests, 2)
	assert.Contains(t, engine.requests[0].System, "- world => Erde")
	assert.NotContains(t, engine.requests[0].System, "Mond")
	assert.NotContains(t, engine.requests[1].System, "GLOSSARY")
}

func TestAdapter_JoinedVariant(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{kind: KindParamTranslate, reply: func(Request) (string, error) {
		return "Hallo\nWelt\n\n\nTschüss\n", nil
	}}

	got, err := NewAdapter(engine).Translate(context.Background(), testBatch(), document.FormatSRT, language.German, language.Und)
	require.NoError(t, err)
	assert.Equal(t, map[int][]string{1: {"Hallo", "Welt"}, 2: {"Tschüss"}}, got)
	assert.Equal(t, "Hello\nworld\n\nBye", engine.requests[0].Text)
	assert.Empty(t, engine.requests[0].System)
}

func TestAdapter_JoinedVariantSegmentMismatchFailsBatch(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{kind: KindParamTranslate, reply: func(Request) (string, error) {
		return "Hallo Welt Tschüss", nil
	}}

	_, err := NewAdapter(engine).Translate(context.Background(), testBatch(), document.FormatSRT, language.German, language.Und)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBackend))
	assert.Contains(t, err.Error(), "segment count mismatch")
}

func TestAdapter_BackendErrorIsWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	engine := &fakeEngine{kind: KindChat, reply: func(Request) (string, error) {
		return "", boom
	}}

	_, err := NewAdapter(engine).Translate(context.Background(), testBatch(), document.FormatSRT, language.German, language.Und)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindBackend, apperr.KindOf(err))
}

func TestAdapter_CallTimeout(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{kind: KindChat}
	engine.reply = func(Request) (string, error) { return "", nil }
	slow := &slowEngine{fakeEngine: engine, wait: time.Second}

	start := time.Now()
	_, err := NewAdapter(slow, WithCallTimeout(20*time.Millisecond)).
		Translate(context.Background(), testBatch(), document.FormatSRT, language.German, language.Und)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAdapter_EmptyBatchMakesNoCall(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{kind: KindChat}
	got, err := NewAdapter(engine).Translate(context.Background(), batch.Batch{}, document.FormatSRT, language.German, language.Und)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, engine.requests)
}

type slowEngine struct {
	*fakeEngine
	wait time.Duration
}

func (s *slowEngine) Call(ctx context.Context, req Request) (string, error) {
	select {
	case <-time.After(s.wait):
		return s.fakeEngine.Call(ctx, req)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSplitSegments(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, splitSegments("\n a \r\nb\r\n\r\n\r\nc\n\n"))
	assert.Empty(t, splitSegments(" \n\n"))
}
