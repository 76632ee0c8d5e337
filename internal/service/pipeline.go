package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
	"github.com/MimeLyc/structured-doc-translator/internal/assemble"
	"github.com/MimeLyc/structured-doc-translator/internal/batch"
	"github.com/MimeLyc/structured-doc-translator/internal/config"
	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/glossary"
	"github.com/MimeLyc/structured-doc-translator/internal/packager"
	"github.com/MimeLyc/structured-doc-translator/internal/translator"
	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

// EngineFactory builds the engine named by a request.
type EngineFactory func(name string) (translator.Engine, error)

// Pipeline runs parse, batch, translate, reconcile, assemble and package for
// one document. A Pipeline holds no per-request state and is safe for
// concurrent use.
type Pipeline struct {
	cfg       config.Config
	newEngine EngineFactory
}

type Option func(*Pipeline)

// WithEngineFactory replaces the config based engine registry.
func WithEngineFactory(f EngineFactory) Option {
	return func(p *Pipeline) {
		p.newEngine = f
	}
}

func NewPipeline(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg}
	p.newEngine = func(name string) (translator.Engine, error) {
		return translator.NewEngine(name, p.cfg)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run translates req into every requested language and packages the result.
//
// Validation, configuration and parse errors abort before any backend call.
// A failed batch only blanks its own blocks. The run is aborted only when ctx
// is done.
func (p *Pipeline) Run(ctx context.Context, req Request) (*packager.Output, error) {
	out, _, err := p.RunWithReport(ctx, req)
	return out, err
}

// RunWithReport is Run plus a per-language summary in request order.
func (p *Pipeline) RunWithReport(ctx context.Context, req Request) (*packager.Output, []LanguageReport, error) {
	pl, docs, reports, err := p.translateAll(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	out, err := packager.Package(pl.baseName, pl.format, docs)
	if err != nil {
		return nil, nil, err
	}
	return out, reports, nil
}

// translateAll returns one serialized document per requested language, in
// request order.
func (p *Pipeline) translateAll(ctx context.Context, req Request) (plan, []packager.LanguageDocument, []LanguageReport, error) {
	pl, err := p.validate(req)
	if err != nil {
		return pl, nil, nil, err
	}

	engine, err := p.newEngine(req.Engine)
	if err != nil {
		return pl, nil, nil, err
	}
	if pl.batchSize <= 0 {
		pl.batchSize = engine.DefaultBatchSize()
	}

	codec, err := document.CodecFor(pl.format)
	if err != nil {
		return pl, nil, nil, err
	}
	doc, err := codec.Parse(req.Content)
	if err != nil {
		return pl, nil, nil, apperr.Wrap(err, apperr.KindValidation, "failed to parse document").
			WithContext("format", string(pl.format))
	}

	source := document.DetectLanguage(doc.Blocks)
	log.Info("Translating %s (%s, %d blocks, source %s) into %d languages with %s",
		pl.baseName, pl.format, len(doc.Translatable()), source, len(pl.languages), engine.Name())

	adapter := translator.NewAdapter(engine,
		translator.WithPacer(translator.NewPacer(p.cfg.Translate.BatchDelay)),
		translator.WithCallTimeout(p.cfg.Translate.CallTimeout),
	)

	docs := make([]packager.LanguageDocument, len(pl.languages))
	reports := make([]LanguageReport, len(pl.languages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Translate.LanguageConcurrency, 1))
	for i, target := range pl.languages {
		i, target := i, target
		g.Go(func() error {
			terms := loadGlossary(req, source, target)
			translated, report, err := p.translateDocument(gctx, adapter.WithGlossary(terms), doc, pl, target, source)
			if err != nil {
				return err
			}
			body, err := codec.Serialize(translated)
			if err != nil {
				return apperr.Wrap(err, apperr.KindInternal, "failed to serialize document").
					WithContext("language", target.String())
			}
			docs[i] = packager.LanguageDocument{Language: target.String(), Body: body}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pl, nil, nil, err
	}
	return pl, docs, reports, nil
}

// translateDocument runs the batches of one language in source order.
func (p *Pipeline) translateDocument(
	ctx context.Context,
	adapter *translator.Adapter,
	doc *document.Document,
	pl plan,
	target, source language.Tag,
) (*document.Document, LanguageReport, error) {
	start := time.Now()
	batches := batch.Partition(doc.Blocks, pl.batchSize)

	report := LanguageReport{Language: target, Batches: len(batches)}
	results := make(map[int][]string)

	for _, b := range batches {
		report.Blocks += len(b.Blocks)

		lines, err := adapter.Translate(ctx, b, pl.format, target, source)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, report, ctxErr
			}
			report.FailedBatches++
			log.Warn("Batch starting at [#%d] for %s failed, its %d blocks stay blank: %v",
				b.Start, target, len(b.Blocks), err)
			continue
		}
		for seq, l := range lines {
			results[seq] = l
		}
	}

	for _, b := range doc.Blocks {
		if _, ok := results[b.Seq]; b.Translatable() && !ok {
			report.MissingBlocks++
		}
	}
	report.Duration = time.Since(start)

	log.Info("Translated %d blocks into %s in %d batches (%d failed, %d blocks missing) in %s",
		report.Blocks, target, report.Batches, report.FailedBatches, report.MissingBlocks, report.Duration.Round(time.Millisecond))

	return assemble.BuildDocument(doc, results), report, nil
}

// loadGlossary merges the on-disk glossary of the language pair with the
// request glossary. A broken glossary file is logged and skipped.
func loadGlossary(req Request, source, target language.Tag) glossary.Glossary {
	var onDisk glossary.Glossary
	if path := glossary.FindInAncestors(req.GlossaryDir, source, target); path != "" {
		g, err := glossary.Load(path)
		if err != nil {
			log.Warn("Ignoring glossary %s: %v", path, err)
		} else {
			log.Debug("Using glossary %s (%d terms) for %s", path, len(g), target)
			onDisk = g
		}
	}
	if len(onDisk) == 0 && len(req.Glossary) == 0 {
		return nil
	}
	return glossary.Merge(onDisk, req.Glossary)
}

func (p *Pipeline) validate(req Request) (plan, error) {
	if len(req.Content) == 0 {
		return plan{}, apperr.New(apperr.KindValidation, "no file content provided")
	}

	format := req.Format
	if format == "" {
		ext := filepath.Ext(req.FileName)
		if ext == "" {
			return plan{}, apperr.New(apperr.KindValidation, "file type cannot be determined").
				WithContext("file", req.FileName)
		}
		var err error
		if format, err = document.ParseFormat(ext); err != nil {
			return plan{}, err
		}
	} else if _, err := document.CodecFor(format); err != nil {
		return plan{}, err
	}

	languages, err := ParseLanguages(req.TargetLanguages)
	if err != nil {
		return plan{}, err
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = p.cfg.Translate.BatchSize
	}

	return plan{
		format:    format,
		baseName:  packager.BaseName(req.FileName),
		languages: languages,
		batchSize: batchSize,
	}, nil
}

// ParseLanguages parses BCP 47 codes, rejecting empty lists and duplicates.
func ParseLanguages(codes []string) ([]language.Tag, error) {
	ret := make([]language.Tag, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindValidation, fmt.Sprintf("invalid target language %q", code))
		}
		if seen[tag.String()] {
			return nil, apperr.Newf(apperr.KindValidation, "duplicate target language %q", tag.String())
		}
		seen[tag.String()] = true
		ret = append(ret, tag)
	}
	if len(ret) == 0 {
		return nil, apperr.New(apperr.KindValidation, "at least one target language is required")
	}
	return ret, nil
}

// TranslateText translates plain text into every language and returns the
// translated text keyed by language code.
func (p *Pipeline) TranslateText(ctx context.Context, text string, languages []string, engine string) (map[string]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.KindValidation, "text is required")
	}

	_, docs, _, err := p.translateAll(ctx, Request{
		Content:         []byte(text),
		Format:          document.FormatText,
		TargetLanguages: languages,
		Engine:          engine,
	})
	if err != nil {
		return nil, err
	}

	ret := make(map[string]string, len(docs))
	for _, d := range docs {
		ret[d.Language] = string(d.Body)
	}
	return ret, nil
}
