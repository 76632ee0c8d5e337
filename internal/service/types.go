package service

import (
	"time"

	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/glossary"
	"golang.org/x/text/language"
)

// Request is one document translation request.
type Request struct {
	Content  []byte
	FileName string
	// Format overrides detection from the FileName extension.
	Format          document.Format
	TargetLanguages []string
	// BatchSize <= 0 falls back to the configured size, then to the engine default.
	BatchSize int
	// Engine selects the backend; empty uses the configured default.
	Engine string
	// Glossary applies to every target language.
	Glossary glossary.Glossary
	// GlossaryDir is searched upwards for glossary.<src>-<tgt>.json files.
	// Entries of Glossary win over entries found on disk.
	GlossaryDir string
}

// LanguageReport summarizes the translation of one target language.
type LanguageReport struct {
	Language      language.Tag
	Blocks        int
	Batches       int
	FailedBatches int
	// MissingBlocks counts blocks the backend never returned, including the
	// blocks of failed batches.
	MissingBlocks int
	Duration      time.Duration
}

// plan is a validated request.
type plan struct {
	format    document.Format
	baseName  string
	languages []language.Tag
	batchSize int
}
