package assemble

import (
	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/reconcile"
)

// BuildDocument returns a new document with every translatable block of
// original replaced by its reconciled counterpart from results. Pass-through
// blocks are copied unchanged and original is never modified.
func BuildDocument(original *document.Document, results map[int][]string) *document.Document {
	corrected := make(map[int][]string, len(original.Blocks))
	for _, b := range original.Blocks {
		if !b.Translatable() {
			continue
		}
		corrected[b.Seq] = reconcile.Lookup(results, b.Seq, len(b.Lines))
	}
	return original.WithLines(corrected)
}
