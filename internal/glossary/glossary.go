// Package glossary pins the translation of recurring terms such as character
// names, product names or UI labels.
package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Glossary maps source terms to the translation that must be used for them.
type Glossary map[string]string

// Entry is one matched glossary term.
type Entry struct {
	Source string
	Target string
}

// Filename returns the glossary filename for a language pair, using base
// language codes: glossary.en-de.json.
func Filename(source, target language.Tag) string {
	return "glossary." + baseCode(source) + "-" + baseCode(target) + ".json"
}

// IsGlossaryFile reports whether path is named like a glossary file.
func IsGlossaryFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, "glossary.") && strings.HasSuffix(name, ".json")
}

// FindInAncestors walks up from startDir looking for the glossary of the
// language pair. It returns "" when none exists.
func FindInAncestors(startDir string, source, target language.Tag) string {
	if startDir == "" || source == language.Und {
		return ""
	}
	name := Filename(source, target)

	dir := filepath.Clean(startDir)
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads a glossary from a flat JSON object.
func Load(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a flat JSON object of term pairs. Entries with an empty side
// are dropped.
func Parse(data []byte) (Glossary, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid glossary: %w", err)
	}

	g := make(Glossary, len(raw))
	for src, tgt := range raw {
		src, tgt = strings.TrimSpace(src), strings.TrimSpace(tgt)
		if src == "" || tgt == "" {
			continue
		}
		g[src] = tgt
	}
	return g, nil
}

// Merge returns a new glossary with the entries of every argument; later
// glossaries win on conflicts.
func Merge(gs ...Glossary) Glossary {
	ret := make(Glossary)
	for _, g := range gs {
		for k, v := range g {
			ret[k] = v
		}
	}
	return ret
}

// Match returns the entries whose source term occurs in any of texts as a
// whole word. Matching is case sensitive. Entries are sorted by source term.
func Match(g Glossary, texts []string) []Entry {
	var ret []Entry
	for src, tgt := range g {
		for _, text := range texts {
			if containsWord(text, src) {
				ret = append(ret, Entry{Source: src, Target: tgt})
				break
			}
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Source < ret[j].Source })
	return ret
}

// containsWord reports whether term occurs in text with no letter or digit
// directly before or after it. Edges in scripts written without spaces
// (Han, kana, Hangul) need no boundary.
func containsWord(text, term string) bool {
	if term == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(term)
	last, _ := utf8.DecodeLastRuneInString(term)
	checkBefore, checkAfter := !isUnspacedRune(first), !isUnspacedRune(last)
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(term)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		okBefore := !checkBefore || start == 0 || !isWordRune(before)
		okAfter := !checkAfter || end == len(text) || !isWordRune(after)
		if okBefore && okAfter {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isUnspacedRune(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func baseCode(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
