package document

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

const detectSampleSize = 200

// DetectLanguage guesses the source language from the first blocks of a
// document. Only reliable detections vote; language.Und means no guess.
func DetectLanguage(blocks []Block) language.Tag {
	votes := make(map[string]int)

	sampled := 0
	for _, b := range blocks {
		if !b.Translatable() {
			continue
		}
		if sampled == detectSampleSize {
			break
		}
		sampled++

		info := whatlanggo.Detect(b.Text())
		if !info.IsReliable() {
			continue
		}
		if code := info.Lang.Iso6391(); code != "" {
			votes[code]++
		}
	}

	var topLang string
	var topCount int
	for lang, count := range votes {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	tag, err := language.Parse(topLang)
	if err != nil {
		return language.Und
	}
	return tag
}
