package translator

import (
	"fmt"
	"strings"

	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/glossary"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// languageName renders a tag as "German (de)".
func languageName(tag language.Tag) string {
	name := display.English.Tags().Name(tag)
	if name == "" || tag == language.Und {
		return tag.String()
	}
	return fmt.Sprintf("%s (%s)", name, tag.String())
}

// buildSystemPrompt builds the instruction sent with every tagged batch.
func buildSystemPrompt(format document.Format, source, target language.Tag, terms []glossary.Entry) string {
	var prompt strings.Builder

	prompt.WriteString("You are a professional translator for structured documents such as subtitles and localization files. ")
	if source != language.Und {
		prompt.WriteString("Translate every block from " + languageName(source) + " to " + languageName(target) + ".\n\n")
	} else {
		prompt.WriteString("Translate every block to " + languageName(target) + ".\n\n")
	}

	prompt.WriteString("=== INPUT FORMAT ===\n")
	prompt.WriteString(fmt.Sprintf("The input is a batch of blocks taken from a %s document.\n", strings.ToUpper(string(format))))
	prompt.WriteString("Each block starts with a tag line [#N] followed by the lines of that block.\n")

	prompt.WriteString("\n=== TRANSLATION GUIDELINES ===\n")
	prompt.WriteString("1. Translate each block independently but keep terminology consistent across blocks\n")
	prompt.WriteString("2. Keep the same number of lines in every block\n")
	prompt.WriteString("3. Keep markup, placeholders and formatting codes such as <i>, {0} or %s unchanged\n")
	prompt.WriteString("4. Keep lines short enough for on-screen reading\n")

	if len(terms) > 0 {
		prompt.WriteString("\n=== GLOSSARY ===\n")
		prompt.WriteString("Always translate these terms exactly as given:\n")
		for _, t := range terms {
			prompt.WriteString(fmt.Sprintf("- %s => %s\n", t.Source, t.Target))
		}
	}

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return every block with its original tag line [#N] followed by the translated lines.\n")
	prompt.WriteString("Never change, merge, skip or renumber tags.\n")
	prompt.WriteString("Do not include any explanations, notes, or additional text.\n")

	return prompt.String()
}
