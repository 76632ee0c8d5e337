package document

import (
	"regexp"
	"strings"
)

var vttTimingRe = regexp.MustCompile(`^(?:\d{1,}:)?\d{2}:\d{2}\.\d{3}\s+-->\s+(?:\d{1,}:)?\d{2}:\d{2}\.\d{3}`)

const vttHeader = "WEBVTT"

type vttCodec struct{}

func (vttCodec) Format() Format { return FormatVTT }

// Parse reads WebVTT cues. The header group is kept on the document; NOTE,
// STYLE and REGION groups and cues without text are passed through.
func (vttCodec) Parse(data []byte) (*Document, error) {
	doc := &Document{Format: FormatVTT}

	groups := splitGroups(normalize(data))
	if len(groups) > 0 && strings.HasPrefix(groups[0][0], vttHeader) {
		doc.Header = strings.Join(groups[0], "\n")
		groups = groups[1:]
	}

	seq := 0
	for _, group := range groups {
		id, timingAt := "", -1
		switch {
		case vttTimingRe.MatchString(strings.TrimSpace(group[0])):
			timingAt = 0
		case len(group) > 1 && vttTimingRe.MatchString(strings.TrimSpace(group[1])):
			id, timingAt = group[0], 1
		}

		if timingAt < 0 || len(group) <= timingAt+1 {
			doc.Blocks = append(doc.Blocks, Block{Raw: strings.Join(group, "\n")})
			continue
		}

		seq++
		doc.Blocks = append(doc.Blocks, Block{
			Seq:    seq,
			ID:     id,
			Timing: strings.TrimSpace(group[timingAt]),
			Lines:  append([]string(nil), group[timingAt+1:]...),
		})
	}

	return doc, nil
}

func (vttCodec) Serialize(doc *Document) ([]byte, error) {
	header := doc.Header
	if header == "" {
		header = vttHeader
	}

	parts := make([]string, 0, len(doc.Blocks)+1)
	parts = append(parts, header)
	for _, b := range doc.Blocks {
		if !b.Translatable() {
			parts = append(parts, b.Raw)
			continue
		}

		var sb strings.Builder
		if b.ID != "" {
			sb.WriteString(b.ID)
			sb.WriteString("\n")
		}
		sb.WriteString(b.Timing)
		for _, line := range trimLines(b.Lines) {
			sb.WriteString("\n")
			sb.WriteString(line)
		}
		parts = append(parts, sb.String())
	}

	return []byte(strings.Join(parts, "\n\n") + "\n"), nil
}
