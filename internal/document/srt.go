package document

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	srtIndexRe  = regexp.MustCompile(`^\d+$`)
	srtTimingRe = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}[,.]\d{1,3}\s*-->\s*\d{1,2}:\d{2}:\d{2}[,.]\d{1,3}`)
)

type srtCodec struct{}

func (srtCodec) Format() Format { return FormatSRT }

// Parse reads SRT groups. A group is kept only when it has a numeric counter,
// a timing line and at least one text line; other groups are dropped.
func (srtCodec) Parse(data []byte) (*Document, error) {
	doc := &Document{Format: FormatSRT}

	seq := 0
	for _, group := range splitGroups(normalize(data)) {
		if len(group) < 3 {
			continue
		}
		index := strings.TrimSpace(group[0])
		timing := strings.TrimSpace(group[1])
		if !srtIndexRe.MatchString(index) || !srtTimingRe.MatchString(timing) {
			continue
		}

		seq++
		doc.Blocks = append(doc.Blocks, Block{
			Seq:    seq,
			ID:     index,
			Timing: timing,
			Lines:  append([]string(nil), group[2:]...),
		})
	}

	return doc, nil
}

func (srtCodec) Serialize(doc *Document) ([]byte, error) {
	var sb strings.Builder

	first := true
	for _, b := range doc.Blocks {
		if !b.Translatable() {
			continue
		}
		if !first {
			sb.WriteString("\n")
		}
		first = false

		id := b.ID
		if id == "" {
			id = strconv.Itoa(b.Seq)
		}
		sb.WriteString(id)
		sb.WriteString("\n")
		sb.WriteString(b.Timing)
		sb.WriteString("\n")
		for _, line := range trimLines(b.Lines) {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}
