package document

import (
	"bytes"
	"strings"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
)

// Format identifies a document format handled by a Codec.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatSRT, FormatVTT, FormatText, FormatCSV, FormatJSON, FormatYAML}

// ParseFormat resolves a format name or file extension such as ".SRT" or "yml".
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch name {
	case "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", apperr.Newf(apperr.KindUnsupportedFormat, "unsupported file type: %q", s)
}

func (f Format) Extension() string {
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatYAML:
		return "application/yaml; charset=utf-8"
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Block is one structural unit of a document.
//
// Seq > 0 marks a translatable block; Seq is unique within the document and is
// the correlation key exchanged with translation backends. Blocks with Seq == 0
// are passed through and Raw is emitted verbatim.
type Block struct {
	Seq    int
	ID     string
	Timing string
	Lines  []string
	Raw    string
}

func (b Block) Translatable() bool {
	return b.Seq > 0
}

// Text returns the block content with lines joined by a newline.
func (b Block) Text() string {
	return strings.Join(b.Lines, "\n")
}

func (b Block) clone() Block {
	if b.Lines != nil {
		b.Lines = append([]string(nil), b.Lines...)
	}
	return b
}

// Document is the ordered block sequence of one parsed file.
// layout holds codec private state and is never mutated after Parse.
type Document struct {
	Format Format
	Header string
	Blocks []Block

	layout any
}

// Translatable returns the blocks that take part in translation, in order.
func (d *Document) Translatable() []Block {
	ret := make([]Block, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Translatable() {
			ret = append(ret, b)
		}
	}
	return ret
}

// Clone returns a copy sharing no mutable block state with d.
func (d *Document) Clone() *Document {
	blocks := make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		blocks[i] = b.clone()
	}
	return &Document{
		Format: d.Format,
		Header: d.Header,
		Blocks: blocks,
		layout: d.layout,
	}
}

// WithLines returns a copy of d where every translatable block found in
// linesBySeq carries the given lines.
func (d *Document) WithLines(linesBySeq map[int][]string) *Document {
	ret := d.Clone()
	for i := range ret.Blocks {
		b := &ret.Blocks[i]
		if !b.Translatable() {
			continue
		}
		if lines, ok := linesBySeq[b.Seq]; ok {
			b.Lines = append([]string(nil), lines...)
		}
	}
	return ret
}

// Codec parses and serializes one document format.
type Codec interface {
	Format() Format
	Parse(data []byte) (*Document, error)
	Serialize(doc *Document) ([]byte, error)
}

// CodecFor returns the codec registered for f.
func CodecFor(f Format) (Codec, error) {
	switch f {
	case FormatSRT:
		return srtCodec{}, nil
	case FormatVTT:
		return vttCodec{}, nil
	case FormatText:
		return textCodec{}, nil
	case FormatCSV:
		return csvCodec{}, nil
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML:
		return yamlCodec{}, nil
	}
	return nil, apperr.Newf(apperr.KindUnsupportedFormat, "no codec for file type %q", string(f))
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalize strips a UTF-8 BOM and converts CRLF and CR line endings to LF.
func normalize(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	s := string(data)
	if strings.IndexByte(s, '\r') < 0 {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// splitGroups splits text into groups of lines separated by blank lines.
// Trailing whitespace is removed from every kept line.
func splitGroups(text string) [][]string {
	var (
		groups  [][]string
		current []string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func trimLines(lines []string) []string {
	ret := make([]string, len(lines))
	for i, l := range lines {
		ret[i] = strings.TrimRight(l, " \t")
	}
	return ret
}

// splitValue splits a string value into lines, keeping trailing newlines aside
// so they survive a translation round.
func splitValue(v string) ([]string, string) {
	body := strings.TrimRight(v, "\n")
	return strings.Split(body, "\n"), v[len(body):]
}
