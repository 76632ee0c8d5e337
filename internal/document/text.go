package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// textCodec treats every non-blank line as a one-line block.
type textCodec struct{}

func (textCodec) Format() Format { return FormatText }

func (textCodec) Parse(data []byte) (*Document, error) {
	doc := &Document{Format: FormatText}

	seq := 0
	for i, line := range strings.Split(normalize(data), "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			doc.Blocks = append(doc.Blocks, Block{Raw: line})
			continue
		}
		seq++
		doc.Blocks = append(doc.Blocks, Block{
			Seq:   seq,
			ID:    strconv.Itoa(i + 1),
			Lines: []string{line},
		})
	}

	return doc, nil
}

func (textCodec) Serialize(doc *Document) ([]byte, error) {
	lines := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if !b.Translatable() {
			lines = append(lines, b.Raw)
			continue
		}
		lines = append(lines, strings.Join(trimLines(b.Lines), " "))
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// csvCodec translates every cell that contains a letter. Numeric and empty
// cells are passed through. Cells keep their row/column position.
type csvCodec struct{}

// csvLayout records the cell count of each row.
type csvLayout struct {
	widths []int
}

func (csvCodec) Format() Format { return FormatCSV }

func (csvCodec) Parse(data []byte) (*Document, error) {
	r := csv.NewReader(strings.NewReader(normalize(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	doc := &Document{Format: FormatCSV}
	layout := csvLayout{widths: make([]int, len(records))}

	seq := 0
	for row, record := range records {
		layout.widths[row] = len(record)
		for col, cell := range record {
			if !hasLetter(cell) {
				doc.Blocks = append(doc.Blocks, Block{Raw: cell})
				continue
			}
			seq++
			doc.Blocks = append(doc.Blocks, Block{
				Seq:   seq,
				ID:    fmt.Sprintf("R%dC%d", row+1, col+1),
				Lines: strings.Split(cell, "\n"),
			})
		}
	}
	doc.layout = layout

	return doc, nil
}

func (csvCodec) Serialize(doc *Document) ([]byte, error) {
	layout, _ := doc.layout.(csvLayout)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	next := 0
	for _, width := range layout.widths {
		if next+width > len(doc.Blocks) {
			return nil, fmt.Errorf("csv layout expects %d cells, document has %d", next+width, len(doc.Blocks))
		}
		record := make([]string, width)
		for col := range record {
			b := doc.Blocks[next]
			next++
			if b.Translatable() {
				record[col] = strings.Join(b.Lines, "\n")
			} else {
				record[col] = b.Raw
			}
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
