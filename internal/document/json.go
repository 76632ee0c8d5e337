package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type jsonKind int

const (
	jsonObject jsonKind = iota
	jsonArray
	jsonString
	jsonLiteral
)

// jsonNode is an order-preserving JSON tree. String leaves reference the
// block that carries their text.
type jsonNode struct {
	kind     jsonKind
	keys     []string
	children []*jsonNode
	literal  string
	value    string
	block    int
}

// jsonCodec translates string values in document order; object keys, numbers,
// booleans and nulls are kept as they are.
type jsonCodec struct{}

func (jsonCodec) Format() Format { return FormatJSON }

func (jsonCodec) Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(strings.NewReader(normalize(data)))
	dec.UseNumber()

	doc := &Document{Format: FormatJSON}
	p := &jsonParser{dec: dec, doc: doc}

	root, err := p.value("$")
	if err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse json: unexpected data after top-level value")
	}

	doc.layout = root
	return doc, nil
}

type jsonParser struct {
	dec *json.Decoder
	doc *Document
	seq int
}

func (p *jsonParser) value(path string) (*jsonNode, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return p.object(path)
		case '[':
			return p.array(path)
		}
		return nil, fmt.Errorf("unexpected delimiter %q at %s", v, path)
	case string:
		return p.leaf(path, v), nil
	case json.Number:
		return &jsonNode{kind: jsonLiteral, literal: v.String()}, nil
	case bool:
		return &jsonNode{kind: jsonLiteral, literal: strconv.FormatBool(v)}, nil
	case nil:
		return &jsonNode{kind: jsonLiteral, literal: "null"}, nil
	}
	return nil, fmt.Errorf("unexpected token %v at %s", tok, path)
}

func (p *jsonParser) object(path string) (*jsonNode, error) {
	node := &jsonNode{kind: jsonObject}
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key at %s", path)
		}
		child, err := p.value(path + "." + key)
		if err != nil {
			return nil, err
		}
		node.keys = append(node.keys, key)
		node.children = append(node.children, child)
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *jsonParser) array(path string) (*jsonNode, error) {
	node := &jsonNode{kind: jsonArray}
	for i := 0; p.dec.More(); i++ {
		child, err := p.value(fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		node.children = append(node.children, child)
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *jsonParser) leaf(path, value string) *jsonNode {
	node := &jsonNode{kind: jsonString, value: value, block: len(p.doc.Blocks)}
	if strings.TrimSpace(value) == "" {
		p.doc.Blocks = append(p.doc.Blocks, Block{ID: path, Raw: value})
		return node
	}

	lines, _ := splitValue(value)
	p.seq++
	p.doc.Blocks = append(p.doc.Blocks, Block{Seq: p.seq, ID: path, Lines: lines})
	return node
}

func (jsonCodec) Serialize(doc *Document) ([]byte, error) {
	root, ok := doc.layout.(*jsonNode)
	if !ok || root == nil {
		return nil, fmt.Errorf("json document has no parse tree")
	}

	var buf bytes.Buffer
	if err := writeJSONNode(&buf, root, doc.Blocks, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeJSONNode(buf *bytes.Buffer, node *jsonNode, blocks []Block, depth int) error {
	switch node.kind {
	case jsonLiteral:
		buf.WriteString(node.literal)
	case jsonString:
		if node.block >= len(blocks) {
			return fmt.Errorf("json leaf %d has no block", node.block)
		}
		b := blocks[node.block]
		text := b.Raw
		if b.Translatable() {
			_, trailer := splitValue(node.value)
			text = strings.Join(b.Lines, "\n") + trailer
		}
		buf.WriteString(quoteJSON(text))
	case jsonObject, jsonArray:
		open, closing := "{", "}"
		if node.kind == jsonArray {
			open, closing = "[", "]"
		}
		if len(node.children) == 0 {
			buf.WriteString(open + closing)
			return nil
		}

		indent := strings.Repeat("  ", depth+1)
		buf.WriteString(open + "\n")
		for i, child := range node.children {
			buf.WriteString(indent)
			if node.kind == jsonObject {
				buf.WriteString(quoteJSON(node.keys[i]))
				buf.WriteString(": ")
			}
			if err := writeJSONNode(buf, child, blocks, depth+1); err != nil {
				return err
			}
			if i < len(node.children)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat("  ", depth))
		buf.WriteString(closing)
	}
	return nil
}

// quoteJSON encodes s as a JSON string without HTML escaping.
func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
