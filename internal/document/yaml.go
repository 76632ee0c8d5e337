package document

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlCodec translates string scalars found in mapping values and sequence
// items. Keys and non-string scalars are never touched.
type yamlCodec struct{}

func (yamlCodec) Format() Format { return FormatYAML }

func (yamlCodec) Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(normalize(data)), &root); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	doc := &Document{Format: FormatYAML, layout: &root}

	seq := 0
	walkYAMLStrings(&root, "", func(node *yaml.Node, path string) {
		if strings.TrimSpace(node.Value) == "" {
			doc.Blocks = append(doc.Blocks, Block{ID: path, Raw: node.Value})
			return
		}
		lines, _ := splitValue(node.Value)
		seq++
		doc.Blocks = append(doc.Blocks, Block{Seq: seq, ID: path, Lines: lines})
	})

	return doc, nil
}

func (yamlCodec) Serialize(doc *Document) ([]byte, error) {
	root, ok := doc.layout.(*yaml.Node)
	if !ok || root == nil {
		return nil, fmt.Errorf("yaml document has no parse tree")
	}
	if root.Kind == 0 {
		return []byte{}, nil
	}

	tree := cloneYAMLNode(root)

	i := 0
	var applyErr error
	walkYAMLStrings(tree, "", func(node *yaml.Node, path string) {
		if i >= len(doc.Blocks) {
			applyErr = fmt.Errorf("yaml leaf %s has no block", path)
			return
		}
		b := doc.Blocks[i]
		i++
		if !b.Translatable() {
			return
		}
		_, trailer := splitValue(node.Value)
		node.Value = strings.Join(b.Lines, "\n") + trailer
		node.Tag = "!!str"
		if strings.Contains(node.Value, "\n") && node.Style&(yaml.LiteralStyle|yaml.FoldedStyle|yaml.DoubleQuotedStyle) == 0 {
			node.Style = yaml.LiteralStyle
		}
	})
	if applyErr != nil {
		return nil, applyErr
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("failed to write yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to write yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// walkYAMLStrings visits string scalar values in document order.
func walkYAMLStrings(node *yaml.Node, path string, visit func(*yaml.Node, string)) {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, c := range node.Content {
			walkYAMLStrings(c, path, visit)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			child := key
			if path != "" {
				child = path + "." + key
			}
			walkYAMLStrings(node.Content[i+1], child, visit)
		}
	case yaml.SequenceNode:
		for i, c := range node.Content {
			walkYAMLStrings(c, fmt.Sprintf("%s[%d]", path, i), visit)
		}
	case yaml.ScalarNode:
		if node.Tag == "!!str" {
			visit(node, path)
		}
	}
}

func cloneYAMLNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Content != nil {
		cp.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			cp.Content[i] = cloneYAMLNode(c)
		}
	}
	return &cp
}
