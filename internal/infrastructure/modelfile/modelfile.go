// Package modelfile reads and writes graph models as YAML documents:
//
//	attrs:
//	  precision: ap_fixed<16,6>
//	nodes:
//	  - id: input
//	    op: Input
//	  - id: dense1
//	    op: Dense
//	    attrs: {units: 32}
//	edges:
//	  - {from: input, to: dense1}
package modelfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/passflow/internal/domain/graph"
)

// Document is the on-disk shape of a model.
type Document struct {
	Attrs map[string]any `yaml:"attrs,omitempty"`
	Nodes []Node         `yaml:"nodes"`
	Edges []Edge         `yaml:"edges,omitempty"`
}

// Node is one entry of Document.Nodes.
type Node struct {
	ID    string         `yaml:"id"`
	Op    string         `yaml:"op"`
	Attrs map[string]any `yaml:"attrs,omitempty"`
}

// Edge is one entry of Document.Edges.
type Edge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Load decodes a model document and builds a graph from it.
func Load(r io.Reader) (*graph.Graph, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return graph.New(), nil
		}
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return doc.Build()
}

// LoadFile is Load over the file at path.
func LoadFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path) //nolint:gosec // G304: user-supplied model path
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer func() { _ = f.Close() }()

	g, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Build constructs a graph from the document.
func (d *Document) Build() (*graph.Graph, error) {
	g := graph.New()
	for i, n := range d.Nodes {
		if err := g.AddNode(n.ID, n.Op); err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		for _, k := range sortedKeys(n.Attrs) {
			if err := g.SetAttr(n.ID, k, n.Attrs[k]); err != nil {
				return nil, fmt.Errorf("nodes[%d]: %w", i, err)
			}
		}
	}
	for i, e := range d.Edges {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
	}
	for _, k := range sortedKeys(d.Attrs) {
		g.SetGraphAttr(k, d.Attrs[k])
	}
	return g, nil
}

// FromModel snapshots m into a document.
func FromModel(m graph.Model) *Document {
	doc := &Document{Nodes: []Node{}}
	for _, id := range m.Nodes() {
		op, _ := m.Op(id)
		n := Node{ID: id, Op: op}
		if keys := m.AttrKeys(id); len(keys) > 0 {
			n.Attrs = make(map[string]any, len(keys))
			for _, k := range keys {
				n.Attrs[k], _ = m.Attr(id, k)
			}
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	for _, e := range m.Edges() {
		doc.Edges = append(doc.Edges, Edge{From: e.From, To: e.To})
	}
	if keys := m.GraphAttrKeys(); len(keys) > 0 {
		doc.Attrs = make(map[string]any, len(keys))
		for _, k := range keys {
			doc.Attrs[k], _ = m.GraphAttr(k)
		}
	}
	return doc
}

// Dump encodes m as a model document.
func Dump(w io.Writer, m graph.Model) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromModel(m)); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return enc.Close()
}

// WriteFile dumps m to path.
func WriteFile(path string, m graph.Model) error {
	var buf bytes.Buffer
	if err := Dump(&buf, m); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
