package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is a decoded API description. JSON and YAML inputs both decode into
// yaml.v3 nodes so that mapping order (paths, methods, status codes, headers)
// is preserved exactly as written.
type Document struct {
	// Location is the absolute file path or URL the document came from, or "".
	Location string
	// Raw holds the undecoded bytes, used for strict validation.
	Raw []byte

	root *yaml.Node
}

// Parse decodes YAML or JSON bytes into a Document. The top-level value must
// be a mapping.
func Parse(data []byte) (*Document, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	root := unwrap(&n)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse spec: top-level value is not an object")
	}
	return &Document{Raw: data, root: root}, nil
}

// Root returns the top-level mapping.
func (d *Document) Root() Node {
	if d == nil {
		return Node{}
	}
	return Node{n: d.root}
}

// Node is a read-only view over one value of a Document. The zero Node stands
// for an absent value; every accessor on it returns a zero result.
type Node struct {
	n *yaml.Node
}

// Pair is one key/value entry of a mapping, in document order.
type Pair struct {
	Key   string
	Value Node
}

func unwrap(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func (n Node) node() *yaml.Node { return unwrap(n.n) }

// Exists reports whether the value is present (an explicit null counts as present).
func (n Node) Exists() bool { return n.node() != nil }

func (n Node) IsMap() bool {
	y := n.node()
	return y != nil && y.Kind == yaml.MappingNode
}

func (n Node) IsSeq() bool {
	y := n.node()
	return y != nil && y.Kind == yaml.SequenceNode
}

func (n Node) isNull() bool {
	y := n.node()
	return y != nil && y.Kind == yaml.ScalarNode && y.Tag == "!!null"
}

// Get returns the value stored under key, or the zero Node.
func (n Node) Get(key string) Node {
	y := n.node()
	if y == nil || y.Kind != yaml.MappingNode {
		return Node{}
	}
	for i := 0; i+1 < len(y.Content); i += 2 {
		if k := unwrap(y.Content[i]); k != nil && k.Value == key {
			return Node{n: y.Content[i+1]}
		}
	}
	return Node{}
}

// Path follows a sequence of mapping keys.
func (n Node) Path(keys ...string) Node {
	for _, k := range keys {
		n = n.Get(k)
	}
	return n
}

// Scalar returns the value of a non-null scalar and true, or "" and false.
func (n Node) Scalar() (string, bool) {
	y := n.node()
	if y == nil || y.Kind != yaml.ScalarNode || n.isNull() {
		return "", false
	}
	return y.Value, true
}

// Text returns the scalar value, or "" for anything else.
func (n Node) Text() string {
	s, _ := n.Scalar()
	return s
}

// Pairs returns the entries of a mapping in document order, or nil.
func (n Node) Pairs() []Pair {
	y := n.node()
	if y == nil || y.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]Pair, 0, len(y.Content)/2)
	for i := 0; i+1 < len(y.Content); i += 2 {
		k := unwrap(y.Content[i])
		if k == nil || k.Kind != yaml.ScalarNode {
			continue
		}
		out = append(out, Pair{Key: k.Value, Value: Node{n: y.Content[i+1]}})
	}
	return out
}

// Keys returns the mapping keys in document order.
func (n Node) Keys() []string {
	pairs := n.Pairs()
	if pairs == nil {
		return nil
	}
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}
	return keys
}

// Items returns the elements of a sequence, or nil.
func (n Node) Items() []Node {
	y := n.node()
	if y == nil || y.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]Node, len(y.Content))
	for i, c := range y.Content {
		out[i] = Node{n: c}
	}
	return out
}

// Strings returns the scalar elements of a sequence, skipping anything else.
func (n Node) Strings() []string {
	items := n.Items()
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.Scalar(); ok {
			out = append(out, s)
		}
	}
	return out
}
