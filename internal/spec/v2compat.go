package spec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"gopkg.in/yaml.v3"
)

var v2OperationKeys = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true,
}

// decodeV2 turns a dereferenced Swagger 2.0 tree into kin-openapi's model,
// after rewriting the body parameter shapes openapi2conv cannot convert.
// root is not modified.
func decodeV2(root *yaml.Node) (*openapi2.T, error) {
	tree := copyNode(root)
	normalizeV2Bodies(tree)
	v, err := nodeValue(tree)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var t openapi2.T
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// normalizeV2Bodies rewrites non-compliant Swagger 2.0 operations in place:
//   - an operation mixing body and formData parameters gets every body
//     parameter turned into a formData one and consumes multipart/form-data;
//   - an operation with several body parameters gets them merged into one
//     body parameter whose schema is an object with a property per original.
//
// It reports whether anything changed.
func normalizeV2Bodies(root *yaml.Node) bool {
	paths := unwrap(mapGet(root, "paths"))
	if paths == nil || paths.Kind != yaml.MappingNode {
		return false
	}
	modified := false
	for i := 1; i < len(paths.Content); i += 2 {
		item := unwrap(paths.Content[i])
		if item == nil || item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			if !v2OperationKeys[strings.ToLower(item.Content[j].Value)] {
				continue
			}
			op := unwrap(item.Content[j+1])
			if op == nil || op.Kind != yaml.MappingNode {
				continue
			}
			if normalizeV2Operation(op) {
				modified = true
			}
		}
	}
	return modified
}

func normalizeV2Operation(op *yaml.Node) bool {
	params := unwrap(mapGet(op, "parameters"))
	if params == nil || params.Kind != yaml.SequenceNode {
		return false
	}

	bodyCount, hasFormData := 0, false
	for _, p := range params.Content {
		switch strings.ToLower(scalarAt(p, "in")) {
		case "body":
			bodyCount++
		case "formdata":
			hasFormData = true
		}
	}
	if bodyCount == 0 || (bodyCount == 1 && !hasFormData) {
		return false
	}

	if hasFormData {
		out := make([]*yaml.Node, 0, len(params.Content))
		for _, p := range params.Content {
			if strings.EqualFold(scalarAt(p, "in"), "body") {
				out = append(out, formDataFromBodyParam(unwrap(p)))
				continue
			}
			out = append(out, p)
		}
		mapSet(op, "parameters", sequenceNode(out...))

		consumes := unwrap(mapGet(op, "consumes"))
		if consumes == nil || consumes.Kind != yaml.SequenceNode {
			consumes = sequenceNode()
		}
		found := false
		for _, c := range consumes.Content {
			if c.Value == "multipart/form-data" {
				found = true
			}
		}
		if !found {
			consumes = sequenceNode(append(consumes.Content, stringNode("multipart/form-data"))...)
		}
		mapSet(op, "consumes", consumes)
		return true
	}

	props := mappingNode()
	required := sequenceNode()
	rest := make([]*yaml.Node, 0, len(params.Content))
	for _, p := range params.Content {
		if !strings.EqualFold(scalarAt(p, "in"), "body") {
			rest = append(rest, p)
			continue
		}
		pm := unwrap(p)
		name := scalarAt(pm, "name")
		if name == "" {
			name = "field"
		}
		schema := schemaOfParam(pm)
		if schema == nil {
			schema = mappingNode(stringNode("type"), stringNode("string"))
		}
		props.Content = append(props.Content, stringNode(name), schema)
		if scalarAt(pm, "required") == "true" {
			required.Content = append(required.Content, stringNode(name))
		}
	}
	bodySchema := mappingNode(stringNode("type"), stringNode("object"), stringNode("properties"), props)
	if len(required.Content) > 0 {
		bodySchema.Content = append(bodySchema.Content, stringNode("required"), required)
	}
	merged := mappingNode(
		stringNode("in"), stringNode("body"),
		stringNode("name"), stringNode("body"),
		stringNode("schema"), bodySchema,
	)
	mapSet(op, "parameters", sequenceNode(append([]*yaml.Node{merged}, rest...)...))
	return true
}

// schemaOfParam returns the parameter's schema, or one synthesized from its
// type, items and format.
func schemaOfParam(pm *yaml.Node) *yaml.Node {
	if s := unwrap(mapGet(pm, "schema")); s != nil && s.Kind == yaml.MappingNode {
		return s
	}
	typ := scalarAt(pm, "type")
	if typ == "" {
		return nil
	}
	m := mappingNode(stringNode("type"), stringNode(typ))
	if items := unwrap(mapGet(pm, "items")); items != nil && items.Kind == yaml.MappingNode {
		m.Content = append(m.Content, stringNode("items"), items)
	}
	if f := scalarAt(pm, "format"); f != "" {
		m.Content = append(m.Content, stringNode("format"), stringNode(f))
	}
	return m
}

func formDataFromBodyParam(pm *yaml.Node) *yaml.Node {
	name := scalarAt(pm, "name")
	if name == "" {
		name = "field"
	}
	out := mappingNode(stringNode("in"), stringNode("formData"), stringNode("name"), stringNode(name))
	if desc := scalarAt(pm, "description"); desc != "" {
		out.Content = append(out.Content, stringNode("description"), stringNode(desc))
	}
	if req := unwrap(mapGet(pm, "required")); req != nil && req.Kind == yaml.ScalarNode {
		out.Content = append(out.Content, stringNode("required"), req)
	}

	// A referenced object cannot be a form field; degrade to string.
	var typ, format string
	var items *yaml.Node
	if sch := unwrap(mapGet(pm, "schema")); sch != nil && sch.Kind == yaml.MappingNode {
		typ, format = scalarAt(sch, "type"), scalarAt(sch, "format")
		items = unwrap(mapGet(sch, "items"))
	} else {
		typ, format = scalarAt(pm, "type"), scalarAt(pm, "format")
		items = unwrap(mapGet(pm, "items"))
	}
	if typ == "" || typ == "object" {
		typ = "string"
		items = nil
	}
	out.Content = append(out.Content, stringNode("type"), stringNode(typ))
	if items != nil && items.Kind == yaml.MappingNode {
		out.Content = append(out.Content, stringNode("items"), items)
	}
	if format != "" {
		out.Content = append(out.Content, stringNode("format"), stringNode(format))
	}
	return out
}

// nodeValue converts a node tree into plain maps, slices and scalars that
// encoding/json can marshal. Mapping keys are always kept as strings, so
// unquoted status codes such as 200 survive.
func nodeValue(n *yaml.Node) (any, error) {
	n = unwrap(n)
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return m, nil
	case yaml.SequenceNode:
		s := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		return s, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

func mapGet(m *yaml.Node, key string) *yaml.Node {
	m = unwrap(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func mapSet(m *yaml.Node, key string, v *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = v
			return
		}
	}
	m.Content = append(m.Content, stringNode(key), v)
}

// scalarAt returns the scalar value under key, or "".
func scalarAt(m *yaml.Node, key string) string {
	if v := unwrap(mapGet(m, key)); v != nil && v.Kind == yaml.ScalarNode {
		return v.Value
	}
	return ""
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func mappingNode(kv ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: kv}
}

func sequenceNode(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}
