package spec

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxRefDepth bounds nested $ref expansion for deep but non-circular documents.
const MaxRefDepth = 100

// FetchFunc loads the bytes behind an absolute file path or http(s) URL.
type FetchFunc func(ctx context.Context, location string) ([]byte, error)

type dereferencer struct {
	ctx       context.Context
	fetch     FetchFunc
	docs      map[string]*yaml.Node
	resolving map[string]bool
}

// Dereference replaces every "$ref" object in doc with a copy of its target,
// in place. Local refs ("#/paths/~1pets") are resolved against the document
// itself; other refs are loaded through fetch relative to doc.Location. A nil
// fetch restricts resolution to local refs. Circular refs are left in place.
func Dereference(ctx context.Context, doc *Document, fetch FetchFunc) error {
	if doc == nil || doc.root == nil {
		return nil
	}
	d := &dereferencer{
		ctx:       ctx,
		fetch:     fetch,
		docs:      map[string]*yaml.Node{doc.Location: doc.root},
		resolving: make(map[string]bool),
	}
	if err := d.walk(doc.root, doc.Location, 0); err != nil {
		return &SpecError{Code: ReferenceError, Message: err.Error(), Location: doc.Location, JSONPointer: refOfError(err), Cause: err}
	}
	return nil
}

type refError struct {
	ref string
	err error
}

func (e *refError) Error() string { return fmt.Sprintf("resolve $ref %q: %v", e.ref, e.err) }
func (e *refError) Unwrap() error { return e.err }

func refOfError(err error) string {
	var re *refError
	if errors.As(err, &re) {
		return re.ref
	}
	return ""
}

func (d *dereferencer) walk(n *yaml.Node, loc string, depth int) error {
	if depth > MaxRefDepth {
		return fmt.Errorf("structure nested deeper than %d levels", MaxRefDepth)
	}
	switch n.Kind {
	case yaml.MappingNode:
		if ref, ok := refOf(n); ok {
			return d.expand(n, ref, loc, depth)
		}
		for i := 1; i < len(n.Content); i += 2 {
			if err := d.walk(n.Content[i], loc, depth+1); err != nil {
				return err
			}
		}
	case yaml.SequenceNode, yaml.DocumentNode:
		for _, c := range n.Content {
			if err := d.walk(c, loc, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *dereferencer) expand(n *yaml.Node, ref, loc string, depth int) error {
	if ref == "#" || ref == "#/" {
		return nil
	}
	target, targetLoc, err := d.lookup(ref, loc)
	if err != nil {
		return &refError{ref: ref, err: err}
	}
	key := targetLoc + "#" + fragmentOf(ref)
	if d.resolving[key] {
		return nil
	}
	*n = *copyNode(target)

	d.resolving[key] = true
	err = d.walk(n, targetLoc, depth+1)
	delete(d.resolving, key)
	return err
}

func refOf(n *yaml.Node) (string, bool) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "$ref" {
			v := unwrap(n.Content[i+1])
			if v == nil || v.Kind != yaml.ScalarNode {
				return "", false
			}
			return v.Value, true
		}
	}
	return "", false
}

func fragmentOf(ref string) string {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[i+1:]
	}
	return ""
}

func (d *dereferencer) lookup(ref, loc string) (*yaml.Node, string, error) {
	docPart, frag := ref, ""
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		docPart, frag = ref[:i], ref[i+1:]
	}
	targetLoc := loc
	if docPart != "" {
		resolved, err := resolveLocation(loc, docPart)
		if err != nil {
			return nil, "", err
		}
		targetLoc = resolved
	}
	root, err := d.document(targetLoc)
	if err != nil {
		return nil, "", err
	}
	target, err := pointerLookup(root, frag)
	if err != nil {
		return nil, "", err
	}
	return target, targetLoc, nil
}

func (d *dereferencer) document(loc string) (*yaml.Node, error) {
	if root, ok := d.docs[loc]; ok {
		return root, nil
	}
	if d.fetch == nil {
		return nil, fmt.Errorf("external reference to %s is not allowed", loc)
	}
	data, err := d.fetch(d.ctx, loc)
	if err != nil {
		return nil, err
	}
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse %s: %w", loc, err)
	}
	root := unwrap(&n)
	if root == nil {
		return nil, fmt.Errorf("%s is empty", loc)
	}
	d.docs[loc] = root
	return root, nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// resolveLocation resolves ref against the location of the referring document.
func resolveLocation(base, ref string) (string, error) {
	if isHTTPURL(ref) {
		return ref, nil
	}
	if isHTTPURL(base) {
		b, err := url.Parse(base)
		if err != nil {
			return "", err
		}
		r, err := url.Parse(ref)
		if err != nil {
			return "", err
		}
		return b.ResolveReference(r).String(), nil
	}
	if strings.HasPrefix(strings.ToLower(ref), "file://") {
		return "", fmt.Errorf("file:// references are not supported")
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), nil
	}
	if base == "" {
		return filepath.Abs(ref)
	}
	return filepath.Join(filepath.Dir(base), ref), nil
}

// pointerLookup evaluates a JSON Pointer fragment against root.
func pointerLookup(root *yaml.Node, frag string) (*yaml.Node, error) {
	frag, err := url.PathUnescape(frag)
	if err != nil {
		return nil, fmt.Errorf("invalid pointer %q: %w", frag, err)
	}
	if frag == "" || frag == "/" {
		return root, nil
	}
	if !strings.HasPrefix(frag, "/") {
		return nil, fmt.Errorf("unsupported pointer %q", frag)
	}
	cur := root
	parts := strings.Split(frag[1:], "/")
	for i, part := range parts {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		cur = unwrap(cur)
		var next *yaml.Node
		switch {
		case cur == nil:
		case cur.Kind == yaml.MappingNode:
			for j := 0; j+1 < len(cur.Content); j += 2 {
				if cur.Content[j].Value == part {
					next = cur.Content[j+1]
					break
				}
			}
		case cur.Kind == yaml.SequenceNode:
			if idx, err := strconv.Atoi(part); err == nil && idx >= 0 && idx < len(cur.Content) {
				next = cur.Content[idx]
			}
		}
		if next == nil {
			return nil, fmt.Errorf("reference not found: #/%s", strings.Join(parts[:i+1], "/"))
		}
		cur = next
	}
	if cur = unwrap(cur); cur == nil {
		return nil, fmt.Errorf("reference %q points at an empty value", frag)
	}
	return cur, nil
}

func copyNode(n *yaml.Node) *yaml.Node {
	c := *n
	if n.Kind == yaml.AliasNode || len(n.Content) == 0 {
		return &c
	}
	c.Content = make([]*yaml.Node, len(n.Content))
	for i, child := range n.Content {
		c.Content[i] = copyNode(child)
	}
	return &c
}
