// Package joinpath describes which association paths a query should join.
//
// A Tree is built by indexing and assigning, the way a nested literal would
// be written by hand:
//
//	t := joinpath.New()
//	t.Root().Index("a").Index("b").Set("c", nil)
//	t.Root().Index("a").Set("b", "d")
//	t.String() // [{a: {b: [c, d]}}]
//
// Indexing a key that holds no nested value returns a placeholder. The
// placeholder, and every placeholder above it, is linked into the tree the
// first time something is assigned below it; a placeholder that is never
// assigned to never shows up in Value.
package joinpath

import (
	"fmt"
	"reflect"
	"strings"
)

// List is the plain form of a node: leaf keys as strings and nested keys as
// single-key Maps, in order of first appearance.
type List []any

// Pair is one entry of a Map.
type Pair struct {
	Key   string
	Value any
}

// Map is an ordered mapping from key to a nested List or Map.
type Map []Pair

// leaf marks an entry without a nested node.
const leaf = -1

type entry struct {
	key   string
	child int
}

type node struct {
	parent  int
	key     string
	entries []entry
	// linked is set once the node is reachable from the root.
	linked bool
	// forward points to the node that took this placeholder's place when
	// another placeholder for the same path was linked first.
	forward int
}

// Tree is an append-only arena of nodes. The zero value is not usable; call
// New. A Tree is not safe for concurrent use.
type Tree struct {
	nodes []node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{nodes: []node{{parent: -1, linked: true, forward: -1}}}
}

// Root returns the root node.
func (t *Tree) Root() Node { return Node{t: t, id: 0} }

// Node is a handle to a node of a Tree.
type Node struct {
	t  *Tree
	id int
}

// Index returns the nested node under key. If key holds no nested node yet,
// the returned node is an unlinked placeholder.
func (n Node) Index(key string) Node {
	id := n.t.resolve(n.id)
	if i, ok := n.t.lookup(id, key); ok {
		if c := n.t.nodes[id].entries[i].child; c != leaf {
			return Node{t: n.t, id: c}
		}
	}
	n.t.nodes = append(n.t.nodes, node{parent: id, key: key, forward: -1})
	return Node{t: n.t, id: len(n.t.nodes) - 1}
}

// Set assigns v to key. v is nil (key becomes a leaf), a string or []string
// (leaves nested under key), a List or a Map (merged under key). Entries
// already present are never duplicated. Setting a nested value on a leaf
// turns the leaf into a branch at the same position.
func (n Node) Set(key string, v any) error {
	id := n.t.link(n.id)
	return n.t.set(id, key, v)
}

// Key returns the key the node is nested under.
func (n Node) Key() string { return n.t.nodes[n.t.resolve(n.id)].key }

// Linked reports whether the node is reachable from the root.
func (n Node) Linked() bool { return n.t.nodes[n.t.resolve(n.id)].linked }

// Path returns the keys from the root down to n.
func (n Node) Path() []string {
	var path []string
	for id := n.t.resolve(n.id); id > 0; id = n.t.resolve(n.t.nodes[id].parent) {
		path = append(path, n.t.nodes[id].key)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Child is one entry of a node.
type Child struct {
	Key  string
	Leaf bool
	Node Node // zero for leaves
}

// Children returns the entries of n in order.
func (n Node) Children() []Child {
	id := n.t.resolve(n.id)
	cs := make([]Child, 0, len(n.t.nodes[id].entries))
	for _, e := range n.t.nodes[id].entries {
		c := Child{Key: e.key, Leaf: e.child == leaf}
		if !c.Leaf {
			c.Node = Node{t: n.t, id: e.child}
		}
		cs = append(cs, c)
	}
	return cs
}

func (t *Tree) resolve(id int) int {
	for t.nodes[id].forward >= 0 {
		id = t.nodes[id].forward
	}
	return id
}

func (t *Tree) lookup(id int, key string) (int, bool) {
	for i, e := range t.nodes[id].entries {
		if e.key == key {
			return i, true
		}
	}
	return -1, false
}

// link splices a placeholder and its unlinked ancestors into the tree and
// returns the id that now represents it.
func (t *Tree) link(id int) int {
	id = t.resolve(id)
	if t.nodes[id].linked {
		return id
	}
	parent := t.link(t.nodes[id].parent)
	key := t.nodes[id].key
	if i, ok := t.lookup(parent, key); ok {
		if c := t.nodes[parent].entries[i].child; c != leaf {
			t.nodes[id].forward = c
			return c
		}
		t.nodes[parent].entries[i].child = id
	} else {
		t.nodes[parent].entries = append(t.nodes[parent].entries, entry{key: key, child: id})
	}
	t.nodes[id].parent = parent
	t.nodes[id].linked = true
	return id
}

// branch returns the nested node under key, creating it or upgrading a leaf.
func (t *Tree) branch(id int, key string) int {
	i, ok := t.lookup(id, key)
	if ok {
		if c := t.nodes[id].entries[i].child; c != leaf {
			return c
		}
	}
	t.nodes = append(t.nodes, node{parent: id, key: key, linked: true, forward: -1})
	c := len(t.nodes) - 1
	if ok {
		t.nodes[id].entries[i].child = c
	} else {
		t.nodes[id].entries = append(t.nodes[id].entries, entry{key: key, child: c})
	}
	return c
}

func (t *Tree) addLeaf(id int, key string) {
	if _, ok := t.lookup(id, key); !ok {
		t.nodes[id].entries = append(t.nodes[id].entries, entry{key: key, child: leaf})
	}
}

func (t *Tree) set(id int, key string, v any) error {
	switch v := v.(type) {
	case nil:
		t.addLeaf(id, key)
	case string:
		t.addLeaf(t.branch(id, key), v)
	case []string:
		c := t.branch(id, key)
		for _, s := range v {
			t.addLeaf(c, s)
		}
	case List:
		return t.merge(t.branch(id, key), v)
	case []any:
		return t.merge(t.branch(id, key), v)
	case Map:
		return t.mergeMap(t.branch(id, key), v)
	default:
		return fmt.Errorf("joinpath: unsupported value %T for key %q", v, key)
	}
	return nil
}

func (t *Tree) merge(id int, l []any) error {
	for _, el := range l {
		switch el := el.(type) {
		case string:
			t.addLeaf(id, el)
		case Map:
			if err := t.mergeMap(id, el); err != nil {
				return err
			}
		default:
			return fmt.Errorf("joinpath: unsupported list element %T", el)
		}
	}
	return nil
}

func (t *Tree) mergeMap(id int, m Map) error {
	for _, p := range m {
		if err := t.set(id, p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the plain nested form of the tree. The root is always a List.
// A node holding only leaves becomes a List of strings, a node holding only
// nested keys becomes a Map, and a mixed node becomes a List of leaves and
// single-key Maps.
func (t *Tree) Value() List { return t.list(0) }

func (t *Tree) list(id int) List {
	out := make(List, 0, len(t.nodes[id].entries))
	for _, e := range t.nodes[id].entries {
		if e.child == leaf {
			out = append(out, e.key)
			continue
		}
		out = append(out, Map{{Key: e.key, Value: t.value(e.child)}})
	}
	return out
}

func (t *Tree) value(id int) any {
	var leaves, nested int
	for _, e := range t.nodes[id].entries {
		if e.child == leaf {
			leaves++
		} else {
			nested++
		}
	}
	if leaves > 0 || nested == 0 {
		return t.list(id)
	}
	m := make(Map, 0, nested)
	for _, e := range t.nodes[id].entries {
		m = append(m, Pair{Key: e.key, Value: t.value(e.child)})
	}
	return m
}

// FromValue builds a tree from a plain nested value: a string, []string,
// List, []any or Map.
func FromValue(v any) (*Tree, error) {
	t := New()
	var err error
	switch v := v.(type) {
	case nil:
	case string:
		t.addLeaf(0, v)
	case []string:
		for _, s := range v {
			t.addLeaf(0, s)
		}
	case List:
		err = t.merge(0, v)
	case []any:
		err = t.merge(0, v)
	case Map:
		err = t.mergeMap(0, v)
	case *Tree:
		return v, nil
	default:
		err = fmt.Errorf("joinpath: unsupported value %T", v)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Equal reports whether the tree describes the same paths, in the same
// order, as the plain value v.
func (t *Tree) Equal(v any) bool {
	o, err := FromValue(v)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(t.Value(), o.Value())
}

// Parse builds a tree from a comma separated list of dotted paths, such as
// "products.order_details.order,products.shipper".
func Parse(expr string) (*Tree, error) {
	t := New()
	for _, p := range strings.Split(expr, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		keys := strings.Split(p, ".")
		n := t.Root()
		for i, k := range keys {
			if k == "" {
				return nil, fmt.Errorf("joinpath: empty key in %q", p)
			}
			if i < len(keys)-1 {
				n = n.Index(k)
			}
		}
		if err := n.Set(keys[len(keys)-1], nil); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Walk calls fn for every entry of the tree, parents before children.
func (t *Tree) Walk(fn func(path []string, leaf bool) error) error {
	return t.walk(0, nil, fn)
}

func (t *Tree) walk(id int, prefix []string, fn func([]string, bool) error) error {
	for _, e := range t.nodes[id].entries {
		path := append(append([]string(nil), prefix...), e.key)
		if err := fn(path, e.child == leaf); err != nil {
			return err
		}
		if e.child != leaf {
			if err := t.walk(e.child, path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Paths returns the dotted path of every entry, parents before children.
func (t *Tree) Paths() []string {
	var paths []string
	_ = t.Walk(func(path []string, _ bool) error {
		paths = append(paths, strings.Join(path, "."))
		return nil
	})
	return paths
}

// String renders the tree as [{a: {b: [c, d]}}].
func (t *Tree) String() string {
	var b strings.Builder
	format(&b, t.Value())
	return b.String()
}

func format(b *strings.Builder, v any) {
	switch v := v.(type) {
	case List:
		b.WriteByte('[')
		for i, el := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, el)
		}
		b.WriteByte(']')
	case Map:
		b.WriteByte('{')
		for i, p := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Key)
			b.WriteString(": ")
			format(b, p.Value)
		}
		b.WriteByte('}')
	default:
		fmt.Fprint(b, v)
	}
}
