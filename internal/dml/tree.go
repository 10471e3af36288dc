// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dml implements the DML configuration tree (spec §4.A): a
// tagged attribute tree loaded from one or more DML source files,
// with _extends/_find reference expansion and keypath lookup.
//
// Nodes live in an arena and are addressed by a stable Index rather
// than a pointer, per Design Note 9 — this removes the original's
// reference-counted nodes and raw parent back-pointers without
// changing the tree's O(1) access characteristics.
package dml

// Kind distinguishes a leaf string attribute from a nested list.
type Kind int

const (
	KindString Kind = iota
	KindList
)

func (k Kind) String() string {
	if k == KindList {
		return "list"
	}
	return "string"
}

// KeyTag marks the four special attribute-key forms the expansion
// algorithm treats specially, plus the ordinary identifier case.
type KeyTag int

const (
	KeyIdent KeyTag = iota
	KeyRoot
	KeyExtends
	KeyFind
	KeySchema
)

func (t KeyTag) String() string {
	switch t {
	case KeyRoot:
		return "root"
	case KeyExtends:
		return "_extends"
	case KeyFind:
		return "_find"
	case KeySchema:
		return "_schema"
	default:
		return "ident"
	}
}

// Index addresses a Node within a Tree's arena. NilIndex means "no node".
type Index int

const NilIndex Index = -1

// Location is the source position of a node, for error reporting.
type Location struct {
	File       string
	Line       int
	Column     int
	StartByte  int
	EndByte    int
}

// Node is one element of the configuration tree. Exactly one of
// Value (KindString) or Children (KindList) is meaningful, selected
// by Kind.
type Node struct {
	Kind   Kind
	KeyTag KeyTag
	Key    string // interned
	Value  string // interned; valid only when Kind == KindString

	Children []Index // insertion order; duplicate keys are legal

	Parent Index

	// ExpansionLink is the resolved target of an _extends/_find node,
	// set during the expansion pass. NilIndex until resolved.
	ExpansionLink Index

	// Expanding is the transient cycle-detection flag from Design
	// Note 9: set while a traversal is inside this node's expansion
	// link, cleared on the way back out.
	Expanding bool

	Location Location
}

// Tree is the arena plus the owning string table. It corresponds to
// the original's global-singleton ConfigContext, made explicit per
// Design Note 9: callers thread a *Tree through load and query calls
// rather than reaching for package state.
type Tree struct {
	nodes   []Node
	root    Index
	Strings *StringTable
}

// NewTree creates an empty tree with a single root List node.
func NewTree() *Tree {
	t := &Tree{Strings: NewStringTable()}
	root := t.alloc(Node{
		Kind:          KindList,
		KeyTag:        KeyRoot,
		ExpansionLink: NilIndex,
		Parent:        NilIndex,
	})
	t.root = root
	return t
}

// Root returns the index of the tree's root List node.
func (t *Tree) Root() Index { return t.root }

// Node returns a pointer into the arena. The pointer is valid until
// the next node is appended to the arena (only NewTree and the parser
// inside Load append nodes).
func (t *Tree) Node(i Index) *Node {
	if i == NilIndex {
		return nil
	}
	return &t.nodes[i]
}

func (t *Tree) alloc(n Node) Index {
	t.nodes = append(t.nodes, n)
	return Index(len(t.nodes) - 1)
}

// addChild appends child to parent's Children list and sets child's Parent.
func (t *Tree) addChild(parent, child Index) {
	t.nodes[child].Parent = parent
	p := &t.nodes[parent]
	p.Children = append(p.Children, child)
}

// NodeCount reports the number of nodes currently in the arena,
// including the root.
func (t *Tree) NodeCount() int { return len(t.nodes) }
