// Package radix implements MycoKV's hierarchical key index: a tree over
// dotted path components used purely to enumerate descendants, with values
// held separately in a flat map keyed by the full dotted key.
package radix

import (
	"github.com/wvaviator/mycokv/internal/keypath"
	"github.com/wvaviator/mycokv/internal/mkverrors"
	"github.com/wvaviator/mycokv/internal/value"
)

// Node carries its own cumulative dotted key, so expiration bookkeeping and
// serialization never need to reconstruct it from a walk.
type Node struct {
	Key      string
	Children map[string]*Node
}

func newNode(key string) *Node {
	return &Node{Key: key, Children: make(map[string]*Node)}
}

// Index is the radix tree plus the flat value map it exists to serve.
// Index is not safe for concurrent use; the engine's lock is the only
// synchronization this package relies on.
type Index struct {
	root   *Node
	values map[string]value.Value
}

// New returns an empty index. The root's dotted key is the sentinel "_"
// and never holds a value.
func New() *Index {
	return &Index{
		root:   newNode(keypath.ValueSentinel),
		values: make(map[string]value.Value),
	}
}

// Put rejects any key with a reserved token, walks the tree creating
// missing nodes for each prefix, and replaces the value in the flat map.
// It returns the rendered text of the stored value.
func (idx *Index) Put(key string, v value.Value) (string, error) {
	if keypath.HasReservedToken(key) {
		return "", mkverrors.BadKey(key)
	}

	tokens := keypath.Split(key)
	cur := idx.root
	cumulative := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		cumulative = append(cumulative, tok)
		child, ok := cur.Children[tok]
		if !ok {
			child = newNode(keypath.Join(cumulative))
			cur.Children[tok] = child
		}
		cur = child
	}

	idx.values[key] = v
	return v.Render(), nil
}

// Has reports whether key is present in the flat value map.
func (idx *Index) Has(key string) bool {
	_, ok := idx.values[key]
	return ok
}

// Lookup returns the value stored at key, the same way Has checks for
// presence, for callers (such as CALC) that need the value itself rather
// than a JSON-encoded read.
func (idx *Index) Lookup(key string) (value.Value, bool) {
	v, ok := idx.values[key]
	return v, ok
}

// NodeExists reports whether a tree node exists for the dotted prefix,
// independent of whether it holds a value. An empty prefix refers to the
// root.
func (idx *Index) NodeExists(prefix string) bool {
	node := idx.root
	if prefix == "" {
		return true
	}
	for _, tok := range keypath.Split(prefix) {
		child, ok := node.Children[tok]
		if !ok {
			return false
		}
		node = child
	}
	return true
}

// AccessExists implements the existence check validation needs: direct
// reads require the key in the flat map, subtree reads require only that
// the prefix node exists.
func (idx *Index) AccessExists(access keypath.Access) bool {
	if access.Kind == keypath.Direct {
		return idx.Has(access.Prefix)
	}
	return idx.NodeExists(access.Prefix)
}

// Get resolves key according to its access shape and returns a
// JSON-marshalable value: the stored Value for a direct read, or a nested
// map for a subtree read.
func (idx *Index) Get(key string) (any, error) {
	access := keypath.ParseAccess(key)

	switch access.Kind {
	case keypath.Direct:
		v, ok := idx.values[access.Prefix]
		if !ok {
			return nil, mkverrors.NotFound(key)
		}
		return v, nil

	default:
		node := idx.root
		if access.Prefix != "" {
			for _, tok := range keypath.Split(access.Prefix) {
				child, ok := node.Children[tok]
				if !ok {
					return nil, mkverrors.NotFound(access.Prefix)
				}
				node = child
			}
		}

		depth := 0
		if access.Kind == keypath.DepthLimitedSubtree {
			depth = access.Depth
		}
		return idx.encode(node, depth), nil
	}
}

// encode implements the subtree JSON shape: a leaf emits its stored value
// (or null), an interior node emits an object keyed by child token plus the
// "_" sentinel for its own value, and a depth of 1 stops descending,
// omitting children with no direct value.
func (idx *Index) encode(n *Node, depth int) any {
	if len(n.Children) == 0 {
		v, ok := idx.values[n.Key]
		if !ok {
			return nil
		}
		return v
	}

	m := make(map[string]any, len(n.Children)+1)
	for tok, child := range n.Children {
		if depth == 1 {
			if v, ok := idx.values[child.Key]; ok {
				m[tok] = v
			}
			continue
		}

		nextDepth := 0
		if depth != 0 {
			nextDepth = depth - 1
		}
		m[tok] = idx.encode(child, nextDepth)
	}

	if v, ok := idx.values[n.Key]; ok {
		m[keypath.ValueSentinel] = v
	}

	return m
}

// Delete removes key from the flat map and prunes empty ancestor nodes
// bottom-up. It returns the removed value.
func (idx *Index) Delete(key string) (value.Value, error) {
	v, ok := idx.values[key]
	if !ok {
		return value.Value{}, mkverrors.NotFound(key)
	}
	delete(idx.values, key)

	tokens := keypath.Split(key)
	if len(tokens) > 0 {
		idx.prune(idx.root, tokens[0], tokens[1:])
	}

	return v, nil
}

// prune descends to the child named by token, recurses first so deeper
// nodes are pruned before their ancestors, then removes the child from
// parent if it ended up with no children and no value of its own.
func (idx *Index) prune(parent *Node, token string, rest []string) {
	child, ok := parent.Children[token]
	if !ok {
		return
	}

	if len(rest) > 0 {
		idx.prune(child, rest[0], rest[1:])
	}

	if len(child.Children) == 0 {
		if _, hasValue := idx.values[child.Key]; !hasValue {
			delete(parent.Children, token)
		}
	}
}

// Purge replaces both the tree and the flat map with empty ones.
func (idx *Index) Purge() {
	idx.root = newNode(keypath.ValueSentinel)
	idx.values = make(map[string]value.Value)
}
