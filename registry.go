package methodcache

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

var methodNameRx = regexp.MustCompile(`^[_$a-zA-Z][$\w]*(?:\.[_$a-zA-Z][$\w]*)*$`)

// node is either a namespace (children set) or a leaf (method set), never both.
type node struct {
	children map[string]*node
	method   *Method
}

func newNamespace() *node { return &node{children: make(map[string]*node)} }

func (n *node) leaf() bool { return n.method != nil }

// tree resolves dotted names to methods. Lookups and walks may run
// concurrently with assign.
type tree struct {
	mu   sync.RWMutex
	root *node
}

func newTree() *tree { return &tree{root: newNamespace()} }

// check reports why name cannot be assigned, without mutating the tree.
func (t *tree) check(name string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.checkLocked(name)
}

func (t *tree) checkLocked(name string) error {
	if !methodNameRx.MatchString(name) {
		return ErrInvalidName
	}
	n := t.root
	for _, seg := range strings.Split(name, ".") {
		next, ok := n.children[seg]
		if !ok {
			return nil
		}
		if next.leaf() {
			return ErrMethodExists
		}
		n = next
	}
	// the full path is an existing namespace
	return ErrMethodExists
}

func (t *tree) assign(name string, m *Method) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(name); err != nil {
		return err
	}
	path := strings.Split(name, ".")
	n := t.root
	for _, seg := range path[:len(path)-1] {
		next, ok := n.children[seg]
		if !ok {
			next = newNamespace()
			n.children[seg] = next
		}
		n = next
	}
	n.children[path[len(path)-1]] = &node{method: m}
	return nil
}

func (t *tree) lookup(name string) (*Method, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.root
	for _, seg := range strings.Split(name, ".") {
		if n.leaf() {
			return nil, false
		}
		next, ok := n.children[seg]
		if !ok {
			return nil, false
		}
		n = next
	}
	if !n.leaf() {
		return nil, false
	}
	return n.method, true
}

// walk visits every leaf in name order. fn runs outside the lock and may
// register methods; those are not visited.
func (t *tree) walk(fn func(*Method)) {
	for _, m := range t.methods() {
		fn(m)
	}
}

func (t *tree) methods() []*Method {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Method
	var visit func(n *node)
	visit = func(n *node) {
		if n.leaf() {
			out = append(out, n.method)
			return
		}
		keys := make([]string, 0, len(n.children))
		for k := range n.children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			visit(n.children[k])
		}
	}
	visit(t.root)
	return out
}
