// Package index builds the symbol index of a Ruby buffer with tree-sitter.
//
// Names follow the usual Ruby outline conventions: nested classes and
// modules are joined with "::", instance methods with "#", singleton
// methods with ".". Entries are emitted in document order.
package index

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"rtp/internal/locator"
)

var whitespace = regexp.MustCompile(`\s+`)

// Indexer extracts class, module and method entries from Ruby source.
type Indexer struct{}

// NewIndexer creates a new Indexer
func NewIndexer() *Indexer {
	return &Indexer{}
}

// Build parses src and returns its entries in document order.
func (ix *Indexer) Build(ctx context.Context, src []byte) ([]locator.Entry, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(ruby.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse ruby source: %w", err)
	}
	defer tree.Close()

	w := &walker{src: src}
	w.walk(tree.RootNode(), scope{})
	return w.entries, nil
}

type scope struct {
	name      string // enclosing class or module, "" at top level
	singleton bool   // inside class << self
}

func (s scope) nest(name string) string {
	if s.name == "" {
		return name
	}
	return s.name + "::" + name
}

type walker struct {
	src     []byte
	entries []locator.Entry
}

func (w *walker) emit(name string, node *sitter.Node) {
	w.entries = append(w.entries, locator.Entry{Name: name, Offset: int(node.StartByte())})
}

func (w *walker) walk(node *sitter.Node, sc scope) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "class", "module":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			break
		}
		name := sc.nest(nameNode.Content(w.src))
		w.emit(name, node)
		w.walkChildren(node, scope{name: name}, nameNode)
		return

	case "singleton_class":
		w.walkChildren(node, scope{name: sc.name, singleton: true}, node.ChildByFieldName("value"))
		return

	case "method":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		sep := "#"
		if sc.singleton {
			sep = "."
		}
		w.emit(qualify(sc.name, sep, nameNode.Content(w.src)), node)
		return

	case "singleton_method":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		w.emit(qualify(sc.name, ".", nameNode.Content(w.src)), node)
		return

	case "call":
		if name, ok := w.declarativeTest(node); ok {
			w.emit(qualify(sc.name, "#", name), node)
			return
		}
	}

	w.walkChildren(node, sc, nil)
}

func (w *walker) walkChildren(node *sitter.Node, sc scope, skip *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if skip != nil && sameNode(child, skip) {
			continue
		}
		w.walk(child, sc)
	}
}

// declarativeTest recognises `test "does something" do ... end` and returns
// the method name the test framework defines for it.
func (w *walker) declarativeTest(node *sitter.Node) (string, bool) {
	if node.ChildByFieldName("receiver") != nil {
		return "", false
	}
	method := node.ChildByFieldName("method")
	if method == nil || method.Content(w.src) != "test" {
		return "", false
	}
	if node.ChildByFieldName("block") == nil {
		return "", false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", false
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return "", false
	}

	desc := unquote(first.Content(w.src))
	if desc == "" {
		return "", false
	}
	return TestMethodName(desc), true
}

// TestMethodName converts a declarative test description into the method
// name Rails defines for it.
func TestMethodName(desc string) string {
	return "test_" + whitespace.ReplaceAllString(desc, "_")
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func qualify(owner, sep, name string) string {
	if owner == "" {
		return name
	}
	return owner + sep + name
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
