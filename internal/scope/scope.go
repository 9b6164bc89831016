// Package scope tracks the namespace bound to each prefix while elements nest.
package scope

import (
	"errors"

	"github.com/jacoelho/fastinfoset/internal/vocab"
)

// ErrNotInScope reports a qualified name whose namespace differs from the
// binding currently in scope for its prefix.
var ErrNotInScope = errors.New("qualified name not in scope")

// ErrReservedPrefix reports an attempt to rebind the xml or xmlns prefixes.
var ErrReservedPrefix = errors.New("reserved prefix cannot be declared")

// ErrDuplicatePrefix reports a prefix declared twice by the same element.
var ErrDuplicatePrefix = errors.New("prefix declared twice on one element")

// Binding is a prefix declaration pushed by an element.
type Binding struct {
	Prefix    string
	Namespace string
	// Unbound marks an undeclaration, which hides outer bindings of the prefix.
	Unbound bool
}

// Tracker holds the prefix bindings of the open elements.
// Bindings are pushed in declaration order and popped in reverse.
type Tracker struct {
	bindings []Binding
	marks    []int
	current  map[string][]int
}

// Reset drops every binding.
func (t *Tracker) Reset() {
	clear(t.bindings)
	t.bindings = t.bindings[:0]
	t.marks = t.marks[:0]
	clear(t.current)
}

// Open starts the bindings of a new element.
func (t *Tracker) Open() {
	t.marks = append(t.marks, len(t.bindings))
}

// Declare binds prefix to namespace for the element opened last.
// An empty namespace with a non-empty prefix undeclares the prefix.
func (t *Tracker) Declare(prefix, namespace string) error {
	if prefix == "xmlns" || (prefix == vocab.XMLPrefix && namespace != vocab.XMLNamespace) {
		return ErrReservedPrefix
	}
	if t.current == nil {
		t.current = make(map[string][]int)
	}
	if stack := t.current[prefix]; len(stack) > 0 && len(t.marks) > 0 && stack[len(stack)-1] >= t.marks[len(t.marks)-1] {
		return ErrDuplicatePrefix
	}
	b := Binding{Prefix: prefix, Namespace: namespace, Unbound: prefix != "" && namespace == ""}
	t.bindings = append(t.bindings, b)
	t.current[prefix] = append(t.current[prefix], len(t.bindings)-1)
	return nil
}

// Declared returns the bindings pushed by the element opened last.
func (t *Tracker) Declared() []Binding {
	if len(t.marks) == 0 {
		return nil
	}
	return t.bindings[t.marks[len(t.marks)-1]:]
}

// Close pops the bindings of the element opened last and returns them in
// reverse declaration order. The result is only valid until the next call.
func (t *Tracker) Close() []Binding {
	if len(t.marks) == 0 {
		return nil
	}
	mark := t.marks[len(t.marks)-1]
	t.marks = t.marks[:len(t.marks)-1]
	popped := t.bindings[mark:]
	for i := len(popped) - 1; i >= 0; i-- {
		stack := t.current[popped[i].Prefix]
		t.current[popped[i].Prefix] = stack[:len(stack)-1]
	}
	t.bindings = t.bindings[:mark]
	for i, j := 0, len(popped)-1; i < j; i, j = i+1, j-1 {
		popped[i], popped[j] = popped[j], popped[i]
	}
	return popped
}

// Lookup returns the namespace bound to prefix.
func (t *Tracker) Lookup(prefix string) (string, bool) {
	if prefix == vocab.XMLPrefix {
		return vocab.XMLNamespace, true
	}
	stack := t.current[prefix]
	if len(stack) == 0 {
		if prefix == "" {
			return "", true
		}
		return "", false
	}
	b := t.bindings[stack[len(stack)-1]]
	if b.Unbound {
		return "", false
	}
	return b.Namespace, true
}

// Check reports whether namespace is the binding in scope for prefix.
// Names without a prefix and without a namespace are always in scope.
func (t *Tracker) Check(prefix, namespace string) error {
	if prefix == "" && namespace == "" {
		if ns, _ := t.Lookup(""); ns != "" {
			return ErrNotInScope
		}
		return nil
	}
	ns, ok := t.Lookup(prefix)
	if !ok || ns != namespace {
		return ErrNotInScope
	}
	return nil
}

// Depth returns the number of open elements.
func (t *Tracker) Depth() int {
	return len(t.marks)
}
