// Package scope tracks lambda parameter bindings while a query compiles.
//
// Each any/all sub-predicate introduces one binding: the lambda parameter
// name, the join alias standing for the collection element, and the
// element type. Frames are parent-linked, so lookups walk from the
// innermost binding outwards and nested sub-predicates can refer to the
// parameters of enclosing ones.
//
// A Context belongs to exactly one compilation and is not safe for
// concurrent use.
package scope

import (
	"errors"
	"fmt"

	"github.com/roach88/odatacriteria/internal/mapping"
)

// ItName is the reserved self-reference to the query root. It may only be
// used outside any lambda.
const ItName = "$it"

// ErrNotInLambda is returned by Exit at root depth.
var ErrNotInLambda = errors.New("scope: not inside a lambda")

// Binding associates a lambda parameter with its alias and bound type.
type Binding struct {
	Parameter string
	Alias     string
	Type      mapping.TypeID
}

type frame struct {
	binding Binding
	parent  *frame
	depth   int
}

// Context is the lambda binding stack of one compilation.
type Context struct {
	top *frame
}

// New returns a Context at root depth.
func New() *Context {
	return &Context{}
}

// Enter pushes a binding for a new sub-predicate.
func (c *Context) Enter(b Binding) error {
	if b.Parameter == "" {
		return fmt.Errorf("scope: lambda parameter name is required")
	}
	if b.Parameter == ItName {
		return fmt.Errorf("scope: %s cannot be used as a lambda parameter", ItName)
	}
	depth := 1
	if c.top != nil {
		depth = c.top.depth + 1
	}
	c.top = &frame{binding: b, parent: c.top, depth: depth}
	return nil
}

// Exit pops the innermost binding.
func (c *Context) Exit() error {
	if c.top == nil {
		return ErrNotInLambda
	}
	c.top = c.top.parent
	return nil
}

// Within runs fn with b pushed and always pops it afterwards.
func (c *Context) Within(b Binding, fn func() error) error {
	if err := c.Enter(b); err != nil {
		return err
	}
	defer func() { _ = c.Exit() }()
	return fn()
}

// Depth is the current sub-predicate nesting depth; 0 at root.
func (c *Context) Depth() int {
	if c.top == nil {
		return 0
	}
	return c.top.depth
}

// InLambda reports whether at least one binding is active.
func (c *Context) InLambda() bool {
	return c.top != nil
}

// Find returns the innermost binding for parameter name.
func (c *Context) Find(name string) (Binding, bool) {
	for f := c.top; f != nil; f = f.parent {
		if f.binding.Parameter == name {
			return f.binding, true
		}
	}
	return Binding{}, false
}

// Current returns the innermost binding.
func (c *Context) Current() (Binding, bool) {
	if c.top == nil {
		return Binding{}, false
	}
	return c.top.binding, true
}

// Bindings returns the active bindings, outermost first.
func (c *Context) Bindings() []Binding {
	out := make([]Binding, c.Depth())
	for f := c.top; f != nil; f = f.parent {
		out[f.depth-1] = f.binding
	}
	return out
}
