package pythonbinding

import (
	"sort"
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/errors"
)

// ErrStackMismatch is returned when merging states whose stacks differ in depth,
// which only happens for malformed code
var ErrStackMismatch = errors.New("value stacks of different depth meet")

// State maps local names to variables and holds the value stack at a program point
type State struct {
	Locals map[string]*Variable
	Stack  []*Variable
}

// NewState returns an empty state
func NewState() *State {
	return &State{Locals: make(map[string]*Variable)}
}

// Clone returns a copy of the state; variables are shared since they are immutable
func (s *State) Clone() *State {
	out := &State{
		Locals: make(map[string]*Variable, len(s.Locals)),
		Stack:  append([]*Variable(nil), s.Stack...),
	}
	for k, v := range s.Locals {
		out.Locals[k] = v
	}
	return out
}

// Names returns the sorted local names
func (s *State) Names() []string {
	names := make([]string, 0, len(s.Locals))
	for name := range s.Locals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Push pushes a variable onto the stack
func (s *State) Push(v *Variable) {
	s.Stack = append(s.Stack, v)
}

// Pop pops the top of the stack; ok is false when the stack is empty
func (s *State) Pop() (*Variable, bool) {
	if len(s.Stack) == 0 {
		return nil, false
	}
	v := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return v, true
}

// PopN pops n variables, returning them in push order
func (s *State) PopN(n int) ([]*Variable, bool) {
	if n < 0 || n > len(s.Stack) {
		return nil, false
	}
	out := append([]*Variable(nil), s.Stack[len(s.Stack)-n:]...)
	s.Stack = s.Stack[:len(s.Stack)-n]
	return out, true
}

// Top returns the top of the stack without popping it
func (s *State) Top() (*Variable, bool) {
	if len(s.Stack) == 0 {
		return nil, false
	}
	return s.Stack[len(s.Stack)-1], true
}

// Truncate drops stack entries above depth
func (s *State) Truncate(depth int) {
	if depth < len(s.Stack) {
		s.Stack = s.Stack[:depth]
	}
}

// Merge unions other into s. A local present in only one of the states keeps its
// bindings. Merge is commutative and associative up to Equal.
func (s *State) Merge(other *State) (changed bool, err error) {
	if len(s.Stack) != len(other.Stack) {
		return false, errors.Wrapf(ErrStackMismatch, "depth %d vs %d", len(s.Stack), len(other.Stack))
	}
	for name, v := range other.Locals {
		old, ok := s.Locals[name]
		if !ok {
			s.Locals[name] = v
			changed = true
			continue
		}
		merged := Union(old, v)
		if !merged.Equal(old) {
			s.Locals[name] = merged
			changed = true
		}
	}
	for i, v := range other.Stack {
		merged := Union(s.Stack[i], v)
		if !merged.Equal(s.Stack[i]) {
			s.Stack[i] = merged
			changed = true
		}
	}
	return changed, nil
}

// Widen replaces every variable of s that differs from prev by a single
// Unsolvable binding produced at origin. Once widened, a variable no longer
// grows, so repeatedly merging and widening reaches a fixed point.
func (s *State) Widen(prev *State, origin Origin) {
	unsolvable := NewVariable(origin, pythonvalue.Unsolvable{})
	for name, v := range s.Locals {
		if old, ok := prev.Locals[name]; !ok || !old.Equal(v) {
			s.Locals[name] = unsolvable
		}
	}
	for i, v := range s.Stack {
		if i >= len(prev.Stack) || !prev.Stack[i].Equal(v) {
			s.Stack[i] = unsolvable
		}
	}
}

// Equal compares two states binding by binding
func (s *State) Equal(other *State) bool {
	if len(s.Locals) != len(other.Locals) || len(s.Stack) != len(other.Stack) {
		return false
	}
	for name, v := range s.Locals {
		o, ok := other.Locals[name]
		if !ok || !o.Equal(v) {
			return false
		}
	}
	for i := range s.Stack {
		if !s.Stack[i].Equal(other.Stack[i]) {
			return false
		}
	}
	return true
}

func (s *State) String() string {
	var b strings.Builder
	for _, name := range s.Names() {
		b.WriteString(name + "=" + s.Locals[name].String() + " ")
	}
	b.WriteString("stack=[")
	for i, v := range s.Stack {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(v.String())
	}
	b.WriteString("]")
	return b.String()
}
