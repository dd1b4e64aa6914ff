package pythonvalue

// Class is a class object, either defined in analyzed code (Source) or
// described by the catalog.
type Class struct {
	Name   string
	Module string
	Bases  []*Class
	// Members maps attribute names to class attributes; methods are *Function
	Members map[string]Value
	// TypeParams are the names of the type variables of a generic class
	TypeParams []string
	Source     bool

	mro []*Class
}

// NewClass creates a class with an empty namespace
func NewClass(module, name string, bases ...*Class) *Class {
	return &Class{
		Name:    name,
		Module:  module,
		Bases:   bases,
		Members: make(map[string]Value),
	}
}

// Kind implements Value
func (c *Class) Kind() Kind { return ClassKind }

// Key implements Value
func (c *Class) Key() string { return "c:" + c.QualName() }

func (c *Class) String() string { return "type[" + c.DisplayName() + "]" }

// QualName is the module-qualified name of the class
func (c *Class) QualName() string {
	if c.Module == "" {
		return c.Name
	}
	return c.Module + "." + c.Name
}

// DisplayName omits the module for builtins and analyzed classes
func (c *Class) DisplayName() string {
	if c.Source || c.Module == "builtins" || c.Module == "" {
		return c.Name
	}
	return c.QualName()
}

// Generic is true for classes with type parameters
func (c *Class) Generic() bool {
	return len(c.TypeParams) > 0
}

// MRO returns the method resolution order: c first, then its bases depth-first,
// left to right, keeping only the last occurrence of a class reachable twice.
// Bases must not be changed after the first call.
func (c *Class) MRO() []*Class {
	if c.mro != nil {
		return c.mro
	}
	var walk []*Class
	var visit func(k *Class, stack map[*Class]bool)
	visit = func(k *Class, stack map[*Class]bool) {
		if stack[k] {
			return // cyclic bases
		}
		stack[k] = true
		walk = append(walk, k)
		for _, b := range k.Bases {
			visit(b, stack)
		}
		delete(stack, k)
	}
	visit(c, make(map[*Class]bool))

	last := make(map[*Class]int)
	for i, k := range walk {
		last[k] = i
	}
	var mro []*Class
	for i, k := range walk {
		if last[k] == i {
			mro = append(mro, k)
		}
	}
	c.mro = mro
	return mro
}

// Lookup finds an attribute on c or its bases, returning the defining class
func (c *Class) Lookup(name string) (Value, *Class, bool) {
	for _, k := range c.MRO() {
		if v, ok := k.Members[name]; ok {
			return v, k, true
		}
	}
	return nil, nil, false
}

// IsSubclass reports whether c is other or derives from it
func (c *Class) IsSubclass(other *Class) bool {
	for _, k := range c.MRO() {
		if k == other {
			return true
		}
	}
	return false
}

// MemberNames returns the sorted names of the attributes defined directly on c
func (c *Class) MemberNames() []string {
	return sortedNames(c.Members)
}

// numeric promotions accepted where a wider builtin number is expected
var promotions = map[string][]string{
	"builtins.bool":  {"builtins.float", "builtins.complex"},
	"builtins.int":   {"builtins.float", "builtins.complex"},
	"builtins.float": {"builtins.complex"},
}

// Promotes reports whether instances of c are accepted where other is expected
// without being a subclass of it (int where float is expected, and so on)
func Promotes(c, other *Class) bool {
	for _, p := range promotions[c.QualName()] {
		if p == other.QualName() {
			return true
		}
	}
	return false
}
