// Package pythoncatalog provides the signatures of library code: classes,
// functions and modules that are not simulated but described by stubs.
package pythoncatalog

import (
	"sort"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/errors"
)

// BuiltinsModule is the module whose members are visible everywhere
const BuiltinsModule = "builtins"

// Catalog is the read-only source of known signatures consulted by the engine
type Catalog interface {
	// Builtin looks up a member of the builtins module
	Builtin(name string) (pythonvalue.Value, bool)
	// Module looks up a module by its dotted name
	Module(name string) (*pythonvalue.Module, bool)
	// Classes returns every class in the catalog, sorted by qualified name
	Classes() []*pythonvalue.Class
	// ClassesWithAttr returns the classes on which attr can be looked up, sorted by qualified name
	ClassesWithAttr(attr string) []*pythonvalue.Class
}

// Stubs is a Catalog built from stub documents
type Stubs struct {
	modules map[string]*pythonvalue.Module
	classes []*pythonvalue.Class
	byAttr  map[string][]*pythonvalue.Class
}

// NewStubs returns an empty catalog; most clients want Builtins instead
func NewStubs() *Stubs {
	return &Stubs{
		modules: make(map[string]*pythonvalue.Module),
	}
}

// Builtin implements Catalog
func (s *Stubs) Builtin(name string) (pythonvalue.Value, bool) {
	mod, ok := s.modules[BuiltinsModule]
	if !ok {
		return nil, false
	}
	v, ok := mod.Members[name]
	return v, ok
}

// Module implements Catalog
func (s *Stubs) Module(name string) (*pythonvalue.Module, bool) {
	mod, ok := s.modules[name]
	return mod, ok
}

// Classes implements Catalog
func (s *Stubs) Classes() []*pythonvalue.Class {
	return s.classes
}

// ClassesWithAttr implements Catalog
func (s *Stubs) ClassesWithAttr(attr string) []*pythonvalue.Class {
	return s.byAttr[attr]
}

// ModuleNames returns the sorted names of the loaded modules
func (s *Stubs) ModuleNames() []string {
	var names []string
	for name := range s.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// addModule registers a module and its classes and rebuilds the attribute index
func (s *Stubs) addModule(mod *pythonvalue.Module, classes []*pythonvalue.Class) {
	s.modules[mod.Name] = mod
	s.classes = append(s.classes, classes...)
	sort.Slice(s.classes, func(i, j int) bool { return s.classes[i].QualName() < s.classes[j].QualName() })

	s.byAttr = make(map[string][]*pythonvalue.Class)
	for _, c := range s.classes {
		seen := make(map[string]bool)
		for _, k := range c.MRO() {
			for name := range k.Members {
				if !seen[name] {
					seen[name] = true
					s.byAttr[name] = append(s.byAttr[name], c)
				}
			}
		}
	}
}

// BuiltinClass looks up a class of the builtins module
func BuiltinClass(c Catalog, name string) (*pythonvalue.Class, error) {
	v, ok := c.Builtin(name)
	if !ok {
		return nil, errors.Errorf("catalog has no builtin class %s", name)
	}
	cls, ok := v.(*pythonvalue.Class)
	if !ok {
		return nil, errors.Errorf("builtin %s is not a class", name)
	}
	return cls, nil
}
