package pythoncatalog

import (
	"io"
	"io/ioutil"
	"os"
	"sort"
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/errors"
	yaml "gopkg.in/yaml.v2"
)

// stubModule is the YAML format of a stub document:
//
//   module: os.path
//   classes:
//     - name: stat_result
//       bases: [object]
//       params: []
//       methods:
//         __init__: ["(self) -> NoneType"]
//       attrs:
//         st_size: int
//   functions:
//     join: ["(a: str, *p: str) -> str"]
//   constants:
//     sep: str
//
// A function or method maps to its overloads, in the order they are tried.
type stubModule struct {
	Module    string              `yaml:"module"`
	Classes   []stubClass         `yaml:"classes"`
	Functions map[string][]string `yaml:"functions"`
	Constants map[string]string   `yaml:"constants"`
}

type stubClass struct {
	Name    string              `yaml:"name"`
	Bases   []string            `yaml:"bases"`
	Params  []string            `yaml:"params"`
	Methods map[string][]string `yaml:"methods"`
	Attrs   map[string]string   `yaml:"attrs"`
}

// LoadYAML parses a stub document and adds its module to the catalog
func (s *Stubs) LoadYAML(r io.Reader) error {
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading stubs")
	}
	var doc stubModule
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return errors.Wrapf(err, "parsing stubs")
	}
	if doc.Module == "" {
		return errors.Errorf("stub document without a module name")
	}
	if _, dup := s.modules[doc.Module]; dup {
		return errors.Errorf("module %s loaded twice", doc.Module)
	}
	return s.load(doc)
}

// LoadFile adds the stubs in a YAML file to the catalog
func (s *Stubs) LoadFile(path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)
	return errors.WrapfOrNil(s.LoadYAML(f), "loading %s", path)
}

// LoadFiles loads every stub file, reporting all failures together
func (s *Stubs) LoadFiles(paths ...string) error {
	var errs errors.Errors
	for _, path := range paths {
		errs = errors.Append(errs, s.LoadFile(path))
	}
	if errs == nil {
		return nil
	}
	return errs
}

func (s *Stubs) load(doc stubModule) error {
	mod := &pythonvalue.Module{Name: doc.Module, Members: make(map[string]pythonvalue.Value)}

	// first pass: create every class so that signatures may refer to any of them
	local := make(map[string]*pythonvalue.Class)
	var classes []*pythonvalue.Class
	for _, sc := range doc.Classes {
		if _, dup := local[sc.Name]; dup {
			return errors.Errorf("%s: class %s defined twice", doc.Module, sc.Name)
		}
		c := pythonvalue.NewClass(doc.Module, sc.Name)
		c.TypeParams = sc.Params
		local[sc.Name] = c
		classes = append(classes, c)
		mod.Members[sc.Name] = c
	}

	lookupClass := func(name string) (*pythonvalue.Class, bool) {
		if c, ok := local[name]; ok {
			return c, true
		}
		if v, ok := s.Builtin(name); ok {
			if c, ok := v.(*pythonvalue.Class); ok {
				return c, true
			}
		}
		if i := strings.LastIndex(name, "."); i > 0 {
			if m, ok := s.modules[name[:i]]; ok {
				if c, ok := m.Members[name[i+1:]].(*pythonvalue.Class); ok {
					return c, true
				}
			}
		}
		return nil, false
	}

	resolverFor := func(typeParams []string) resolver {
		return func(name string) (pythonvalue.Value, error) {
			for _, tp := range typeParams {
				if tp == name {
					return pythonvalue.TypeVar{Name: name}, nil
				}
			}
			if c, ok := lookupClass(name); ok {
				return pythonvalue.NewInstance(c), nil
			}
			if looksLikeTypeVar(name) {
				return pythonvalue.TypeVar{Name: name}, nil
			}
			return nil, errors.Errorf("unknown type %s", name)
		}
	}

	// second pass: bases, then members
	for i, sc := range doc.Classes {
		c := classes[i]
		for _, b := range sc.Bases {
			base, ok := lookupClass(b)
			if !ok {
				return errors.Errorf("%s: unknown base %s of %s", doc.Module, b, sc.Name)
			}
			c.Bases = append(c.Bases, base)
		}
		if len(c.Bases) == 0 && c.QualName() != "builtins.object" {
			if object, ok := lookupClass("object"); ok {
				c.Bases = []*pythonvalue.Class{object}
			}
		}
	}
	for i, sc := range doc.Classes {
		c := classes[i]
		resolve := resolverFor(c.TypeParams)
		for _, name := range sortedKeys(sc.Methods) {
			fn, err := parseFunction(c.QualName()+"."+name, sc.Methods[name], resolve)
			if err != nil {
				return errors.Wrapf(err, "%s.%s", c.QualName(), name)
			}
			fn.Owner = c
			c.Members[name] = fn
		}
		for _, name := range sortedStringKeys(sc.Attrs) {
			v, err := parseType(sc.Attrs[name], resolve)
			if err != nil {
				return errors.Wrapf(err, "%s.%s", c.QualName(), name)
			}
			c.Members[name] = v
		}
	}

	resolve := resolverFor(nil)
	for _, name := range sortedKeys(doc.Functions) {
		fn, err := parseFunction(doc.Module+"."+name, doc.Functions[name], resolve)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", doc.Module, name)
		}
		mod.Members[name] = fn
	}
	for _, name := range sortedStringKeys(doc.Constants) {
		v, err := parseType(doc.Constants[name], resolve)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", doc.Module, name)
		}
		mod.Members[name] = v
	}

	s.addModule(mod, classes)
	return nil
}

func parseFunction(name string, overloads []string, resolve resolver) (*pythonvalue.Function, error) {
	if len(overloads) == 0 {
		return nil, errors.Errorf("no signatures")
	}
	fn := &pythonvalue.Function{Name: name}
	for _, src := range overloads {
		p, err := newParser(src, resolve)
		if err != nil {
			return nil, err
		}
		sig, err := p.parseSignature()
		if err != nil {
			return nil, err
		}
		fn.Signatures = append(fn.Signatures, sig)
	}
	return fn, nil
}

func parseType(src string, resolve resolver) (pythonvalue.Value, error) {
	p, err := newParser(src, resolve)
	if err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return t, p.done()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
