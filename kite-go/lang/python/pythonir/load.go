package pythonir

import (
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/kiteco/typeinfer/kite-golib/errors"
	yaml "gopkg.in/yaml.v2"
)

// yamlModule is the document format read by Load:
//
//   module: example
//   code:
//     name: <module>
//     consts: [None, 1, {str: "abc"}, {code: {name: f, params: [x], ...}}]
//     instrs:
//       - LOAD_CONST 1
//       - "loop: FOR_ITER done"
//
// Instructions are written as "[label:] OPCODE [arg] [name] [@line]". Jump targets
// may be instruction indexes or labels.
type yamlModule struct {
	Module string    `yaml:"module"`
	Code   *yamlCode `yaml:"code"`
}

type yamlCode struct {
	Name   string      `yaml:"name"`
	Params []string    `yaml:"params"`
	Vararg string      `yaml:"vararg"`
	Kwarg  string      `yaml:"kwarg"`
	Line   int         `yaml:"line"`
	Consts []yamlConst `yaml:"consts"`
	Instrs []string    `yaml:"instrs"`
}

type yamlConst struct {
	Scalar string
	IsStr  bool
	Str    string      `yaml:"str"`
	Bytes  string      `yaml:"bytes"`
	Tuple  []yamlConst `yaml:"tuple"`
	Code   *yamlCode   `yaml:"code"`
}

// UnmarshalYAML accepts either a bare scalar or a mapping with one of str/bytes/tuple/code
func (c *yamlConst) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var scalar string
	if err := unmarshal(&scalar); err == nil {
		c.Scalar = scalar
		return nil
	}
	type plain yamlConst
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*c = yamlConst(p)
	c.IsStr = p.Code == nil && p.Tuple == nil
	return nil
}

// Load reads a module from a YAML document
func Load(r io.Reader) (*Module, error) {
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading module")
	}
	var doc yamlModule
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing module")
	}
	if doc.Code == nil {
		return nil, errors.Errorf("module %s has no code", doc.Module)
	}
	if doc.Code.Name == "" {
		doc.Code.Name = "<module>"
	}
	code, err := doc.Code.convert()
	if err != nil {
		return nil, err
	}
	name := doc.Module
	if name == "" {
		name = "__main__"
	}
	return &Module{Name: name, Code: code}, nil
}

// LoadFile reads a module from a YAML file
func LoadFile(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mod, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	for _, c := range append([]*Code{mod.Code}, allChildren(mod.Code)...) {
		c.Filename = path
	}
	return mod, nil
}

func allChildren(c *Code) []*Code {
	var out []*Code
	for _, child := range c.Children() {
		out = append(out, child)
		out = append(out, allChildren(child)...)
	}
	return out
}

func (y *yamlCode) convert() (*Code, error) {
	code := &Code{
		Name:      y.Name,
		Params:    y.Params,
		Vararg:    y.Vararg,
		Kwarg:     y.Kwarg,
		FirstLine: y.Line,
	}
	for i, yc := range y.Consts {
		c, err := yc.convert()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: constant %d", y.Name, i)
		}
		code.Consts = append(code.Consts, c)
	}

	labels := make(map[string]int)
	lines := make([][]string, len(y.Instrs))
	for i, s := range y.Instrs {
		fields := strings.Fields(s)
		if len(fields) > 0 && strings.HasSuffix(fields[0], ":") {
			labels[strings.TrimSuffix(fields[0], ":")] = i
			fields = fields[1:]
		}
		lines[i] = fields
	}
	for i, fields := range lines {
		instr, err := parseInstr(fields, labels)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: instruction %d %q", y.Name, i, y.Instrs[i])
		}
		code.Instrs = append(code.Instrs, instr)
	}
	return code, nil
}

func (y yamlConst) convert() (Const, error) {
	switch {
	case y.Code != nil:
		if y.Code.Name == "" {
			return Const{}, errors.Errorf("nested code object without a name")
		}
		c, err := y.Code.convert()
		if err != nil {
			return Const{}, err
		}
		return CodeOf(c), nil
	case y.Tuple != nil:
		var elts []Const
		for _, e := range y.Tuple {
			c, err := e.convert()
			if err != nil {
				return Const{}, err
			}
			elts = append(elts, c)
		}
		return Tuple(elts...), nil
	case y.Bytes != "":
		return Const{Kind: BytesConst, Literal: y.Bytes}, nil
	case y.IsStr:
		return Str(y.Str), nil
	}

	s := y.Scalar
	switch s {
	case "None", "~", "":
		return None(), nil
	case "True":
		return Bool(true), nil
	case "False":
		return Bool(false), nil
	}
	if _, err := strconv.ParseInt(s, 0, 64); err == nil {
		return Int(s), nil
	}
	if strings.HasSuffix(s, "j") {
		if _, err := strconv.ParseFloat(strings.TrimSuffix(s, "j"), 64); err == nil {
			return Complex(s), nil
		}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(s), nil
	}
	return Str(s), nil
}

func parseInstr(fields []string, labels map[string]int) (Instr, error) {
	if len(fields) == 0 {
		return Instr{}, errors.Errorf("empty instruction")
	}
	var instr Instr
	if last := fields[len(fields)-1]; len(fields) > 1 && strings.HasPrefix(last, "@") {
		line, err := strconv.Atoi(last[1:])
		if err != nil {
			return Instr{}, errors.Errorf("bad line number %s", last)
		}
		instr.Line = line
		fields = fields[:len(fields)-1]
	}

	op, ok := ParseOpcode(fields[0])
	if !ok {
		return Instr{}, errors.Errorf("unknown opcode %s", fields[0])
	}
	instr.Op = op
	args := fields[1:]

	number := func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.Errorf("%s expects a number, got %s", op, s)
		}
		return n, nil
	}

	var err error
	switch {
	case op == BuildClass:
		if len(args) != 2 {
			return Instr{}, errors.Errorf("BUILD_CLASS expects a base count and a name")
		}
		if instr.Arg, err = number(args[0]); err != nil {
			return Instr{}, err
		}
		instr.Name = args[1]
	case op == CallFunctionKw:
		if len(args) != 2 {
			return Instr{}, errors.Errorf("CALL_FUNCTION_KW expects a count and keyword names")
		}
		if instr.Arg, err = number(args[0]); err != nil {
			return Instr{}, err
		}
		instr.Names = strings.Split(args[1], ",")
	case op.HasName():
		if len(args) == 0 {
			return Instr{}, errors.Errorf("%s expects a name", op)
		}
		// operators such as "not in" contain spaces
		instr.Name = strings.Join(args, " ")
	case op.HasTarget():
		if len(args) != 1 {
			return Instr{}, errors.Errorf("%s expects a target", op)
		}
		if target, ok := labels[args[0]]; ok {
			instr.Arg = target
		} else if instr.Arg, err = number(args[0]); err != nil {
			return Instr{}, errors.Errorf("%s: undefined label %s", op, args[0])
		}
	default:
		switch len(args) {
		case 0:
		case 1:
			if instr.Arg, err = number(args[0]); err != nil {
				return Instr{}, err
			}
		default:
			return Instr{}, errors.Errorf("too many arguments for %s", op)
		}
	}
	return instr, nil
}
