package pythonir

import (
	"github.com/kiteco/typeinfer/kite-golib/errors"
)

// None is the None constant
func None() Const { return Const{Kind: NoneConst} }

// Bool returns a boolean constant
func Bool(b bool) Const {
	if b {
		return Const{Kind: BoolConst, Literal: "True"}
	}
	return Const{Kind: BoolConst, Literal: "False"}
}

// Int returns an integer constant
func Int(lit string) Const { return Const{Kind: IntConst, Literal: lit} }

// Float returns a float constant
func Float(lit string) Const { return Const{Kind: FloatConst, Literal: lit} }

// Complex returns an imaginary constant
func Complex(lit string) Const { return Const{Kind: ComplexConst, Literal: lit} }

// Str returns a string constant
func Str(lit string) Const { return Const{Kind: StrConst, Literal: lit} }

// Tuple returns a tuple constant
func Tuple(elts ...Const) Const { return Const{Kind: TupleConst, Elts: elts} }

// CodeOf wraps a code object as a constant
func CodeOf(c *Code) Const { return Const{Kind: CodeConst, Code: c} }

type fixup struct {
	instr int
	label string
}

// Builder assembles a code object instruction by instruction. Jumps refer to
// labels, which are resolved when Code is called.
type Builder struct {
	code   *Code
	labels map[string]int
	fixups []fixup
	line   int
	err    error
}

// NewBuilder starts a code object with the given qualified name and positional parameters
func NewBuilder(name string, params ...string) *Builder {
	return &Builder{
		code:   &Code{Name: name, Params: params},
		labels: make(map[string]int),
	}
}

// Varargs sets the names of the *args and **kwargs parameters; either may be empty
func (b *Builder) Varargs(vararg, kwarg string) *Builder {
	b.code.Vararg = vararg
	b.code.Kwarg = kwarg
	return b
}

// Line sets the source line recorded on subsequent instructions
func (b *Builder) Line(line int) *Builder {
	if b.code.FirstLine == 0 {
		b.code.FirstLine = line
	}
	b.line = line
	return b
}

// Const adds c to the constant table, reusing an equal scalar entry, and returns its index
func (b *Builder) Const(c Const) int {
	if c.Kind != TupleConst && c.Kind != CodeConst {
		for i, existing := range b.code.Consts {
			if existing.Kind == c.Kind && existing.Literal == c.Literal {
				return i
			}
		}
	}
	b.code.Consts = append(b.code.Consts, c)
	return len(b.code.Consts) - 1
}

func (b *Builder) emit(instr Instr) *Builder {
	instr.Line = b.line
	b.code.Instrs = append(b.code.Instrs, instr)
	return b
}

// Op emits an instruction without argument
func (b *Builder) Op(op Opcode) *Builder {
	return b.emit(Instr{Op: op})
}

// Arg emits an instruction with a numeric argument
func (b *Builder) Arg(op Opcode, arg int) *Builder {
	return b.emit(Instr{Op: op, Arg: arg})
}

// Name emits an instruction with a name argument
func (b *Builder) Name(op Opcode, name string) *Builder {
	return b.emit(Instr{Op: op, Name: name})
}

// LoadConst emits LOAD_CONST for c
func (b *Builder) LoadConst(c Const) *Builder {
	return b.Arg(LoadConst, b.Const(c))
}

// Call emits CALL_FUNCTION with argc positional arguments
func (b *Builder) Call(argc int) *Builder {
	return b.Arg(CallFunction, argc)
}

// CallKw emits CALL_FUNCTION_KW; the last len(names) of the argc arguments are keywords
func (b *Builder) CallKw(argc int, names ...string) *Builder {
	return b.emit(Instr{Op: CallFunctionKw, Arg: argc, Names: names})
}

// Function emits the LOAD_CONST/MAKE_FUNCTION pair for fn, whose ndefaults
// default values must already be on the stack
func (b *Builder) Function(fn *Code, ndefaults int) *Builder {
	b.LoadConst(CodeOf(fn))
	return b.Arg(MakeFunction, ndefaults)
}

// Class emits BUILD_CLASS for a class whose body function and nbases bases are on the stack
func (b *Builder) Class(name string, nbases int) *Builder {
	return b.emit(Instr{Op: BuildClass, Arg: nbases, Name: name})
}

// Jump emits a branching instruction targeting label
func (b *Builder) Jump(op Opcode, label string) *Builder {
	if !op.HasTarget() && b.err == nil {
		b.err = errors.Errorf("%s does not take a target", op)
	}
	b.fixups = append(b.fixups, fixup{instr: len(b.code.Instrs), label: label})
	return b.emit(Instr{Op: op})
}

// Label binds label to the index of the next instruction
func (b *Builder) Label(label string) *Builder {
	if _, dup := b.labels[label]; dup && b.err == nil {
		b.err = errors.Errorf("label %s defined twice", label)
	}
	b.labels[label] = len(b.code.Instrs)
	return b
}

// Code resolves labels and returns the assembled code object. It does not validate it.
func (b *Builder) Code() (*Code, error) {
	if b.err != nil {
		return nil, errors.Wrapf(b.err, "assembling %s", b.code.Name)
	}
	for _, f := range b.fixups {
		target, ok := b.labels[f.label]
		if !ok {
			return nil, errors.Errorf("assembling %s: undefined label %s", b.code.Name, f.label)
		}
		b.code.Instrs[f.instr].Arg = target
	}
	b.fixups = nil
	return b.code, nil
}

// MustCode is Code for statically known programs; it panics on error
func (b *Builder) MustCode() *Code {
	c, err := b.Code()
	if err != nil {
		panic(err)
	}
	return c
}
