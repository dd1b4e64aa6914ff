package pythonir

import (
	"github.com/kiteco/typeinfer/kite-golib/errors"
)

// ErrMalformed is the cause of every error reported for structurally unsound code
var ErrMalformed = errors.New("malformed code")

func malformed(code *Code, format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, "%s: %s", code.Name, errors.Errorf(format, args...))
}

// Validate checks that code and every nested code object are structurally sound:
// opcodes are known, constant indexes and jump targets are in range, block setups
// are balanced and control cannot fall off the end of the instruction stream.
func Validate(code *Code) error {
	if code == nil {
		return errors.Wrapf(ErrMalformed, "nil code object")
	}
	if err := validateCode(code); err != nil {
		return err
	}
	for _, child := range code.Children() {
		if err := Validate(child); err != nil {
			return err
		}
	}
	return nil
}

func validateCode(code *Code) error {
	n := len(code.Instrs)
	if n == 0 {
		return malformed(code, "no instructions")
	}
	for i, instr := range code.Instrs {
		if instr.Op < 0 || instr.Op >= numOpcodes {
			return malformed(code, "instruction %d: unknown opcode %d", i, int(instr.Op))
		}
		switch {
		case instr.Op.HasTarget():
			if instr.Arg < 0 || instr.Arg >= n {
				return malformed(code, "instruction %d: %s target %d out of range", i, instr.Op, instr.Arg)
			}
		case instr.Op == LoadConst:
			if instr.Arg < 0 || instr.Arg >= len(code.Consts) {
				return malformed(code, "instruction %d: constant index %d out of range", i, instr.Arg)
			}
		case instr.Op == RaiseVarargs:
			if instr.Arg < 0 || instr.Arg > 1 {
				return malformed(code, "instruction %d: unsupported raise argument count %d", i, instr.Arg)
			}
		case instr.Arg < 0:
			return malformed(code, "instruction %d: negative argument %d", i, instr.Arg)
		}
		if instr.Op.HasName() && instr.Name == "" {
			return malformed(code, "instruction %d: %s requires a name", i, instr.Op)
		}
		if instr.Op == CallFunctionKw && len(instr.Names) > instr.Arg {
			return malformed(code, "instruction %d: %d keyword names for %d arguments", i, len(instr.Names), instr.Arg)
		}
	}
	if last := code.Instrs[n-1].Op; !last.IsTerminator() {
		return malformed(code, "control falls off the end after %s", last)
	}
	if _, err := scanRegions(code); err != nil {
		return err
	}
	return nil
}
