package pythonir

import "fmt"

// Opcode identifies the operation performed by an instruction
type Opcode int

// Opcodes of the stack machine. Jump and block-setup instructions take an
// absolute instruction index as their argument.
const (
	Nop Opcode = iota
	PopTop
	RotTwo
	DupTop
	LoadConst
	LoadFast
	StoreFast
	DeleteFast
	LoadName
	StoreName
	LoadGlobal
	StoreGlobal
	LoadAttr
	StoreAttr
	BinaryOp
	InplaceOp
	UnaryOp
	CompareOp
	BinarySubscr
	StoreSubscr
	BuildTuple
	BuildList
	BuildMap
	BuildSet
	CallFunction
	CallFunctionKw
	MakeFunction
	BuildClass
	ImportName
	GetIter
	ForIter
	JumpAbsolute
	JumpForward
	PopJumpIfFalse
	PopJumpIfTrue
	JumpIfFalseOrPop
	JumpIfTrueOrPop
	SetupLoop
	BreakLoop
	SetupExcept
	SetupFinally
	PopBlock
	EndFinally
	RaiseVarargs
	ReturnValue

	numOpcodes
)

var opcodeNames = [...]string{
	Nop:              "NOP",
	PopTop:           "POP_TOP",
	RotTwo:           "ROT_TWO",
	DupTop:           "DUP_TOP",
	LoadConst:        "LOAD_CONST",
	LoadFast:         "LOAD_FAST",
	StoreFast:        "STORE_FAST",
	DeleteFast:       "DELETE_FAST",
	LoadName:         "LOAD_NAME",
	StoreName:        "STORE_NAME",
	LoadGlobal:       "LOAD_GLOBAL",
	StoreGlobal:      "STORE_GLOBAL",
	LoadAttr:         "LOAD_ATTR",
	StoreAttr:        "STORE_ATTR",
	BinaryOp:         "BINARY_OP",
	InplaceOp:        "INPLACE_OP",
	UnaryOp:          "UNARY_OP",
	CompareOp:        "COMPARE_OP",
	BinarySubscr:     "BINARY_SUBSCR",
	StoreSubscr:      "STORE_SUBSCR",
	BuildTuple:       "BUILD_TUPLE",
	BuildList:        "BUILD_LIST",
	BuildMap:         "BUILD_MAP",
	BuildSet:         "BUILD_SET",
	CallFunction:     "CALL_FUNCTION",
	CallFunctionKw:   "CALL_FUNCTION_KW",
	MakeFunction:     "MAKE_FUNCTION",
	BuildClass:       "BUILD_CLASS",
	ImportName:       "IMPORT_NAME",
	GetIter:          "GET_ITER",
	ForIter:          "FOR_ITER",
	JumpAbsolute:     "JUMP_ABSOLUTE",
	JumpForward:      "JUMP_FORWARD",
	PopJumpIfFalse:   "POP_JUMP_IF_FALSE",
	PopJumpIfTrue:    "POP_JUMP_IF_TRUE",
	JumpIfFalseOrPop: "JUMP_IF_FALSE_OR_POP",
	JumpIfTrueOrPop:  "JUMP_IF_TRUE_OR_POP",
	SetupLoop:        "SETUP_LOOP",
	BreakLoop:        "BREAK_LOOP",
	SetupExcept:      "SETUP_EXCEPT",
	SetupFinally:     "SETUP_FINALLY",
	PopBlock:         "POP_BLOCK",
	EndFinally:       "END_FINALLY",
	RaiseVarargs:     "RAISE_VARARGS",
	ReturnValue:      "RETURN_VALUE",
}

var opcodesByName map[string]Opcode

func init() {
	opcodesByName = make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		opcodesByName[name] = Opcode(op)
	}
}

// String returns the conventional upper-case mnemonic
func (op Opcode) String() string {
	if op < 0 || op >= numOpcodes {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return opcodeNames[op]
}

// ParseOpcode looks up an opcode by mnemonic
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// HasTarget is true for instructions whose argument is an instruction index
func (op Opcode) HasTarget() bool {
	switch op {
	case JumpAbsolute, JumpForward, PopJumpIfFalse, PopJumpIfTrue, JumpIfFalseOrPop, JumpIfTrueOrPop,
		ForIter, SetupLoop, SetupExcept, SetupFinally:
		return true
	}
	return false
}

// HasName is true for instructions that refer to a name rather than a number
func (op Opcode) HasName() bool {
	switch op {
	case LoadFast, StoreFast, DeleteFast, LoadName, StoreName, LoadGlobal, StoreGlobal, LoadAttr, StoreAttr,
		BinaryOp, InplaceOp, UnaryOp, CompareOp, BuildClass, ImportName:
		return true
	}
	return false
}

// IsTerminator is true for instructions after which control never falls through
func (op Opcode) IsTerminator() bool {
	switch op {
	case JumpAbsolute, JumpForward, ReturnValue, RaiseVarargs, BreakLoop:
		return true
	}
	return false
}

// EndsBlock is true for instructions that end a basic block
func (op Opcode) EndsBlock() bool {
	if op.IsTerminator() {
		return true
	}
	switch op {
	case PopJumpIfFalse, PopJumpIfTrue, JumpIfFalseOrPop, JumpIfTrueOrPop, ForIter, EndFinally:
		return true
	}
	return false
}

// MayRaise is true for instructions that can transfer control to an exception handler
func (op Opcode) MayRaise() bool {
	switch op {
	case LoadAttr, StoreAttr, BinaryOp, InplaceOp, UnaryOp, CompareOp, BinarySubscr, StoreSubscr,
		CallFunction, CallFunctionKw, BuildClass, ImportName, GetIter, ForIter, RaiseVarargs, EndFinally:
		return true
	}
	return false
}
