package code

import "fmt"

// Opcode values follow CPython 3.10. The structured-control opcodes that 3.8
// removed (SETUP_LOOP, BREAK_LOOP, END_FINALLY, ...) keep their 3.7 number when
// it is still free, otherwise they live above DICT_UPDATE.
type Opcode byte

const (
	OpPopTop                Opcode = 1
	OpRotTwo                Opcode = 2
	OpRotThree              Opcode = 3
	OpDupTop                Opcode = 4
	OpDupTopTwo             Opcode = 5
	OpRotFour               Opcode = 6
	OpNop                   Opcode = 9
	OpUnaryPositive         Opcode = 10
	OpUnaryNegative         Opcode = 11
	OpUnaryNot              Opcode = 12
	OpUnaryInvert           Opcode = 15
	OpBinaryMatrixMultiply  Opcode = 16
	OpInplaceMatrixMultiply Opcode = 17
	OpBinaryPower           Opcode = 19
	OpBinaryMultiply        Opcode = 20
	OpBinaryModulo          Opcode = 22
	OpBinaryAdd             Opcode = 23
	OpBinarySubtract        Opcode = 24
	OpBinarySubscr          Opcode = 25
	OpBinaryFloorDivide     Opcode = 26
	OpBinaryTrueDivide      Opcode = 27
	OpInplaceFloorDivide    Opcode = 28
	OpInplaceTrueDivide     Opcode = 29
	OpReraise               Opcode = 48
	OpInplaceAdd            Opcode = 55
	OpInplaceSubtract       Opcode = 56
	OpInplaceMultiply       Opcode = 57
	OpInplaceModulo         Opcode = 59
	OpStoreSubscr           Opcode = 60
	OpDeleteSubscr          Opcode = 61
	OpBinaryLshift          Opcode = 62
	OpBinaryRshift          Opcode = 63
	OpBinaryAnd             Opcode = 64
	OpBinaryXor             Opcode = 65
	OpBinaryOr              Opcode = 66
	OpInplacePower          Opcode = 67
	OpGetIter               Opcode = 68
	OpGetYieldFromIter      Opcode = 69
	OpYieldFrom             Opcode = 72
	OpLoadAssertionError    Opcode = 74
	OpInplaceLshift         Opcode = 75
	OpInplaceRshift         Opcode = 76
	OpInplaceAnd            Opcode = 77
	OpInplaceXor            Opcode = 78
	OpInplaceOr             Opcode = 79
	OpBreakLoop             Opcode = 80
	OpListToTuple           Opcode = 82
	OpReturnValue           Opcode = 83
	OpYieldValue            Opcode = 86
	OpPopBlock              Opcode = 87
	OpEndFinally            Opcode = 88
	OpPopExcept             Opcode = 89

	// Opcodes from here on take an operand.
	HaveArgument Opcode = 90

	OpStoreName         Opcode = 90  // names[arg]
	OpDeleteName        Opcode = 91  // names[arg]
	OpUnpackSequence    Opcode = 92  // count
	OpForIter           Opcode = 93  // relative jump on exhaustion
	OpUnpackEx          Opcode = 94  // before | after<<8
	OpStoreAttr         Opcode = 95  // names[arg]
	OpDeleteAttr        Opcode = 96  // names[arg]
	OpStoreGlobal       Opcode = 97  // names[arg]
	OpDeleteGlobal      Opcode = 98  // names[arg]
	OpRotN              Opcode = 99  // depth
	OpLoadConst         Opcode = 100 // consts[arg]
	OpLoadName          Opcode = 101 // names[arg]
	OpBuildTuple        Opcode = 102 // count
	OpBuildList         Opcode = 103 // count
	OpBuildSet          Opcode = 104 // count
	OpBuildMap          Opcode = 105 // pair count
	OpLoadAttr          Opcode = 106 // names[arg]
	OpCompareOp         Opcode = 107 // CompareOps[arg]
	OpJumpForward       Opcode = 110 // relative
	OpJumpIfFalseOrPop  Opcode = 111 // absolute
	OpJumpIfTrueOrPop   Opcode = 112 // absolute
	OpJumpAbsolute      Opcode = 113 // absolute
	OpPopJumpIfFalse    Opcode = 114 // absolute
	OpPopJumpIfTrue     Opcode = 115 // absolute
	OpLoadGlobal        Opcode = 116 // names[arg]
	OpIsOp              Opcode = 117 // invert
	OpContainsOp        Opcode = 118 // invert
	OpSetupLoop         Opcode = 120 // relative loop exit
	OpJumpIfNotExcMatch Opcode = 121 // absolute
	OpSetupFinally      Opcode = 122 // relative finally body
	OpLoadFast          Opcode = 124 // varnames[arg]
	OpStoreFast         Opcode = 125 // varnames[arg]
	OpDeleteFast        Opcode = 126 // varnames[arg]
	OpGenStart          Opcode = 129 // kind
	OpRaiseVarargs      Opcode = 130 // 0, 1 or 2
	OpCallFunction      Opcode = 131 // positional count
	OpMakeFunction      Opcode = 132 // MakeFunction* flags
	OpBuildSlice        Opcode = 133 // 2 or 3
	OpLoadClosure       Opcode = 135 // cell index
	OpLoadDeref         Opcode = 136 // cell index
	OpStoreDeref        Opcode = 137 // cell index
	OpDeleteDeref       Opcode = 138 // cell index
	OpCallFunctionKw    Opcode = 141 // total argument count
	OpCallFunctionEx    Opcode = 142 // 1 when a kwargs mapping is present
	OpListAppend        Opcode = 145 // depth
	OpSetAdd            Opcode = 146 // depth
	OpMapAdd            Opcode = 147 // depth
	OpLoadClassDeref    Opcode = 148 // cell index
	OpFormatValue       Opcode = 155 // FormatValue* flags
	OpBuildConstKeyMap  Opcode = 156 // count
	OpBuildString       Opcode = 157 // count
	OpLoadMethod        Opcode = 160 // names[arg]
	OpCallMethod        Opcode = 161 // positional count
	OpListExtend        Opcode = 162 // depth
	OpSetUpdate         Opcode = 163 // depth
	OpDictMerge         Opcode = 164 // depth
	OpDictUpdate        Opcode = 165 // depth
	OpContinueLoop      Opcode = 166 // absolute loop start
	OpSetupExcept       Opcode = 167 // relative handler
)

// MAKE_FUNCTION operand bits.
const (
	MakeFunctionDefaults    = 0x01
	MakeFunctionKwDefaults  = 0x02
	MakeFunctionAnnotations = 0x04
	MakeFunctionClosure     = 0x08
)

// FORMAT_VALUE operand bits.
const (
	FormatValueConvMask = 0x03
	FormatValueStr      = 0x01
	FormatValueRepr     = 0x02
	FormatValueASCII    = 0x03
	FormatValueWithSpec = 0x04
)

// CompareOps is indexed by the COMPARE_OP operand.
var CompareOps = []string{"<", "<=", "==", "!=", ">", ">="}

type JumpKind int

const (
	JumpNone JumpKind = iota
	JumpRelative
	JumpAbsolute
)

type Definition struct {
	Name string
	Jump JumpKind
}

type Instruction struct {
	Op  Opcode
	Arg int
}

type Instructions []Instruction

var definitions = map[Opcode]*Definition{
	OpPopTop:                {"POP_TOP", JumpNone},
	OpRotTwo:                {"ROT_TWO", JumpNone},
	OpRotThree:              {"ROT_THREE", JumpNone},
	OpDupTop:                {"DUP_TOP", JumpNone},
	OpDupTopTwo:             {"DUP_TOP_TWO", JumpNone},
	OpRotFour:               {"ROT_FOUR", JumpNone},
	OpNop:                   {"NOP", JumpNone},
	OpUnaryPositive:         {"UNARY_POSITIVE", JumpNone},
	OpUnaryNegative:         {"UNARY_NEGATIVE", JumpNone},
	OpUnaryNot:              {"UNARY_NOT", JumpNone},
	OpUnaryInvert:           {"UNARY_INVERT", JumpNone},
	OpBinaryMatrixMultiply:  {"BINARY_MATRIX_MULTIPLY", JumpNone},
	OpInplaceMatrixMultiply: {"INPLACE_MATRIX_MULTIPLY", JumpNone},
	OpBinaryPower:           {"BINARY_POWER", JumpNone},
	OpBinaryMultiply:        {"BINARY_MULTIPLY", JumpNone},
	OpBinaryModulo:          {"BINARY_MODULO", JumpNone},
	OpBinaryAdd:             {"BINARY_ADD", JumpNone},
	OpBinarySubtract:        {"BINARY_SUBTRACT", JumpNone},
	OpBinarySubscr:          {"BINARY_SUBSCR", JumpNone},
	OpBinaryFloorDivide:     {"BINARY_FLOOR_DIVIDE", JumpNone},
	OpBinaryTrueDivide:      {"BINARY_TRUE_DIVIDE", JumpNone},
	OpInplaceFloorDivide:    {"INPLACE_FLOOR_DIVIDE", JumpNone},
	OpInplaceTrueDivide:     {"INPLACE_TRUE_DIVIDE", JumpNone},
	OpReraise:               {"RERAISE", JumpNone},
	OpInplaceAdd:            {"INPLACE_ADD", JumpNone},
	OpInplaceSubtract:       {"INPLACE_SUBTRACT", JumpNone},
	OpInplaceMultiply:       {"INPLACE_MULTIPLY", JumpNone},
	OpInplaceModulo:         {"INPLACE_MODULO", JumpNone},
	OpStoreSubscr:           {"STORE_SUBSCR", JumpNone},
	OpDeleteSubscr:          {"DELETE_SUBSCR", JumpNone},
	OpBinaryLshift:          {"BINARY_LSHIFT", JumpNone},
	OpBinaryRshift:          {"BINARY_RSHIFT", JumpNone},
	OpBinaryAnd:             {"BINARY_AND", JumpNone},
	OpBinaryXor:             {"BINARY_XOR", JumpNone},
	OpBinaryOr:              {"BINARY_OR", JumpNone},
	OpInplacePower:          {"INPLACE_POWER", JumpNone},
	OpGetIter:               {"GET_ITER", JumpNone},
	OpGetYieldFromIter:      {"GET_YIELD_FROM_ITER", JumpNone},
	OpYieldFrom:             {"YIELD_FROM", JumpNone},
	OpLoadAssertionError:    {"LOAD_ASSERTION_ERROR", JumpNone},
	OpInplaceLshift:         {"INPLACE_LSHIFT", JumpNone},
	OpInplaceRshift:         {"INPLACE_RSHIFT", JumpNone},
	OpInplaceAnd:            {"INPLACE_AND", JumpNone},
	OpInplaceXor:            {"INPLACE_XOR", JumpNone},
	OpInplaceOr:             {"INPLACE_OR", JumpNone},
	OpBreakLoop:             {"BREAK_LOOP", JumpNone},
	OpListToTuple:           {"LIST_TO_TUPLE", JumpNone},
	OpReturnValue:           {"RETURN_VALUE", JumpNone},
	OpYieldValue:            {"YIELD_VALUE", JumpNone},
	OpPopBlock:              {"POP_BLOCK", JumpNone},
	OpEndFinally:            {"END_FINALLY", JumpNone},
	OpPopExcept:             {"POP_EXCEPT", JumpNone},
	OpStoreName:             {"STORE_NAME", JumpNone},
	OpDeleteName:            {"DELETE_NAME", JumpNone},
	OpUnpackSequence:        {"UNPACK_SEQUENCE", JumpNone},
	OpForIter:               {"FOR_ITER", JumpRelative},
	OpUnpackEx:              {"UNPACK_EX", JumpNone},
	OpStoreAttr:             {"STORE_ATTR", JumpNone},
	OpDeleteAttr:            {"DELETE_ATTR", JumpNone},
	OpStoreGlobal:           {"STORE_GLOBAL", JumpNone},
	OpDeleteGlobal:          {"DELETE_GLOBAL", JumpNone},
	OpRotN:                  {"ROT_N", JumpNone},
	OpLoadConst:             {"LOAD_CONST", JumpNone},
	OpLoadName:              {"LOAD_NAME", JumpNone},
	OpBuildTuple:            {"BUILD_TUPLE", JumpNone},
	OpBuildList:             {"BUILD_LIST", JumpNone},
	OpBuildSet:              {"BUILD_SET", JumpNone},
	OpBuildMap:              {"BUILD_MAP", JumpNone},
	OpLoadAttr:              {"LOAD_ATTR", JumpNone},
	OpCompareOp:             {"COMPARE_OP", JumpNone},
	OpJumpForward:           {"JUMP_FORWARD", JumpRelative},
	OpJumpIfFalseOrPop:      {"JUMP_IF_FALSE_OR_POP", JumpAbsolute},
	OpJumpIfTrueOrPop:       {"JUMP_IF_TRUE_OR_POP", JumpAbsolute},
	OpJumpAbsolute:          {"JUMP_ABSOLUTE", JumpAbsolute},
	OpPopJumpIfFalse:        {"POP_JUMP_IF_FALSE", JumpAbsolute},
	OpPopJumpIfTrue:         {"POP_JUMP_IF_TRUE", JumpAbsolute},
	OpLoadGlobal:            {"LOAD_GLOBAL", JumpNone},
	OpIsOp:                  {"IS_OP", JumpNone},
	OpContainsOp:            {"CONTAINS_OP", JumpNone},
	OpSetupLoop:             {"SETUP_LOOP", JumpRelative},
	OpJumpIfNotExcMatch:     {"JUMP_IF_NOT_EXC_MATCH", JumpAbsolute},
	OpSetupFinally:          {"SETUP_FINALLY", JumpRelative},
	OpLoadFast:              {"LOAD_FAST", JumpNone},
	OpStoreFast:             {"STORE_FAST", JumpNone},
	OpDeleteFast:            {"DELETE_FAST", JumpNone},
	OpGenStart:              {"GEN_START", JumpNone},
	OpRaiseVarargs:          {"RAISE_VARARGS", JumpNone},
	OpCallFunction:          {"CALL_FUNCTION", JumpNone},
	OpMakeFunction:          {"MAKE_FUNCTION", JumpNone},
	OpBuildSlice:            {"BUILD_SLICE", JumpNone},
	OpLoadClosure:           {"LOAD_CLOSURE", JumpNone},
	OpLoadDeref:             {"LOAD_DEREF", JumpNone},
	OpStoreDeref:            {"STORE_DEREF", JumpNone},
	OpDeleteDeref:           {"DELETE_DEREF", JumpNone},
	OpCallFunctionKw:        {"CALL_FUNCTION_KW", JumpNone},
	OpCallFunctionEx:        {"CALL_FUNCTION_EX", JumpNone},
	OpListAppend:            {"LIST_APPEND", JumpNone},
	OpSetAdd:                {"SET_ADD", JumpNone},
	OpMapAdd:                {"MAP_ADD", JumpNone},
	OpLoadClassDeref:        {"LOAD_CLASSDEREF", JumpNone},
	OpFormatValue:           {"FORMAT_VALUE", JumpNone},
	OpBuildConstKeyMap:      {"BUILD_CONST_KEY_MAP", JumpNone},
	OpBuildString:           {"BUILD_STRING", JumpNone},
	OpLoadMethod:            {"LOAD_METHOD", JumpNone},
	OpCallMethod:            {"CALL_METHOD", JumpNone},
	OpListExtend:            {"LIST_EXTEND", JumpNone},
	OpSetUpdate:             {"SET_UPDATE", JumpNone},
	OpDictMerge:             {"DICT_MERGE", JumpNone},
	OpDictUpdate:            {"DICT_UPDATE", JumpNone},
	OpContinueLoop:          {"CONTINUE_LOOP", JumpAbsolute},
	OpSetupExcept:           {"SETUP_EXCEPT", JumpRelative},
}

var byName = func() map[string]Opcode {
	out := make(map[string]Opcode, len(definitions))
	for op, def := range definitions {
		out[def.Name] = op
	}
	return out
}()

func Lookup(op Opcode) (*Definition, bool) {
	def, ok := definitions[op]
	return def, ok
}

// LookupName resolves a CPython-style mnemonic such as "LOAD_FAST".
func LookupName(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return def.Name
	}
	return fmt.Sprintf("OP_%d", byte(op))
}

func (op Opcode) HasArg() bool { return op >= HaveArgument }

func Make(op Opcode, arg ...int) Instruction {
	ins := Instruction{Op: op}
	if len(arg) > 0 {
		ins.Arg = arg[0]
	}
	return ins
}

// JumpTarget returns the instruction index a jump at index ip lands on.
func (ins Instruction) JumpTarget(ip int) (int, bool) {
	def, ok := definitions[ins.Op]
	if !ok {
		return 0, false
	}
	switch def.Jump {
	case JumpRelative:
		return ip + 1 + ins.Arg, true
	case JumpAbsolute:
		return ins.Arg, true
	default:
		return 0, false
	}
}
