package code

import "math/bits"

// StackEffect reports the net operand-stack change of an instruction that
// completes in place. jump selects the taken branch for conditional jumps.
// Instructions that leave the frame or unwind blocks (RETURN_VALUE,
// RAISE_VARARGS, RERAISE, BREAK_LOOP, CONTINUE_LOOP, YIELD_*) report ok=false.
func StackEffect(op Opcode, arg int, jump bool) (effect int, ok bool) {
	switch op {
	case OpNop, OpRotTwo, OpRotThree, OpRotFour, OpRotN,
		OpUnaryPositive, OpUnaryNegative, OpUnaryNot, OpUnaryInvert,
		OpGetIter, OpGetYieldFromIter, OpListToTuple, OpLoadAttr,
		OpJumpForward, OpJumpAbsolute, OpSetupLoop, OpSetupExcept, OpSetupFinally,
		OpPopBlock, OpPopExcept, OpGenStart,
		OpDeleteName, OpDeleteFast, OpDeleteGlobal, OpDeleteDeref:
		return 0, true

	case OpPopTop:
		return -1, true
	case OpDupTop:
		return 1, true
	case OpDupTopTwo:
		return 2, true

	case OpBinaryMatrixMultiply, OpInplaceMatrixMultiply, OpBinaryPower, OpBinaryMultiply,
		OpBinaryModulo, OpBinaryAdd, OpBinarySubtract, OpBinarySubscr, OpBinaryFloorDivide,
		OpBinaryTrueDivide, OpInplaceFloorDivide, OpInplaceTrueDivide, OpInplaceAdd,
		OpInplaceSubtract, OpInplaceMultiply, OpInplaceModulo, OpBinaryLshift, OpBinaryRshift,
		OpBinaryAnd, OpBinaryXor, OpBinaryOr, OpInplacePower, OpInplaceLshift, OpInplaceRshift,
		OpInplaceAnd, OpInplaceXor, OpInplaceOr,
		OpCompareOp, OpIsOp, OpContainsOp:
		return -1, true

	case OpStoreSubscr:
		return -3, true
	case OpDeleteSubscr:
		return -2, true

	case OpLoadConst, OpLoadName, OpLoadGlobal, OpLoadFast, OpLoadDeref, OpLoadClosure,
		OpLoadClassDeref, OpLoadAssertionError, OpLoadMethod:
		return 1, true
	case OpStoreName, OpStoreGlobal, OpStoreFast, OpStoreDeref, OpDeleteAttr:
		return -1, true
	case OpStoreAttr:
		return -2, true

	case OpBuildTuple, OpBuildList, OpBuildSet, OpBuildString, OpBuildSlice:
		return 1 - arg, true
	case OpBuildMap:
		return 1 - 2*arg, true
	case OpBuildConstKeyMap:
		return -arg, true
	case OpListAppend, OpSetAdd, OpListExtend, OpSetUpdate, OpDictMerge, OpDictUpdate:
		return -1, true
	case OpMapAdd:
		return -2, true
	case OpUnpackSequence:
		return arg - 1, true
	case OpUnpackEx:
		return (arg & 0xFF) + (arg >> 8), true
	case OpFormatValue:
		if arg&FormatValueWithSpec != 0 {
			return -1, true
		}
		return 0, true

	case OpPopJumpIfFalse, OpPopJumpIfTrue:
		return -1, true
	case OpJumpIfFalseOrPop, OpJumpIfTrueOrPop:
		if jump {
			return 0, true
		}
		return -1, true
	case OpJumpIfNotExcMatch:
		return -2, true
	case OpForIter:
		if jump {
			return -1, true
		}
		return 1, true
	case OpEndFinally:
		return -1, true

	case OpMakeFunction:
		return -1 - bits.OnesCount(uint(arg&0x0F)), true
	case OpCallFunction:
		return -arg, true
	case OpCallFunctionKw:
		return -arg - 1, true
	case OpCallFunctionEx:
		return -1 - (arg & 1), true
	case OpCallMethod:
		return -arg - 1, true
	}
	return 0, false
}

// StackInputs is the number of operand-stack values an instruction reads.
// The interpreter checks it before executing so a malformed unit faults
// instead of underflowing.
func StackInputs(op Opcode, arg int) int {
	switch op {
	case OpPopTop, OpDupTop, OpUnaryPositive, OpUnaryNegative, OpUnaryNot, OpUnaryInvert,
		OpGetIter, OpGetYieldFromIter, OpListToTuple, OpLoadAttr, OpLoadMethod, OpDeleteAttr,
		OpStoreName, OpStoreGlobal, OpStoreFast, OpStoreDeref,
		OpUnpackSequence, OpUnpackEx, OpPopJumpIfFalse, OpPopJumpIfTrue,
		OpJumpIfFalseOrPop, OpJumpIfTrueOrPop, OpForIter, OpEndFinally,
		OpReturnValue, OpYieldValue, OpReraise:
		return 1
	case OpRotTwo, OpDupTopTwo, OpStoreAttr, OpDeleteSubscr, OpBinarySubscr,
		OpJumpIfNotExcMatch, OpYieldFrom,
		OpBinaryMatrixMultiply, OpInplaceMatrixMultiply, OpBinaryPower, OpBinaryMultiply,
		OpBinaryModulo, OpBinaryAdd, OpBinarySubtract, OpBinaryFloorDivide,
		OpBinaryTrueDivide, OpInplaceFloorDivide, OpInplaceTrueDivide, OpInplaceAdd,
		OpInplaceSubtract, OpInplaceMultiply, OpInplaceModulo, OpBinaryLshift, OpBinaryRshift,
		OpBinaryAnd, OpBinaryXor, OpBinaryOr, OpInplacePower, OpInplaceLshift, OpInplaceRshift,
		OpInplaceAnd, OpInplaceXor, OpInplaceOr,
		OpCompareOp, OpIsOp, OpContainsOp:
		return 2
	case OpRotThree, OpStoreSubscr:
		return 3
	case OpRotFour:
		return 4
	case OpRotN, OpBuildTuple, OpBuildList, OpBuildSet, OpBuildString, OpBuildSlice, OpRaiseVarargs:
		return arg
	case OpBuildMap:
		return 2 * arg
	case OpBuildConstKeyMap:
		return arg + 1
	case OpListAppend, OpSetAdd, OpListExtend, OpSetUpdate, OpDictMerge, OpDictUpdate:
		return arg + 1
	case OpMapAdd:
		return arg + 2
	case OpFormatValue:
		if arg&FormatValueWithSpec != 0 {
			return 2
		}
		return 1
	case OpMakeFunction:
		return 2 + bits.OnesCount(uint(arg&0x0F))
	case OpCallFunction:
		return arg + 1
	case OpCallFunctionKw, OpCallMethod:
		return arg + 2
	case OpCallFunctionEx:
		return 2 + (arg & 1)
	}
	return 0
}
