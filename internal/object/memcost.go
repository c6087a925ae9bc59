package object

const (
	memPtrSize       int64 = 8
	memStrHead       int64 = 48
	memListHead      int64 = 56
	memTupleHead     int64 = 40
	memDictHead      int64 = 64
	memDictEntry     int64 = 24
	memSetHead       int64 = 200
	memSetEntry      int64 = 16
	memExceptionHead int64 = 64
	memFunctionHead  int64 = 136
	memCellHead      int64 = 40
	memFrameHead     int64 = 112
	memGeneratorHead int64 = 104
)

func CostStr(n int) int64 {
	if n < 0 {
		return memStrHead
	}
	return memStrHead + int64(n)
}

func CostList(n int) int64 {
	if n < 0 {
		return memListHead
	}
	return memListHead + int64(n)*memPtrSize
}

func CostListElements(n int) int64 {
	if n <= 0 {
		return 0
	}
	return int64(n) * memPtrSize
}

func CostTuple(n int) int64 {
	if n < 0 {
		return memTupleHead
	}
	return memTupleHead + int64(n)*memPtrSize
}

func CostDict(n int) int64 {
	if n < 0 {
		return memDictHead
	}
	return memDictHead + int64(n)*memDictEntry
}

func CostDictEntry() int64 { return memDictEntry }

func CostSet(n int) int64 {
	if n < 0 {
		return memSetHead
	}
	return memSetHead + int64(n)*memSetEntry
}

func CostSetEntry() int64 { return memSetEntry }

func CostException() int64 { return memExceptionHead }

func CostFunction(numFree int) int64 {
	if numFree < 0 {
		return memFunctionHead
	}
	return memFunctionHead + int64(numFree)*memPtrSize
}

func CostCell() int64 { return memCellHead }

// CostFrame charges for the value slots of a new activation record.
func CostFrame(c *Code) int64 {
	if c == nil {
		return memFrameHead
	}
	slots := len(c.VarNames) + len(c.CellVars) + len(c.FreeVars)
	return memFrameHead + int64(slots)*memPtrSize
}

func CostGenerator() int64 { return memGeneratorHead }

// CostOf estimates the footprint of a freshly built value. Scalars and
// shared singletons cost nothing.
func CostOf(o Object) int64 {
	switch v := o.(type) {
	case *Str:
		return CostStr(len(v.Value))
	case *List:
		return CostList(len(v.Elements))
	case *Tuple:
		return CostTuple(len(v.Elements))
	case *Dict:
		return CostDict(v.Len())
	case *Set:
		return CostSet(v.Len())
	case *Exception:
		return CostException()
	case *Function:
		return CostFunction(len(v.Closure))
	case *Cell:
		return CostCell()
	case *Generator:
		return CostGenerator()
	}
	return 0
}
