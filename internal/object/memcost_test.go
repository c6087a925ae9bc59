package object

import "testing"

func TestMemCostBasics(t *testing.T) {
	if got := CostStr(5); got != memStrHead+5 {
		t.Fatalf("CostStr mismatch: got %d", got)
	}
	if got := CostList(3); got != memListHead+3*memPtrSize {
		t.Fatalf("CostList mismatch: got %d", got)
	}
	if got := CostListElements(3); got != 3*memPtrSize {
		t.Fatalf("CostListElements mismatch: got %d", got)
	}
	if got := CostTuple(2); got != memTupleHead+2*memPtrSize {
		t.Fatalf("CostTuple mismatch: got %d", got)
	}
	if got := CostDict(4); got != memDictHead+4*memDictEntry {
		t.Fatalf("CostDict mismatch: got %d", got)
	}
	if got := CostFunction(2); got != memFunctionHead+2*memPtrSize {
		t.Fatalf("CostFunction mismatch: got %d", got)
	}
}

func TestCostOfScalarsIsZero(t *testing.T) {
	for _, o := range []Object{&Int{Value: 1}, &Float{Value: 2}, True, None} {
		if got := CostOf(o); got != 0 {
			t.Fatalf("expected %s to be free, got %d", o.Type(), got)
		}
	}
	if got := CostOf(&List{Elements: []Object{None, None}}); got != CostList(2) {
		t.Fatalf("expected list cost %d, got %d", CostList(2), got)
	}
}

func TestCostFrameCountsSlots(t *testing.T) {
	c := &Code{VarNames: []string{"a", "b"}, CellVars: []string{"c"}}
	if got := CostFrame(c); got != memFrameHead+3*memPtrSize {
		t.Fatalf("CostFrame mismatch: got %d", got)
	}
}
