package limits

import "testing"

func TestBudgetCharge(t *testing.T) {
	b := NewBudget(10)
	if err := b.Charge(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Charge(6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Charge(1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBudgetRelease(t *testing.T) {
	b := NewBudget(10)
	if err := b.Charge(8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.Release(8)
	if err := b.Charge(8); err != nil {
		t.Fatalf("expected released bytes to be reusable, got %v", err)
	}
	b.Release(100)
	if b.Used() != 0 {
		t.Fatalf("expected usage to floor at 0, got %d", b.Used())
	}
	var none *Budget
	none.Release(1)
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(0)
	if err := b.Charge(1_000_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStepsTickOnce(t *testing.T) {
	s := NewSteps(2)
	for i := 0; i < 2; i++ {
		if err := s.Tick(); err != nil {
			t.Fatalf("unexpected error at step %d: %v", i, err)
		}
	}
	err := s.Tick()
	if err == nil || err.Error() != "max instruction count exceeded (2)" {
		t.Fatalf("expected step limit error, got %v", err)
	}
	if err := s.Tick(); err != nil {
		t.Fatalf("expected limit to be lifted after firing, got %v", err)
	}
	if s.Used() != 4 {
		t.Fatalf("expected 4 steps counted, got %d", s.Used())
	}
}

func TestLimitsDepthDefault(t *testing.T) {
	if got := (Limits{}).Depth(); got != DefaultMaxDepth {
		t.Fatalf("expected default depth %d, got %d", DefaultMaxDepth, got)
	}
	if got := (Limits{MaxDepth: 7}).Depth(); got != 7 {
		t.Fatalf("expected depth 7, got %d", got)
	}
}
