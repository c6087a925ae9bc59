package limits

import "fmt"

// DefaultMaxDepth is the frame depth allowed when no limit is configured.
const DefaultMaxDepth = 1000

// Limits bounds one interpreter run. Zero MaxSteps or MaxMemory means
// unlimited; zero MaxDepth means DefaultMaxDepth.
type Limits struct {
	MaxDepth  int
	MaxSteps  int64
	MaxMemory int64
}

func (l Limits) Depth() int {
	if l.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return l.MaxDepth
}

type Budget struct {
	limit int64
	used  int64
}

func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used
}

func MaxMemoryMessage(limit int64) string {
	return fmt.Sprintf("max memory exceeded (%d bytes)", limit)
}

type MaxMemoryError struct {
	Limit int64
}

func (e MaxMemoryError) Error() string {
	return MaxMemoryMessage(e.Limit)
}

func (b *Budget) Charge(n int64) error {
	if b == nil || b.limit == 0 {
		return nil
	}
	if n <= 0 {
		return nil
	}
	if b.used+n > b.limit {
		return MaxMemoryError{Limit: b.limit}
	}
	b.used += n
	return nil
}

// Release returns n bytes charged earlier, for allocations whose lifetime
// the interpreter tracks itself, such as frames.
func (b *Budget) Release(n int64) {
	if b == nil || n <= 0 {
		return
	}
	b.used -= n
	if b.used < 0 {
		b.used = 0
	}
}

func MaxStepsMessage(limit int64) string {
	return fmt.Sprintf("max instruction count exceeded (%d)", limit)
}

type MaxStepsError struct {
	Limit int64
}

func (e MaxStepsError) Error() string {
	return MaxStepsMessage(e.Limit)
}

// Steps counts executed instructions. Once the limit is hit it reports
// the error a single time and then stops counting, so a handler that
// catches it can still run.
type Steps struct {
	limit int64
	used  int64
	spent bool
}

func NewSteps(limit int64) *Steps {
	if limit < 0 {
		limit = 0
	}
	return &Steps{limit: limit}
}

func (s *Steps) Used() int64 {
	if s == nil {
		return 0
	}
	return s.used
}

func (s *Steps) Tick() error {
	if s == nil {
		return nil
	}
	s.used++
	if s.limit == 0 || s.spent || s.used <= s.limit {
		return nil
	}
	s.spent = true
	return MaxStepsError{Limit: s.limit}
}

const MaxDepthMessage = "maximum recursion depth exceeded"
