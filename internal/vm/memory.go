package vm

import (
	"pyvm/internal/limits"
	"pyvm/internal/object"
)

func (m *VM) memoryError(limit int64) *object.Exception {
	return object.NewException(object.MemoryError, "%s", limits.MaxMemoryMessage(limit))
}

func (m *VM) charge(n int64) error {
	if m.budget == nil {
		return nil
	}
	if err := m.budget.Charge(n); err != nil {
		if memErr, ok := err.(limits.MaxMemoryError); ok {
			return m.memoryError(memErr.Limit)
		}
		return err
	}
	return nil
}

func (m *VM) chargeObject(obj object.Object) error {
	if obj == nil {
		return nil
	}
	cost := object.CostOf(obj)
	if cost == 0 {
		return nil
	}
	return m.charge(cost)
}
