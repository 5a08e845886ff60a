package inventory

import (
	"errors"
	"fmt"
	"time"
)

var ErrInsufficientStock = errors.New("insufficient stock")

func restockDay(now time.Time) *time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return &d
}

// ApplyMovement applies one movement to m. Stock in adds and records the
// restock date; stock out subtracts and clamps at zero. The clamp is per
// movement, so a later restock starts from zero rather than from a deficit.
func ApplyMovement(m *Medicine, mv StockMovement, now time.Time) {
	switch mv.Type {
	case MovementIn:
		m.Stock += mv.Quantity
		m.LastRestocked = restockDay(now)
	case MovementOut:
		m.Stock -= mv.Quantity
		if m.Stock < 0 {
			m.Stock = 0
		}
	}
}

// ApplyMovementStrict is ApplyMovement without the clamp: taking out more
// than is on hand fails with ErrInsufficientStock and leaves m unchanged.
func ApplyMovementStrict(m *Medicine, mv StockMovement, now time.Time) error {
	if mv.Type == MovementOut && mv.Quantity > m.Stock {
		return fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, m.Name, m.Stock, mv.Quantity)
	}
	ApplyMovement(m, mv, now)
	return nil
}

// FilterLowStock keeps medicines at or below their minimum.
func FilterLowStock(ms []*Medicine) []*Medicine {
	out := []*Medicine{}
	for _, m := range ms {
		if m.LowStock() {
			out = append(out, m)
		}
	}
	return out
}
