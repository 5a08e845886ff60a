package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klinik/klinik/internal/platform/metrics"
)

var ErrValidation = errors.New("invalid inventory input")

type Service struct {
	repo   Repository
	strict bool
	logger zerolog.Logger
	now    func() time.Time

	// mu serializes movements within this process; the repository row lock
	// covers other processes sharing the database.
	mu sync.Mutex
}

// NewService wires inventory. With strict set, stock-out beyond what is on
// hand fails instead of clamping to zero.
func NewService(repo Repository, strict bool, logger zerolog.Logger) *Service {
	return &Service{repo: repo, strict: strict, logger: logger, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func validateMedicine(m *Medicine) error {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case !validMedicineTypes[m.Type]:
		return fmt.Errorf("%w: invalid type %q", ErrValidation, m.Type)
	case m.PricePerUnit < 0:
		return fmt.Errorf("%w: price_per_unit must not be negative", ErrValidation)
	case m.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	case m.MinimumStock < 0:
		return fmt.Errorf("%w: minimum_stock must not be negative", ErrValidation)
	case strings.TrimSpace(m.Unit) == "":
		return fmt.Errorf("%w: unit is required", ErrValidation)
	}
	return nil
}

func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if err := validateMedicine(m); err != nil {
		return err
	}
	m.ID = uuid.New()
	m.CreatedAt = s.now()
	return s.repo.CreateMedicine(ctx, m)
}

// UpdateMedicine edits the descriptive fields. Stock, price and restock
// date keep their stored values; they change through movements and
// UpdatePrice.
func (s *Service) UpdateMedicine(ctx context.Context, m *Medicine) error {
	existing, err := s.repo.GetMedicine(ctx, m.ID)
	if err != nil {
		return err
	}
	m.Stock = existing.Stock
	m.PricePerUnit = existing.PricePerUnit
	m.LastRestocked = existing.LastRestocked
	m.CreatedAt = existing.CreatedAt
	if err := validateMedicine(m); err != nil {
		return err
	}
	return s.repo.UpdateMedicine(ctx, m)
}

func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteMedicine(ctx, id)
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.repo.GetMedicine(ctx, id)
}

// ListMedicines optionally narrows by a case-insensitive match on name or
// active ingredient.
func (s *Service) ListMedicines(ctx context.Context, search string) ([]*Medicine, error) {
	all, err := s.repo.ListMedicines(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return all, nil
	}
	out := []*Medicine{}
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Name), q) || strings.Contains(strings.ToLower(m.ActiveIngredient), q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) LowStock(ctx context.Context) ([]*Medicine, error) {
	all, err := s.repo.ListMedicines(ctx)
	if err != nil {
		return nil, err
	}
	return FilterLowStock(all), nil
}

// RecordMovement applies mv to its medicine and stores both in one
// transaction. It returns the medicine as it is after the movement.
func (s *Service) RecordMovement(ctx context.Context, mv *StockMovement, by string) (*Medicine, error) {
	if mv.Type != MovementIn && mv.Type != MovementOut {
		return nil, fmt.Errorf("%w: movement type must be in or out", ErrValidation)
	}
	if mv.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if strings.TrimSpace(mv.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out *Medicine
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetMedicineForUpdate(ctx, mv.MedicineID)
		if err != nil {
			return err
		}
		now := s.now()
		before := m.Stock
		if s.strict {
			if err := ApplyMovementStrict(m, *mv, now); err != nil {
				return err
			}
		} else {
			ApplyMovement(m, *mv, now)
		}
		if err := s.repo.UpdateMedicine(ctx, m); err != nil {
			return err
		}
		mv.ID = uuid.New()
		mv.CreatedAt = now
		mv.CreatedBy = by
		if err := s.repo.AddMovement(ctx, mv); err != nil {
			return err
		}
		if mv.Type == MovementOut && before-mv.Quantity < 0 {
			s.logger.Warn().Str("medicine_id", m.ID.String()).Int("stock", before).Int("requested", mv.Quantity).Msg("stock out exceeded stock on hand, clamped to zero")
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordStockMovement(string(mv.Type))
	if out.LowStock() {
		s.logger.Info().Str("medicine_id", out.ID.String()).Str("name", out.Name).Int("stock", out.Stock).Msg("medicine at or below minimum stock")
	}
	return out, nil
}

func (s *Service) Movements(ctx context.Context, medicineID uuid.UUID) ([]*StockMovement, error) {
	if _, err := s.repo.GetMedicine(ctx, medicineID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, medicineID)
}

// UpdatePrice sets a new unit price and appends it to the price history.
func (s *Service) UpdatePrice(ctx context.Context, id uuid.UUID, price float64, by string) (*Medicine, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: price_per_unit must not be negative", ErrValidation)
	}
	var out *Medicine
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetMedicineForUpdate(ctx, id)
		if err != nil {
			return err
		}
		m.PricePerUnit = price
		if err := s.repo.UpdateMedicine(ctx, m); err != nil {
			return err
		}
		out = m
		return s.repo.AddPriceChange(ctx, &PriceChange{MedicineID: id, PricePerUnit: price, DateChanged: s.now(), ChangedBy: by})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) PriceHistory(ctx context.Context, id uuid.UUID) ([]*PriceChange, error) {
	return s.repo.ListPriceChanges(ctx, id)
}
