package inventory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("medicine not found")

type Repository interface {
	// WithinTx runs fn so that the reads and writes it makes commit together.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateMedicine(ctx context.Context, m *Medicine) error
	GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error)
	// GetMedicineForUpdate locks the row until the surrounding transaction ends.
	GetMedicineForUpdate(ctx context.Context, id uuid.UUID) (*Medicine, error)
	UpdateMedicine(ctx context.Context, m *Medicine) error
	DeleteMedicine(ctx context.Context, id uuid.UUID) error
	// ListMedicines returns medicines ordered by name.
	ListMedicines(ctx context.Context) ([]*Medicine, error)

	AddMovement(ctx context.Context, mv *StockMovement) error
	// ListMovements returns a medicine's movements, newest first.
	ListMovements(ctx context.Context, medicineID uuid.UUID) ([]*StockMovement, error)

	AddPriceChange(ctx context.Context, pc *PriceChange) error
	ListPriceChanges(ctx context.Context, medicineID uuid.UUID) ([]*PriceChange, error)
}

type MemoryRepo struct {
	mu        sync.RWMutex
	medicines map[uuid.UUID]*Medicine
	movements []*StockMovement
	prices    []*PriceChange
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{medicines: make(map[uuid.UUID]*Medicine)}
}

// WithinTx has nothing to roll back in memory; the service serializes
// movements itself.
func (r *MemoryRepo) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *MemoryRepo) CreateMedicine(_ context.Context, m *Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	r.medicines[m.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetMedicine(_ context.Context, id uuid.UUID) (*Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.medicines[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepo) GetMedicineForUpdate(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return r.GetMedicine(ctx, id)
}

func (r *MemoryRepo) UpdateMedicine(_ context.Context, m *Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.medicines[m.ID]; !ok {
		return ErrNotFound
	}
	cp := *m
	r.medicines[m.ID] = &cp
	return nil
}

func (r *MemoryRepo) DeleteMedicine(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.medicines[id]; !ok {
		return ErrNotFound
	}
	delete(r.medicines, id)
	return nil
}

func (r *MemoryRepo) ListMedicines(_ context.Context) ([]*Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Medicine, 0, len(r.medicines))
	for _, m := range r.medicines {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (r *MemoryRepo) AddMovement(_ context.Context, mv *StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	cp := *mv
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *MemoryRepo) ListMovements(_ context.Context, medicineID uuid.UUID) ([]*StockMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*StockMovement{}
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].MedicineID == medicineID {
			cp := *r.movements[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepo) AddPriceChange(_ context.Context, pc *PriceChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *pc
	r.prices = append(r.prices, &cp)
	return nil
}

func (r *MemoryRepo) ListPriceChanges(_ context.Context, medicineID uuid.UUID) ([]*PriceChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*PriceChange{}
	for i := len(r.prices) - 1; i >= 0; i-- {
		if r.prices[i].MedicineID == medicineID {
			cp := *r.prices[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
