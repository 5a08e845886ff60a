package patient

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("patient not found")
	ErrDuplicateMRN   = errors.New("medical record number already issued")
	ErrImmutableField = errors.New("field cannot be changed after registration")
	ErrValidation     = errors.New("invalid patient")
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// List returns every patient ordered by creation time.
	List(ctx context.Context) ([]*Patient, error)
	CountByCategory(ctx context.Context, category TreatmentCategory) (int, error)
}

// MemoryRepo is a process-local Repository.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Patient
	byMRN map[string]uuid.UUID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:  make(map[uuid.UUID]*Patient),
		byMRN: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepo) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMRN[p.MedicalRecordNumber]; ok {
		return ErrDuplicateMRN
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.byID[p.ID] = &cp
	r.byMRN[p.MedicalRecordNumber] = p.ID
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepo) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	r.mu.RLock()
	id, ok := r.byMRN[mrn]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepo) Update(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *MemoryRepo) List(_ context.Context) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Patient, 0, len(r.byID))
	for _, p := range r.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MedicalRecordNumber < out[j].MedicalRecordNumber
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) CountByCategory(_ context.Context, category TreatmentCategory) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.byID {
		if p.TreatmentCategory == category {
			n++
		}
	}
	return n, nil
}
