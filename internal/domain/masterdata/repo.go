package masterdata

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrDiagnosisNotFound = errors.New("diagnosis category not found")
	ErrFormulaNotFound   = errors.New("medicine formula not found")
	// ErrDuplicate is returned for a second doctor with the same license
	// number or a second diagnosis category with the same code.
	ErrDuplicate = errors.New("master data entry already exists")
)

type Repository interface {
	CreateDoctor(ctx context.Context, d *Doctor) error
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	UpdateDoctor(ctx context.Context, d *Doctor) error
	// ListDoctors returns doctors ordered by name.
	ListDoctors(ctx context.Context) ([]*Doctor, error)

	CreateDiagnosis(ctx context.Context, d *DiagnosisCategory) error
	GetDiagnosis(ctx context.Context, id uuid.UUID) (*DiagnosisCategory, error)
	UpdateDiagnosis(ctx context.Context, d *DiagnosisCategory) error
	DeleteDiagnosis(ctx context.Context, id uuid.UUID) error
	// ListDiagnoses returns categories ordered by code.
	ListDiagnoses(ctx context.Context) ([]*DiagnosisCategory, error)

	CreateFormula(ctx context.Context, f *MedicineFormula) error
	GetFormula(ctx context.Context, id uuid.UUID) (*MedicineFormula, error)
	UpdateFormula(ctx context.Context, f *MedicineFormula) error
	DeleteFormula(ctx context.Context, id uuid.UUID) error
	// ListFormulas returns formulas ordered by name.
	ListFormulas(ctx context.Context) ([]*MedicineFormula, error)
}

type MemoryRepo struct {
	mu        sync.RWMutex
	doctors   map[uuid.UUID]*Doctor
	diagnoses map[uuid.UUID]*DiagnosisCategory
	formulas  map[uuid.UUID]*MedicineFormula
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		doctors:   make(map[uuid.UUID]*Doctor),
		diagnoses: make(map[uuid.UUID]*DiagnosisCategory),
		formulas:  make(map[uuid.UUID]*MedicineFormula),
	}
}

func cloneDoctor(d *Doctor) *Doctor {
	cp := *d
	cp.Schedule = append([]ScheduleSlot{}, d.Schedule...)
	return &cp
}

func cloneDiagnosis(d *DiagnosisCategory) *DiagnosisCategory {
	cp := *d
	cp.RelatedMedicines = append([]uuid.UUID{}, d.RelatedMedicines...)
	return &cp
}

func cloneFormula(f *MedicineFormula) *MedicineFormula {
	cp := *f
	cp.Medicines = append([]FormulaItem{}, f.Medicines...)
	return &cp
}

func (r *MemoryRepo) licenseTaken(d *Doctor) bool {
	for _, o := range r.doctors {
		if o.ID != d.ID && strings.EqualFold(o.LicenseNumber, d.LicenseNumber) {
			return true
		}
	}
	return false
}

func (r *MemoryRepo) CreateDoctor(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if r.licenseTaken(d) {
		return ErrDuplicate
	}
	r.doctors[d.ID] = cloneDoctor(d)
	return nil
}

func (r *MemoryRepo) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return cloneDoctor(d), nil
}

func (r *MemoryRepo) UpdateDoctor(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[d.ID]; !ok {
		return ErrDoctorNotFound
	}
	if r.licenseTaken(d) {
		return ErrDuplicate
	}
	r.doctors[d.ID] = cloneDoctor(d)
	return nil
}

func (r *MemoryRepo) ListDoctors(_ context.Context) ([]*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		out = append(out, cloneDoctor(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) codeTaken(d *DiagnosisCategory) bool {
	for _, o := range r.diagnoses {
		if o.ID != d.ID && o.Code == d.Code {
			return true
		}
	}
	return false
}

func (r *MemoryRepo) CreateDiagnosis(_ context.Context, d *DiagnosisCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if r.codeTaken(d) {
		return ErrDuplicate
	}
	r.diagnoses[d.ID] = cloneDiagnosis(d)
	return nil
}

func (r *MemoryRepo) GetDiagnosis(_ context.Context, id uuid.UUID) (*DiagnosisCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.diagnoses[id]
	if !ok {
		return nil, ErrDiagnosisNotFound
	}
	return cloneDiagnosis(d), nil
}

func (r *MemoryRepo) UpdateDiagnosis(_ context.Context, d *DiagnosisCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.diagnoses[d.ID]; !ok {
		return ErrDiagnosisNotFound
	}
	if r.codeTaken(d) {
		return ErrDuplicate
	}
	r.diagnoses[d.ID] = cloneDiagnosis(d)
	return nil
}

func (r *MemoryRepo) DeleteDiagnosis(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.diagnoses[id]; !ok {
		return ErrDiagnosisNotFound
	}
	delete(r.diagnoses, id)
	return nil
}

func (r *MemoryRepo) ListDiagnoses(_ context.Context) ([]*DiagnosisCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*DiagnosisCategory, 0, len(r.diagnoses))
	for _, d := range r.diagnoses {
		out = append(out, cloneDiagnosis(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryRepo) CreateFormula(_ context.Context, f *MedicineFormula) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	r.formulas[f.ID] = cloneFormula(f)
	return nil
}

func (r *MemoryRepo) GetFormula(_ context.Context, id uuid.UUID) (*MedicineFormula, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formulas[id]
	if !ok {
		return nil, ErrFormulaNotFound
	}
	return cloneFormula(f), nil
}

func (r *MemoryRepo) UpdateFormula(_ context.Context, f *MedicineFormula) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.formulas[f.ID]; !ok {
		return ErrFormulaNotFound
	}
	r.formulas[f.ID] = cloneFormula(f)
	return nil
}

func (r *MemoryRepo) DeleteFormula(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.formulas[id]; !ok {
		return ErrFormulaNotFound
	}
	delete(r.formulas, id)
	return nil
}

func (r *MemoryRepo) ListFormulas(_ context.Context) ([]*MedicineFormula, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MedicineFormula, 0, len(r.formulas))
	for _, f := range r.formulas {
		out = append(out, cloneFormula(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
