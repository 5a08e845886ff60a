package medicalrecord

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("medical record not found")
	// ErrConflict means the record changed status underneath the caller.
	ErrConflict = errors.New("medical record was modified concurrently")
)

type Repository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	// Update stores r provided the stored record is still in status from.
	Update(ctx context.Context, r *MedicalRecord, from Status) error
	// ListByPatient returns a patient's records, newest consultation first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	List(ctx context.Context) ([]*MedicalRecord, error)
}

// SortNewestFirst orders records by consultation date, newest first. Ties
// keep creation order reversed so the latest entry wins.
func SortNewestFirst(rs []*MedicalRecord) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].ConsultationDate.Equal(rs[j].ConsultationDate) {
			return rs[i].ConsultationDate.After(rs[j].ConsultationDate)
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}

type MemoryRepo struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*MedicalRecord
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[uuid.UUID]*MedicalRecord)}
}

func clone(r *MedicalRecord) *MedicalRecord {
	cp := *r
	cp.Therapies = append([]Therapy(nil), r.Therapies...)
	cp.MedicalActions = append([]MedicalAction(nil), r.MedicalActions...)
	return &cp
}

func (m *MemoryRepo) Create(_ context.Context, r *MedicalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.records[r.ID] = clone(r)
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*MedicalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (m *MemoryRepo) Update(_ context.Context, r *MedicalRecord, from Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[r.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return ErrConflict
	}
	m.records[r.ID] = clone(r)
	return nil
}

func (m *MemoryRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*MedicalRecord{}
	for _, r := range m.records {
		if r.PatientID == patientID {
			out = append(out, clone(r))
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (m *MemoryRepo) List(_ context.Context) ([]*MedicalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*MedicalRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, clone(r))
	}
	SortNewestFirst(out)
	return out, nil
}
