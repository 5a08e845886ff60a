package finance

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("transaction not found")
	// ErrConflict means the status moved since the caller read it.
	ErrConflict = errors.New("transaction status was changed concurrently")
)

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// UpdateStatus moves a transaction from one status to another, failing
	// with ErrConflict when it is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	// List returns every transaction, newest first.
	List(ctx context.Context) ([]*Transaction, error)
}

type MemoryRepo struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]*Transaction
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{txs: make(map[uuid.UUID]*Transaction)}
}

func (r *MemoryRepo) Create(_ context.Context, t *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	r.txs[t.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != from {
		return ErrConflict
	}
	t.Status = to
	return nil
}

func (r *MemoryRepo) List(_ context.Context) ([]*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Transaction, 0, len(r.txs))
	for _, t := range r.txs {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
