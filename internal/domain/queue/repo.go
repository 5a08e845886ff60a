package queue

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("queue entry not found")
	// ErrConflict means the entry changed status underneath the caller.
	ErrConflict = errors.New("queue entry was modified concurrently")
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// Update writes e only if its stored status is still from.
	Update(ctx context.Context, e *Entry, from Status) error
	// ListByDate returns one day's entries ordered by queue number.
	ListByDate(ctx context.Context, day string) ([]*Entry, error)
	// ListBetween returns entries whose queue date is within [startDay, endDay].
	ListBetween(ctx context.Context, startDay, endDay string) ([]*Entry, error)
}

type MemoryRepo struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: make(map[uuid.UUID]*Entry)}
}

func (r *MemoryRepo) Create(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *MemoryRepo) Update(_ context.Context, e *Entry, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.entries[e.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return ErrConflict
	}
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *MemoryRepo) ListByDate(ctx context.Context, day string) ([]*Entry, error) {
	return r.ListBetween(ctx, day, day)
}

func (r *MemoryRepo) ListBetween(_ context.Context, startDay, endDay string) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Entry{}
	for _, e := range r.entries {
		if e.QueueDate >= startDay && e.QueueDate <= endDay {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueueDate != out[j].QueueDate {
			return out[i].QueueDate < out[j].QueueDate
		}
		return out[i].QueueNumber < out[j].QueueNumber
	})
	return out, nil
}
