package blockedslots

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists blocked slots.
type Repository interface {
	Create(ctx context.Context, req CreateRequest) (*Slot, error)
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, date string) ([]*Slot, error)
	ListAll(ctx context.Context) ([]*Slot, error)
	// TimesOn returns just the blocked HH:mm values for date.
	TimesOn(ctx context.Context, date string) ([]string, error)
}

// InMemoryRepository is a process-local Repository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	slots map[string]*Slot
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{slots: make(map[string]*Slot)}
}

func (r *InMemoryRepository) Create(ctx context.Context, req CreateRequest) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.Date == req.Date && s.Time == req.Time {
			return nil, ErrDuplicate
		}
	}
	slot := &Slot{
		ID:        uuid.NewString(),
		Date:      req.Date,
		Time:      req.Time,
		Reason:    req.Reason,
		CreatedAt: time.Now().UTC(),
	}
	r.slots[slot.ID] = slot
	copied := *slot
	return &copied, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[id]; !ok {
		return ErrNotFound
	}
	delete(r.slots, id)
	return nil
}

func (r *InMemoryRepository) ListByDate(ctx context.Context, date string) ([]*Slot, error) {
	return r.list(func(s *Slot) bool { return s.Date == date }), nil
}

func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Slot, error) {
	return r.list(func(*Slot) bool { return true }), nil
}

func (r *InMemoryRepository) TimesOn(ctx context.Context, date string) ([]string, error) {
	slots := r.list(func(s *Slot) bool { return s.Date == date })
	times := make([]string, len(slots))
	for i, s := range slots {
		times[i] = s.Time
	}
	return times, nil
}

func (r *InMemoryRepository) list(keep func(*Slot) bool) []*Slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Slot, 0)
	for _, s := range r.slots {
		if keep(s) {
			copied := *s
			out = append(out, &copied)
		}
	}
	sortSlots(out)
	return out
}

func sortSlots(slots []*Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return slots[i].Time < slots[j].Time
	})
}
