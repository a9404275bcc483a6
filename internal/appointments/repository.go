package appointments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments. Implementations enforce that at most one active
// appointment holds a date/time pair and that codes are unique, reporting
// ErrSlotTaken and ErrCodeTaken respectively.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	GetByCode(ctx context.Context, code string) (*Appointment, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]*Appointment, error)
	Update(ctx context.Context, appt *Appointment) (*Appointment, error)
	// Delete removes the appointment and returns it as it was stored.
	Delete(ctx context.Context, id string) (*Appointment, error)
	// ActiveTimes lists times of non-cancelled appointments on date, skipping excludeID.
	ActiveTimes(ctx context.Context, date, excludeID string) ([]string, error)
}

// InMemoryRepository is a mutex-guarded Repository for development and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Appointment
	now   func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*Appointment), now: time.Now}
}

func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Code == appt.Code {
			return nil, ErrCodeTaken
		}
	}
	if appt.Status.Active() && r.slotHeldLocked(appt.AppointmentDate, appt.AppointmentTime, "") {
		return nil, ErrSlotTaken
	}

	stored := appt.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := r.now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.items[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return appt.Clone(), nil
}

func (r *InMemoryRepository) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, appt := range r.items {
		if appt.Code == code {
			return appt.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByCode(ctx, code)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	r.mu.RLock()
	out := make([]*Appointment, 0, len(r.items))
	for _, appt := range r.items {
		if filter.Matches(appt) {
			out = append(out, appt.Clone())
		}
	}
	r.mu.RUnlock()

	sortAppointments(out, filter.Sort)
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[appt.ID]; !ok {
		return nil, ErrNotFound
	}
	if appt.Status.Active() && r.slotHeldLocked(appt.AppointmentDate, appt.AppointmentTime, appt.ID) {
		return nil, ErrSlotTaken
	}
	stored := appt.Clone()
	stored.UpdatedAt = r.now().UTC()
	r.items[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.items, id)
	return appt, nil
}

func (r *InMemoryRepository) ActiveTimes(ctx context.Context, date, excludeID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var times []string
	for _, appt := range r.items {
		if appt.AppointmentDate == date && appt.Status.Active() && appt.ID != excludeID {
			times = append(times, appt.AppointmentTime)
		}
	}
	sort.Strings(times)
	return times, nil
}

func (r *InMemoryRepository) slotHeldLocked(date, at, excludeID string) bool {
	for _, existing := range r.items {
		if existing.ID != excludeID && existing.Status.Active() &&
			existing.AppointmentDate == date && existing.AppointmentTime == at {
			return true
		}
	}
	return false
}

func sortAppointments(list []*Appointment, order SortOrder) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		ka := a.AppointmentDate + " " + a.AppointmentTime
		kb := b.AppointmentDate + " " + b.AppointmentTime
		if ka == kb {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if order == SortDescending {
			return ka > kb
		}
		return ka < kb
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
