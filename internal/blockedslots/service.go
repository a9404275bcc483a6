package blockedslots

import (
	"context"
	"errors"
	"strings"

	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/clinicbook/clinic-booking/internal/calendar"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// Service applies the blocked-slot rules on top of a Repository.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Block takes date/time out of availability. Existing appointments in that slot are left alone.
func (s *Service) Block(ctx context.Context, req CreateRequest) (*Slot, error) {
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Reason = strings.TrimSpace(req.Reason)

	var missing []string
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return nil, apperr.MissingFields(missing...)
	}
	if !calendar.ValidDate(req.Date) {
		return nil, apperr.Validation("invalid date format, expected YYYY-MM-DD", "date")
	}
	clock, err := calendar.ParseClock(req.Time)
	if err != nil {
		return nil, apperr.Validation("invalid time format, expected HH:mm", "time")
	}
	if !clock.OnGrid() {
		return nil, apperr.Validation("time must fall on a 30-minute slot", "time")
	}

	times, err := s.repo.TimesOn(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	for _, t := range times {
		if t == req.Time {
			return nil, apperr.Conflict("this time slot is already blocked")
		}
	}

	slot, err := s.repo.Create(ctx, req)
	if errors.Is(err, ErrDuplicate) {
		return nil, apperr.Conflict("this time slot is already blocked")
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("slot blocked", "id", slot.ID, "date", slot.Date, "time", slot.Time)
	return slot, nil
}

// Unblock removes a blocked slot by id.
func (s *Service) Unblock(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("blocked slot not found")
	}
	return err
}

// ListByDate returns the blocked slots of one date.
func (s *Service) ListByDate(ctx context.Context, date string) ([]*Slot, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, apperr.MissingFields("date")
	}
	if !calendar.ValidDate(date) {
		return nil, apperr.Validation("invalid date format, expected YYYY-MM-DD", "date")
	}
	return s.repo.ListByDate(ctx, date)
}

// ListAll returns every blocked slot ordered by date and time.
func (s *Service) ListAll(ctx context.Context) ([]*Slot, error) {
	return s.repo.ListAll(ctx)
}
