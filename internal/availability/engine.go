package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/clinicbook/clinic-booking/internal/calendar"
	"github.com/clinicbook/clinic-booking/internal/observability/metrics"
	"github.com/clinicbook/clinic-booking/internal/settings"
)

var availabilityTracer = otel.Tracer("clinic.internal.availability")

// DefaultLeadTime is the minimum gap between now and a bookable slot.
const DefaultLeadTime = time.Hour

// BookedTimes lists times held by non-cancelled appointments on a date.
type BookedTimes interface {
	ActiveTimes(ctx context.Context, date, excludeID string) ([]string, error)
}

// BlockedTimes lists times an administrator has blocked on a date.
type BlockedTimes interface {
	TimesOn(ctx context.Context, date string) ([]string, error)
}

// HoursSource provides the clinic's weekly working hours.
type HoursSource interface {
	WorkingHours(ctx context.Context) (settings.WorkingHours, error)
}

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	LeadTime time.Duration
	Location *time.Location
	Now      func() time.Time
	Metrics  *metrics.BookingMetrics
}

// Engine answers availability questions against live repository state.
type Engine struct {
	booked  BookedTimes
	blocked BlockedTimes
	hours   HoursSource

	lead    time.Duration
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.BookingMetrics
}

func NewEngine(booked BookedTimes, blocked BlockedTimes, hours HoursSource, opts Options) *Engine {
	e := &Engine{
		booked:  booked,
		blocked: blocked,
		hours:   hours,
		lead:    opts.LeadTime,
		loc:     opts.Location,
		now:     opts.Now,
		metrics: opts.Metrics,
	}
	if e.lead <= 0 {
		e.lead = DefaultLeadTime
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// AvailableSlots lists the bookable HH:mm times on date in ascending order.
func (e *Engine) AvailableSlots(ctx context.Context, date string) ([]string, error) {
	started := time.Now()
	defer func() { e.metrics.ObserveAvailability("available_slots", time.Since(started).Seconds()) }()

	day, err := calendar.ParseDate(date, e.loc)
	if err != nil {
		return nil, apperr.Validation("invalid date format, expected YYYY-MM-DD", "date")
	}
	start, end, open, err := e.dayBounds(ctx, day)
	if err != nil {
		return nil, err
	}
	if !open {
		return []string{}, nil
	}

	occupied, err := e.occupied(ctx, date, "")
	if err != nil {
		return nil, err
	}

	slots := FilterSlots(day, calendar.Grid(start, end), occupied, e.now(), e.lead)
	out := make([]string, len(slots))
	for i, c := range slots {
		out[i] = c.String()
	}
	return out, nil
}

// OccupiedTimes returns the union of booked and blocked times on date, ascending.
func (e *Engine) OccupiedTimes(ctx context.Context, date string) ([]string, error) {
	started := time.Now()
	defer func() { e.metrics.ObserveAvailability("occupied", time.Since(started).Seconds()) }()

	if !calendar.ValidDate(date) {
		return nil, apperr.Validation("invalid date format, expected YYYY-MM-DD", "date")
	}
	occupied, err := e.occupied(ctx, date, "")
	if err != nil {
		return nil, err
	}
	clocks := make([]int, 0, len(occupied))
	for c := range occupied {
		clocks = append(clocks, int(c))
	}
	sort.Ints(clocks)
	out := make([]string, len(clocks))
	for i, c := range clocks {
		out[i] = calendar.Clock(c).String()
	}
	return out, nil
}

// CheckSlot verifies that date/at can be booked right now. It returns a validation error
// for malformed, off-grid, closed or too-soon slots and a conflict error when the slot is
// booked or blocked. excludeID ignores one appointment so a booking can be moved in place.
func (e *Engine) CheckSlot(ctx context.Context, date, at, excludeID string) (err error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.check_slot", trace.WithAttributes(
		attribute.String("clinic.slot_date", date),
		attribute.String("clinic.slot_time", at),
	))
	defer func() {
		if err != nil {
			span.SetAttributes(attribute.String("clinic.slot_rejection", string(apperr.KindOf(err))))
		}
		span.End()
	}()

	day, clock, err := e.parseSlot(date, at)
	if err != nil {
		return err
	}
	start, end, open, err := e.dayBounds(ctx, day)
	if err != nil {
		return err
	}
	if !open || clock < start || clock >= end {
		return apperr.Validation("the clinic is closed at the requested time", "appointmentTime")
	}
	if calendar.At(day, clock).Before(e.now().Add(e.lead)) {
		return apperr.Validation(fmt.Sprintf("appointments must be booked at least %s in advance", humanDuration(e.lead)), "appointmentTime")
	}
	return e.CheckConflict(ctx, date, at, excludeID)
}

// CheckConflict reports a conflict error when the slot is already booked or blocked.
// Working hours and lead time are not considered.
func (e *Engine) CheckConflict(ctx context.Context, date, at, excludeID string) error {
	if _, _, err := e.parseSlot(date, at); err != nil {
		return err
	}
	booked, err := e.booked.ActiveTimes(ctx, date, excludeID)
	if err != nil {
		return fmt.Errorf("availability: booked times: %w", err)
	}
	for _, t := range booked {
		if t == at {
			return apperr.Conflict("this time slot is already booked")
		}
	}
	blocked, err := e.blocked.TimesOn(ctx, date)
	if err != nil {
		return fmt.Errorf("availability: blocked times: %w", err)
	}
	for _, t := range blocked {
		if t == at {
			return apperr.Conflict("this time slot is not available")
		}
	}
	return nil
}

// IsBookable reports whether at appears among the available slots of date.
func (e *Engine) IsBookable(ctx context.Context, date, at string) (bool, error) {
	err := e.CheckSlot(ctx, date, at, "")
	switch {
	case err == nil:
		return true, nil
	case apperr.IsKind(err, apperr.KindValidation), apperr.IsKind(err, apperr.KindConflict):
		return false, nil
	default:
		return false, err
	}
}

func (e *Engine) parseSlot(date, at string) (time.Time, calendar.Clock, error) {
	day, err := calendar.ParseDate(date, e.loc)
	if err != nil {
		return time.Time{}, 0, apperr.Validation("invalid date format, expected YYYY-MM-DD", "appointmentDate")
	}
	clock, err := calendar.ParseClock(at)
	if err != nil {
		return time.Time{}, 0, apperr.Validation("invalid time format, expected HH:mm", "appointmentTime")
	}
	if !clock.OnGrid() {
		return time.Time{}, 0, apperr.Validation("appointment time must fall on a 30-minute slot", "appointmentTime")
	}
	return day, clock, nil
}

// dayBounds resolves the working interval for day. open is false for closed or unconfigured days.
func (e *Engine) dayBounds(ctx context.Context, day time.Time) (calendar.Clock, calendar.Clock, bool, error) {
	hours, err := e.hours.WorkingHours(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	if hours == nil {
		return 0, 0, false, apperr.Configuration("working hours are not configured", nil)
	}
	dh, ok := hours.ForWeekday(day.Weekday())
	if !ok || dh.Closed() {
		return 0, 0, false, nil
	}
	start, end, err := dh.Bounds()
	if err != nil {
		return 0, 0, false, apperr.Configuration("working hours for "+calendar.WeekdayKey(day.Weekday())+" are malformed", err)
	}
	return start, end, end > start, nil
}

func (e *Engine) occupied(ctx context.Context, date, excludeID string) (map[calendar.Clock]struct{}, error) {
	booked, err := e.booked.ActiveTimes(ctx, date, excludeID)
	if err != nil {
		return nil, fmt.Errorf("availability: booked times: %w", err)
	}
	blocked, err := e.blocked.TimesOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("availability: blocked times: %w", err)
	}
	out := make(map[calendar.Clock]struct{}, len(booked)+len(blocked))
	for _, list := range [][]string{booked, blocked} {
		for _, t := range list {
			c, err := calendar.ParseClock(t)
			if err != nil {
				continue
			}
			out[c] = struct{}{}
		}
	}
	return out, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}
