package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/clinicbook/clinic-booking/internal/calendar"
	"github.com/clinicbook/clinic-booking/internal/observability/metrics"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

var appointmentsTracer = otel.Tracer("clinic.internal.appointments")

// Event names the change a patient is notified about.
type Event string

const (
	EventCreated   Event = "created"
	EventUpdated   Event = "updated"
	EventCancelled Event = "cancelled"
	// EventDeleted only reaches the event feed; patients are not emailed about it.
	EventDeleted Event = "deleted"
)

// Notifier delivers appointment emails.
type Notifier interface {
	Notify(ctx context.Context, appt *Appointment, event Event) error
}

// SlotChecker validates a requested slot against live availability.
type SlotChecker interface {
	// CheckSlot applies working hours, lead time and occupancy.
	CheckSlot(ctx context.Context, date, at, excludeID string) error
	// CheckConflict applies occupancy only.
	CheckConflict(ctx context.Context, date, at, excludeID string) error
}

// Result is a committed change plus the outcome of its notification.
type Result struct {
	Appointment *Appointment
	// Changed lists the JSON names of fields an update modified.
	Changed []string
	// EmailError is set when the change committed but the email failed.
	EmailError error
}

// EmailErrorMessage returns the advisory text for the response, or nil.
func (r *Result) EmailErrorMessage() *string {
	if r == nil || r.EmailError == nil {
		return nil
	}
	msg := apperr.MessageOf(r.EmailError, "email could not be sent")
	return &msg
}

// Options configures optional Service collaborators.
type Options struct {
	Notifier Notifier
	// Feed receives every committed change. Its failures are logged, never returned.
	Feed          Notifier
	Metrics       *metrics.BookingMetrics
	Codes         CodeGenerator
	NotifyTimeout time.Duration
}

// Service runs the booking workflow.
type Service struct {
	repo          Repository
	slots         SlotChecker
	notifier      Notifier
	feed          Notifier
	metrics       *metrics.BookingMetrics
	codes         CodeGenerator
	notifyTimeout time.Duration
	logger        *logging.Logger
}

// NewService constructs an appointments service.
func NewService(repo Repository, slots SlotChecker, opts Options, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if slots == nil {
		panic("appointments: slot checker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:          repo,
		slots:         slots,
		notifier:      opts.Notifier,
		feed:          opts.Feed,
		metrics:       opts.Metrics,
		codes:         opts.Codes,
		notifyTimeout: opts.NotifyTimeout,
		logger:        logger,
	}
	if s.codes == nil {
		s.codes = RandomCode
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = 10 * time.Second
	}
	return s
}

// Create books a slot for a patient.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.create")
	defer span.End()

	appt, err := s.create(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking(bookingOutcome(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("clinic.appointment_id", appt.ID),
		attribute.String("clinic.appointment_date", appt.AppointmentDate),
		attribute.String("clinic.appointment_time", appt.AppointmentTime),
	)
	s.metrics.ObserveBooking("created")
	s.logger.Info("appointment created", "id", appt.ID, "date", appt.AppointmentDate, "time", appt.AppointmentTime)

	return &Result{Appointment: appt, EmailError: s.notify(ctx, appt, EventCreated)}, nil
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	req = trimCreate(req)
	if missing := missingFields(req); len(missing) > 0 {
		return nil, apperr.MissingFields(missing...)
	}
	if err := validateSlotFormat(req.AppointmentDate, req.AppointmentTime); err != nil {
		return nil, err
	}
	if err := s.slots.CheckSlot(ctx, req.AppointmentDate, req.AppointmentTime, ""); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return nil, err
		}
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		created, err := s.repo.Create(ctx, &Appointment{
			Code:            code,
			PatientName:     req.PatientName,
			PatientEmail:    req.PatientEmail,
			PatientPhone:    req.PatientPhone,
			AppointmentDate: req.AppointmentDate,
			AppointmentTime: req.AppointmentTime,
			Status:          StatusPending,
			Notes:           req.Notes,
		})
		switch {
		case errors.Is(err, ErrCodeTaken):
			continue
		case errors.Is(err, ErrSlotTaken):
			return nil, apperr.Conflict("this time slot is already booked")
		case err != nil:
			return nil, err
		}
		return created, nil
	}
	return nil, errors.New("appointments: could not allocate a unique code")
}

// Lookup returns the appointment with the given public code.
func (s *Service) Lookup(ctx context.Context, code string) (*Appointment, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.MissingFields("code")
	}
	appt, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("appointment not found")
	}
	return appt, err
}

// Get returns an appointment by id.
func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("appointment not found")
	}
	return appt, err
}

// List returns appointments matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	if filter.StartDate != "" && !calendar.ValidDate(filter.StartDate) {
		return nil, apperr.Validation("invalid startDate, expected YYYY-MM-DD", "startDate")
	}
	if filter.EndDate != "" && !calendar.ValidDate(filter.EndDate) {
		return nil, apperr.Validation("invalid endDate, expected YYYY-MM-DD", "endDate")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("unknown status "+string(filter.Status), "status")
	}
	return s.repo.List(ctx, filter)
}

// Update applies an admin edit. Moving an active appointment, or reviving a cancelled one,
// re-checks that the target slot is free of other bookings and blocks.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Result, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.update")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id))

	current, err := s.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	next, changed, err := applyUpdate(current, req)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return &Result{Appointment: current}, nil
	}

	moved := next.AppointmentDate != current.AppointmentDate || next.AppointmentTime != current.AppointmentTime
	if moved {
		if err := validateSlotFormat(next.AppointmentDate, next.AppointmentTime); err != nil {
			return nil, err
		}
	}
	revived := !current.Status.Active() && next.Status.Active()
	if next.Status.Active() && (moved || revived) {
		if err := s.slots.CheckConflict(ctx, next.AppointmentDate, next.AppointmentTime, id); err != nil {
			return nil, err
		}
	}

	saved, err := s.repo.Update(ctx, next)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, apperr.NotFound("appointment not found")
	case errors.Is(err, ErrSlotTaken):
		return nil, apperr.Conflict("this time slot is already booked")
	case err != nil:
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment updated", "id", id, "changed", changed)

	event := EventUpdated
	if current.Status.Active() && !saved.Status.Active() {
		event = EventCancelled
	}
	return &Result{Appointment: saved, Changed: changed, EmailError: s.notify(ctx, saved, event)}, nil
}

// Cancel frees the appointment's slot. Cancelling twice is a no-op and sends no second email.
func (s *Service) Cancel(ctx context.Context, id string) (*Result, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id))

	current, err := s.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if current.Status == StatusCancelled {
		return &Result{Appointment: current}, nil
	}

	next := current.Clone()
	next.Status = StatusCancelled
	saved, err := s.repo.Update(ctx, next)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("appointment not found")
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment cancelled", "id", id, "date", saved.AppointmentDate, "time", saved.AppointmentTime)

	return &Result{Appointment: saved, Changed: []string{"status"}, EmailError: s.notify(ctx, saved, EventCancelled)}, nil
}

// Delete removes an appointment permanently without notifying the patient and returns
// the removed record.
func (s *Service) Delete(ctx context.Context, id string) (*Appointment, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment permanently deleted", "id", id)
	s.publish(ctx, deleted, EventDeleted)
	return deleted.Clone(), nil
}

// notify runs after commit with its own deadline so a slow or failed email never undoes the change.
func (s *Service) notify(ctx context.Context, appt *Appointment, event Event) error {
	s.publish(ctx, appt, event)
	if s.notifier == nil {
		return nil
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	err := s.notifier.Notify(nctx, appt, event)
	s.metrics.ObserveNotification(string(event), err == nil)
	if err != nil {
		s.logger.Warn("appointment email failed", "id", appt.ID, "event", event, "error", err)
		return apperr.Notification("appointment saved but the confirmation email could not be sent", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, appt *Appointment, event Event) {
	if s.feed == nil {
		return
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.feed.Notify(fctx, appt, event); err != nil {
		s.logger.Warn("appointment event not published", "id", appt.ID, "event", event, "error", err)
	}
}

func trimCreate(req CreateRequest) CreateRequest {
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.PatientEmail = strings.TrimSpace(req.PatientEmail)
	req.PatientPhone = strings.TrimSpace(req.PatientPhone)
	req.AppointmentDate = strings.TrimSpace(req.AppointmentDate)
	req.AppointmentTime = strings.TrimSpace(req.AppointmentTime)
	req.Notes = strings.TrimSpace(req.Notes)
	return req
}

func missingFields(req CreateRequest) []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"patientName", req.PatientName},
		{"patientEmail", req.PatientEmail},
		{"patientPhone", req.PatientPhone},
		{"appointmentDate", req.AppointmentDate},
		{"appointmentTime", req.AppointmentTime},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func validateSlotFormat(date, at string) error {
	if !calendar.ValidDate(date) {
		return apperr.Validation("invalid date format, expected YYYY-MM-DD", "appointmentDate")
	}
	clock, err := calendar.ParseClock(at)
	if err != nil {
		return apperr.Validation("invalid time format, expected HH:mm", "appointmentTime")
	}
	if !clock.OnGrid() {
		return apperr.Validation("appointment time must fall on a 30-minute slot", "appointmentTime")
	}
	return nil
}

// applyUpdate returns the patched copy and the JSON names of changed fields.
func applyUpdate(current *Appointment, req UpdateRequest) (*Appointment, []string, error) {
	next := current.Clone()
	var changed []string

	required := []struct {
		name string
		src  *string
		dst  *string
	}{
		{"patientName", req.PatientName, &next.PatientName},
		{"patientEmail", req.PatientEmail, &next.PatientEmail},
		{"patientPhone", req.PatientPhone, &next.PatientPhone},
		{"appointmentDate", req.AppointmentDate, &next.AppointmentDate},
		{"appointmentTime", req.AppointmentTime, &next.AppointmentTime},
	}
	var emptied []string
	for _, f := range required {
		if f.src == nil {
			continue
		}
		v := strings.TrimSpace(*f.src)
		if v == "" {
			emptied = append(emptied, f.name)
			continue
		}
		if v != *f.dst {
			*f.dst = v
			changed = append(changed, f.name)
		}
	}
	if len(emptied) > 0 {
		return nil, nil, apperr.MissingFields(emptied...)
	}

	if req.Status != nil {
		status := Status(strings.ToLower(strings.TrimSpace(string(*req.Status))))
		if !status.Valid() {
			return nil, nil, apperr.Validation("unknown status "+string(*req.Status), "status")
		}
		if status != next.Status {
			next.Status = status
			changed = append(changed, "status")
		}
	}
	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		if notes != next.Notes {
			next.Notes = notes
			changed = append(changed, "notes")
		}
	}
	return next, changed, nil
}

func bookingOutcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindValidation:
		return "invalid"
	default:
		return "error"
	}
}
