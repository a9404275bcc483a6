package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/clinicbook/clinic-booking/internal/availability"
	"github.com/clinicbook/clinic-booking/internal/blockedslots"
	"github.com/clinicbook/clinic-booking/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, _ *Appointment, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fixture struct {
	repo     *InMemoryRepository
	blocked  *blockedslots.InMemoryRepository
	engine   *availability.Engine
	notifier *recordingNotifier
	service  *Service
}

// now is Sunday 2025-06-01 08:00 UTC; 2025-06-02 is the following Monday.
var fixtureNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, codes CodeGenerator) *fixture {
	t.Helper()
	repo := NewInMemoryRepository()
	blocked := blockedslots.NewInMemoryRepository()
	hours := settings.NewCache(settings.NewMemoryStore())
	engine := availability.NewEngine(repo, blocked, hours, availability.Options{
		Location: time.UTC,
		Now:      func() time.Time { return fixtureNow },
	})
	notifier := &recordingNotifier{}
	svc := NewService(repo, engine, Options{Notifier: notifier, Codes: codes}, nil)
	return &fixture{repo: repo, blocked: blocked, engine: engine, notifier: notifier, service: svc}
}

func validRequest(date, at string) CreateRequest {
	return CreateRequest{
		PatientName:     "Ayse Yilmaz",
		PatientEmail:    "ayse@example.com",
		PatientPhone:    "+90 555 000 0000",
		AppointmentDate: date,
		AppointmentTime: at,
	}
}

func sequence(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.service.Create(context.Background(), validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	appt := result.Appointment

	assert.Len(t, appt.Code, CodeLength)
	assert.Equal(t, StatusPending, appt.Status)
	assert.NotEmpty(t, appt.ID)
	assert.Nil(t, result.EmailError)
	assert.Equal(t, []Event{EventCreated}, f.notifier.events)

	found, err := f.service.Lookup(context.Background(), appt.Code)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, found.ID)
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateRequest{PatientName: "x", AppointmentTime: "10:00"})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Equal(t, "missing required fields: patientEmail, patientPhone, appointmentDate", apperr.MessageOf(err, ""))

	for _, tc := range []struct{ date, at string }{
		{"02.06.2025", "10:00"},
		{"2025-02-30", "10:00"},
		{"2025-06-02", "10"},
		{"2025-06-02", "10:15"},
		{"2025-06-01", "10:00"}, // Sunday, closed
		{"2025-06-02", "17:00"}, // closing time
		{"2025-05-30", "10:00"}, // past
	} {
		_, err := f.service.Create(ctx, validRequest(tc.date, tc.at))
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "%s %s: %v", tc.date, tc.at, err)
	}
	assert.Zero(t, f.notifier.count())
}

func TestCreateAppointmentConflict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)

	_, err = f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	_, err = f.blocked.Create(ctx, blockedslots.CreateRequest{Date: "2025-06-02", Time: "11:00"})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, validRequest("2025-06-02", "11:00"))
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	list, err := f.repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateAppointmentRetriesTakenCode(t *testing.T) {
	f := newFixture(t, sequence("ABC123", "ABC123", "482913"))
	ctx := context.Background()

	_, err := f.repo.Create(ctx, &Appointment{
		Code: "ABC123", PatientName: "Existing", AppointmentDate: "2025-06-03", AppointmentTime: "09:00", Status: StatusConfirmed,
	})
	require.NoError(t, err)

	result, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "482913", result.Appointment.Code)

	list, err := f.repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	codes := map[string]int{}
	for _, a := range list {
		codes[a.Code]++
	}
	assert.Equal(t, 1, codes["ABC123"])
}

func TestCreateAppointmentGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, sequence("111111"))
	ctx := context.Background()

	_, err := f.repo.Create(ctx, &Appointment{Code: "111111", AppointmentDate: "2025-06-03", AppointmentTime: "09:00", Status: StatusPending})
	require.NoError(t, err)

	_, err = f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.Error(t, err)
	assert.Equal(t, apperr.Kind(""), apperr.KindOf(err))
}

// racingRepo hides existing rows from the pre-checks so only the insert sees them,
// as happens when two requests race for the same slot or code.
type racingRepo struct {
	*InMemoryRepository
	codeCollisions int
}

func (r *racingRepo) CodeExists(context.Context, string) (bool, error) { return false, nil }

func (r *racingRepo) ActiveTimes(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (r *racingRepo) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	if r.codeCollisions > 0 {
		r.codeCollisions--
		return nil, ErrCodeTaken
	}
	return r.InMemoryRepository.Create(ctx, appt)
}

func newRacingService(repo *racingRepo, codes CodeGenerator) *Service {
	engine := availability.NewEngine(repo, blockedslots.NewInMemoryRepository(), settings.NewCache(settings.NewMemoryStore()), availability.Options{
		Location: time.UTC,
		Now:      func() time.Time { return fixtureNow },
	})
	return NewService(repo, engine, Options{Codes: codes}, nil)
}

func TestCreateAppointmentStorageConflictIsAuthoritative(t *testing.T) {
	repo := &racingRepo{InMemoryRepository: NewInMemoryRepository()}
	svc := newRacingService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validRequest("2025-06-02", "10:00"))
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCreateAppointmentRetriesInsertCodeCollision(t *testing.T) {
	repo := &racingRepo{InMemoryRepository: NewInMemoryRepository(), codeCollisions: 2}
	svc := newRacingService(repo, sequence("100001", "100002", "100003"))

	result, err := svc.Create(context.Background(), validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "100003", result.Appointment.Code)
}

func TestConcurrentBookingsClaimSlotOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Create(ctx, validRequest("2025-06-02", "14:00")); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestNotifierFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.err = errors.New("smtp timeout")

	result, err := f.service.Create(context.Background(), validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	require.NotNil(t, result.EmailError)
	assert.True(t, apperr.IsKind(result.EmailError, apperr.KindNotification))
	require.NotNil(t, result.EmailErrorMessage())

	_, err = f.repo.GetByID(context.Background(), result.Appointment.ID)
	assert.NoError(t, err)
}

func TestBookedSlotLeavesAvailability(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	before, err := f.engine.AvailableSlots(ctx, "2025-06-02")
	require.NoError(t, err)
	require.Contains(t, before, "10:30")

	_, err = f.service.Create(ctx, validRequest("2025-06-02", "10:30"))
	require.NoError(t, err)

	after, err := f.engine.AvailableSlots(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.NotContains(t, after, "10:30")
	assert.Len(t, after, len(before)-1)
}

func TestCancelFreesSlotAndIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)

	occupied, err := f.engine.OccupiedTimes(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, occupied)

	result, err := f.service.Cancel(ctx, created.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Appointment.Status)
	assert.Equal(t, []string{"status"}, result.Changed)

	occupied, err = f.engine.OccupiedTimes(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.Empty(t, occupied)

	again, err := f.service.Cancel(ctx, created.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Appointment.Status)
	assert.Empty(t, again.Changed)
	assert.Equal(t, []Event{EventCreated, EventCancelled}, f.notifier.events)

	// The freed slot can be booked again.
	_, err = f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	assert.NoError(t, err)

	_, err = f.service.Cancel(ctx, "missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpdateRechecksConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	second, err := f.service.Create(ctx, validRequest("2025-06-02", "11:00"))
	require.NoError(t, err)

	taken := "10:00"
	_, err = f.service.Update(ctx, second.Appointment.ID, UpdateRequest{AppointmentTime: &taken})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	free := "12:30"
	notes := "moved by phone"
	result, err := f.service.Update(ctx, second.Appointment.ID, UpdateRequest{AppointmentTime: &free, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "12:30", result.Appointment.AppointmentTime)
	assert.ElementsMatch(t, []string{"appointmentTime", "notes"}, result.Changed)

	// Keeping its own slot never conflicts with itself.
	same := "10:00"
	confirmed := StatusConfirmed
	result, err = f.service.Update(ctx, first.Appointment.ID, UpdateRequest{AppointmentTime: &same, Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, []string{"status"}, result.Changed)
}

func TestUpdateRevivingCancelledChecksSlot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	_, err = f.service.Cancel(ctx, first.Appointment.ID)
	require.NoError(t, err)
	_, err = f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)

	pending := StatusPending
	_, err = f.service.Update(ctx, first.Appointment.ID, UpdateRequest{Status: &pending})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	id := created.Appointment.ID

	bogus := Status("archived")
	_, err = f.service.Update(ctx, id, UpdateRequest{Status: &bogus})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	empty := "  "
	_, err = f.service.Update(ctx, id, UpdateRequest{PatientName: &empty})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	badDate := "2025/06/03"
	_, err = f.service.Update(ctx, id, UpdateRequest{AppointmentDate: &badDate})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.service.Update(ctx, "nope", UpdateRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpdateToCancelledSendsCancelledEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)

	cancelled := StatusCancelled
	_, err = f.service.Update(ctx, created.Appointment.ID, UpdateRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, []Event{EventCreated, EventCancelled}, f.notifier.events)
}

func TestPermanentDeleteSkipsNotification(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)

	deleted, err := f.service.Delete(ctx, created.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Appointment.Code, deleted.Code)
	assert.Equal(t, 1, f.notifier.count())

	_, err = f.service.Lookup(ctx, created.Appointment.Code)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = f.service.Delete(ctx, created.Appointment.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, tc := range []struct{ name, date, at string }{
		{"Mehmet Kaya", "2025-06-02", "09:00"},
		{"Ayse Demir", "2025-06-03", "09:00"},
		{"ayse yilmaz", "2025-06-10", "15:00"},
	} {
		req := validRequest(tc.date, tc.at)
		req.PatientName = tc.name
		_, err := f.service.Create(ctx, req)
		require.NoError(t, err)
	}

	list, err := f.service.List(ctx, ListFilter{PatientName: "AYSE", Sort: SortDescending})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025-06-10", list[0].AppointmentDate)

	list, err = f.service.List(ctx, ListFilter{StartDate: "2025-06-02", EndDate: "2025-06-03"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.service.List(ctx, ListFilter{StartDate: "June"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = f.service.List(ctx, ListFilter{Status: "archived"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestFeedReceivesEveryChangeIncludingDelete(t *testing.T) {
	f := newFixture(t, nil)
	feed := &recordingNotifier{err: errors.New("queue down")}
	f.service.feed = feed
	ctx := context.Background()

	created, err := f.service.Create(ctx, validRequest("2025-06-02", "10:00"))
	require.NoError(t, err)
	_, err = f.service.Delete(ctx, created.Appointment.ID)
	require.NoError(t, err)

	assert.Equal(t, []Event{EventCreated, EventDeleted}, feed.events)
	assert.Equal(t, []Event{EventCreated}, f.notifier.events)
}
