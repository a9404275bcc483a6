package settings

import (
	"testing"
	"time"

	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWorkingHours(t *testing.T) {
	s := Default()
	require.NoError(t, s.WorkingHours.Validate())

	mon, ok := s.WorkingHours.ForWeekday(time.Monday)
	require.True(t, ok)
	assert.Equal(t, DayHours{Start: "09:00", End: "17:00"}, mon)

	sat, _ := s.WorkingHours.ForWeekday(time.Saturday)
	assert.Equal(t, "13:00", sat.End)

	sun, ok := s.WorkingHours.ForWeekday(time.Sunday)
	require.True(t, ok)
	assert.True(t, sun.Closed())
}

func TestWorkingHoursValidate(t *testing.T) {
	tests := []struct {
		name  string
		hours WorkingHours
		ok    bool
	}{
		{"closed day", WorkingHours{"sunday": {"00:00", "00:00"}}, true},
		{"normal day", WorkingHours{"monday": {"08:30", "12:00"}}, true},
		{"bad format", WorkingHours{"monday": {"8:30", "12:00"}}, false},
		{"inverted", WorkingHours{"monday": {"12:00", "08:00"}}, false},
		{"unknown day", WorkingHours{"funday": {"09:00", "10:00"}}, false},
		{"off-grid start", WorkingHours{"monday": {"09:15", "11:00"}}, false},
		{"off-grid end", WorkingHours{"monday": {"09:00", "16:45"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hours.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		})
	}
}

func TestPatchApply(t *testing.T) {
	s := Default()
	title := "Spine & Motion"
	same := s.PrimaryColor

	changed, err := Patch{
		SiteTitle:    &title,
		PrimaryColor: &same,
	}.Apply(s)
	require.NoError(t, err)

	assert.Equal(t, []string{"siteTitle"}, changed)
	assert.Equal(t, title, s.SiteTitle)
	assert.Len(t, s.WorkingHours, 7, "hours are untouched when the patch omits them")
}

func TestPatchApplyReplacesWorkingHours(t *testing.T) {
	s := Default()
	hours := WorkingHours{"monday": {"10:00", "14:00"}}

	changed, err := Patch{WorkingHours: hours}.Apply(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"workingHours"}, changed)
	assert.Equal(t, hours, s.WorkingHours)
	_, ok := s.WorkingHours.ForWeekday(time.Tuesday)
	assert.False(t, ok, "weekdays left out of the update are dropped")

	hours["monday"] = DayHours{"09:00", "10:00"}
	assert.Equal(t, "10:00", s.WorkingHours["monday"].Start, "stored hours must not alias the patch")

	changed, err = Patch{WorkingHours: WorkingHours{"monday": {"10:00", "14:00"}}}.Apply(s)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestPatchApplyRejectsInvalidHours(t *testing.T) {
	s := Default()
	_, err := Patch{WorkingHours: WorkingHours{"monday": {"17:00", "09:00"}}}.Apply(s)
	require.Error(t, err)
	assert.Equal(t, "09:00", s.WorkingHours["monday"].Start)
}

func TestCloneIsIndependent(t *testing.T) {
	s := Default()
	c := s.Clone()
	c.WorkingHours["monday"] = DayHours{"10:00", "11:00"}
	assert.Equal(t, "09:00", s.WorkingHours["monday"].Start)
}
