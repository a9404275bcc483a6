// Package settings holds the clinic's site appearance and working-hours configuration.
package settings

import (
	"fmt"
	"maps"
	"time"

	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/clinicbook/clinic-booking/internal/calendar"
)

// DayHours is the open interval for one weekday. "00:00"-"00:00" means closed.
type DayHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Closed reports whether the day takes no bookings.
func (d DayHours) Closed() bool {
	return d.Start == calendar.Midnight.String() && d.End == calendar.Midnight.String()
}

// Bounds parses the interval. Closed days return Midnight, Midnight.
func (d DayHours) Bounds() (calendar.Clock, calendar.Clock, error) {
	start, err := calendar.ParseClock(d.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := calendar.ParseClock(d.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// WorkingHours maps lowercase weekday names to their hours.
type WorkingHours map[string]DayHours

// ForWeekday returns the hours for wd. A missing key is treated as closed.
func (w WorkingHours) ForWeekday(wd time.Weekday) (DayHours, bool) {
	hours, ok := w[calendar.WeekdayKey(wd)]
	return hours, ok
}

// Validate checks every configured day: known weekday, HH:mm bounds on the slot grid,
// start before end unless closed.
func (w WorkingHours) Validate() error {
	known := make(map[string]struct{}, 7)
	for _, day := range calendar.Weekdays() {
		known[day] = struct{}{}
	}
	for day, hours := range w {
		if _, ok := known[day]; !ok {
			return apperr.Validation(fmt.Sprintf("unknown weekday %q in working hours", day), "workingHours")
		}
		if hours.Closed() {
			continue
		}
		start, end, err := hours.Bounds()
		if err != nil {
			return apperr.Validation(fmt.Sprintf("invalid working hours for %s: use HH:mm", day), "workingHours")
		}
		if !start.OnGrid() || !end.OnGrid() {
			return apperr.Validation(fmt.Sprintf("working hours for %s must fall on 30-minute boundaries", day), "workingHours")
		}
		if start >= end {
			return apperr.Validation(fmt.Sprintf("working hours for %s must start before they end", day), "workingHours")
		}
	}
	return nil
}

// Clone returns an independent copy.
func (w WorkingHours) Clone() WorkingHours {
	if w == nil {
		return nil
	}
	out := make(WorkingHours, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Settings is the singleton clinic configuration.
type Settings struct {
	SiteTitle       string       `json:"siteTitle"`
	PrimaryColor    string       `json:"primaryColor"`
	SecondaryColor  string       `json:"secondaryColor"`
	FontFamily      string       `json:"fontFamily"`
	AboutContent    string       `json:"aboutContent"`
	BackgroundImage string       `json:"backgroundImage"`
	WorkingHours    WorkingHours `json:"workingHours"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Default returns the settings used before an administrator saves anything.
func Default() *Settings {
	weekday := DayHours{Start: "09:00", End: "17:00"}
	return &Settings{
		SiteTitle:       "Physiotherapy Appointments",
		PrimaryColor:    "#007bff",
		SecondaryColor:  "#6c757d",
		FontFamily:      "Arial, sans-serif",
		AboutContent:    "",
		BackgroundImage: "",
		WorkingHours: WorkingHours{
			"monday":    weekday,
			"tuesday":   weekday,
			"wednesday": weekday,
			"thursday":  weekday,
			"friday":    weekday,
			"saturday":  {Start: "09:00", End: "13:00"},
			"sunday":    {Start: "00:00", End: "00:00"},
		},
	}
}

// Clone returns a deep copy of s.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	out := *s
	out.WorkingHours = s.WorkingHours.Clone()
	return &out
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	SiteTitle       *string      `json:"siteTitle,omitempty"`
	PrimaryColor    *string      `json:"primaryColor,omitempty"`
	SecondaryColor  *string      `json:"secondaryColor,omitempty"`
	FontFamily      *string      `json:"fontFamily,omitempty"`
	AboutContent    *string      `json:"aboutContent,omitempty"`
	BackgroundImage *string      `json:"backgroundImage,omitempty"`
	WorkingHours    WorkingHours `json:"workingHours,omitempty"`
}

// Apply merges p into s and returns the JSON names of the fields that changed.
// Working hours are merged per weekday.
func (p Patch) Apply(s *Settings) ([]string, error) {
	if p.WorkingHours != nil {
		if err := p.WorkingHours.Validate(); err != nil {
			return nil, err
		}
	}

	var changed []string
	set := func(name string, dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed = append(changed, name)
		}
	}
	set("siteTitle", &s.SiteTitle, p.SiteTitle)
	set("primaryColor", &s.PrimaryColor, p.PrimaryColor)
	set("secondaryColor", &s.SecondaryColor, p.SecondaryColor)
	set("fontFamily", &s.FontFamily, p.FontFamily)
	set("aboutContent", &s.AboutContent, p.AboutContent)
	set("backgroundImage", &s.BackgroundImage, p.BackgroundImage)

	// Working hours are replaced as a whole; weekdays left out become closed.
	if p.WorkingHours != nil && !maps.Equal(s.WorkingHours, p.WorkingHours) {
		s.WorkingHours = p.WorkingHours.Clone()
		changed = append(changed, "workingHours")
	}
	return changed, nil
}
