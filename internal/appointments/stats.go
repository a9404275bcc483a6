package appointments

import (
	"context"
	"sort"
	"strconv"

	"github.com/clinicbook/clinic-booking/internal/apperr"
)

// StatusCount is the number of appointments in one status.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// MonthlyStats groups appointment counts by the month of their appointment date.
type MonthlyStats struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Stats []StatusCount `json:"stats"`
	Total int           `json:"total"`
}

// StatsFilter limits stats to one year or one month of a year. Zero means any.
type StatsFilter struct {
	Year  int
	Month int
}

// ParseStatsFilter reads the optional year/month query values.
func ParseStatsFilter(year, month string) (StatsFilter, error) {
	var f StatsFilter
	if year != "" {
		y, err := strconv.Atoi(year)
		if err != nil || y < 1 {
			return f, apperr.Validation("year must be a positive number", "year")
		}
		f.Year = y
	}
	if month != "" {
		if f.Year == 0 {
			return f, apperr.Validation("month requires year", "month")
		}
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			return f, apperr.Validation("month must be between 1 and 12", "month")
		}
		f.Month = m
	}
	return f, nil
}

// Stats aggregates appointment counts per month and status, newest month first.
func (s *Service) Stats(ctx context.Context, filter StatsFilter) ([]MonthlyStats, error) {
	list, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	return aggregateMonthly(list, filter), nil
}

func aggregateMonthly(list []*Appointment, filter StatsFilter) []MonthlyStats {
	type monthKey struct{ year, month int }
	counts := make(map[monthKey]map[Status]int)

	for _, appt := range list {
		// Dates are stored as validated YYYY-MM-DD strings.
		if len(appt.AppointmentDate) < 7 {
			continue
		}
		y, errY := strconv.Atoi(appt.AppointmentDate[0:4])
		m, errM := strconv.Atoi(appt.AppointmentDate[5:7])
		if errY != nil || errM != nil {
			continue
		}
		if filter.Year != 0 && y != filter.Year {
			continue
		}
		if filter.Month != 0 && m != filter.Month {
			continue
		}
		key := monthKey{y, m}
		if counts[key] == nil {
			counts[key] = make(map[Status]int)
		}
		counts[key][appt.Status]++
	}

	out := make([]MonthlyStats, 0, len(counts))
	for key, byStatus := range counts {
		ms := MonthlyStats{Year: key.year, Month: key.month}
		for status, n := range byStatus {
			ms.Stats = append(ms.Stats, StatusCount{Status: status, Count: n})
			ms.Total += n
		}
		sort.Slice(ms.Stats, func(i, j int) bool { return ms.Stats[i].Status < ms.Stats[j].Status })
		out = append(out, ms)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}
