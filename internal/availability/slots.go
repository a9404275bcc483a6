// Package availability computes which 30-minute slots a patient may book on a given day.
package availability

import (
	"time"

	"github.com/clinicbook/clinic-booking/internal/calendar"
)

// FilterSlots returns the clocks of grid on day that are not occupied and start at least
// lead after now. grid is expected in ascending order and is returned in the same order.
func FilterSlots(day time.Time, grid []calendar.Clock, occupied map[calendar.Clock]struct{}, now time.Time, lead time.Duration) []calendar.Clock {
	earliest := now.Add(lead)
	slots := make([]calendar.Clock, 0, len(grid))
	for _, c := range grid {
		if _, taken := occupied[c]; taken {
			continue
		}
		// A slot exactly lead ahead is still bookable.
		if calendar.At(day, c).Before(earliest) {
			continue
		}
		slots = append(slots, c)
	}
	return slots
}
