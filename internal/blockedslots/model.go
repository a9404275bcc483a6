// Package blockedslots manages slots an administrator has taken out of availability.
package blockedslots

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a blocked slot does not exist.
	ErrNotFound = errors.New("blocked slot not found")
	// ErrDuplicate is returned when the date/time pair is already blocked.
	ErrDuplicate = errors.New("blocked slot already exists")
)

// Slot removes one date/time pair from availability.
type Slot struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest is the payload for blocking a slot.
type CreateRequest struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Reason string `json:"reason,omitempty"`
}
