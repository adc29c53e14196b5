package progression

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for the engine. Controllers translate these into
// structured HTTP responses; nothing here should ever crash the process.
var (
	ErrAlreadyEnrolled = errors.New("already enrolled in course")
	ErrNotEnrolled     = errors.New("not enrolled in course")
	ErrInvalidPosition = errors.New("lesson is not at the current position")
	ErrVersionConflict = errors.New("progress was modified concurrently")
)

// QuotaExceededError carries what the user needs to hear: the cap for
// their tier and when it resets.
type QuotaExceededError struct {
	MaxAllowed int
	ResetsAt   time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quiz limit of %d reached, resets at %s",
		e.MaxAllowed, e.ResetsAt.Format(time.RFC3339))
}
