package arbiter

import "time"

// Suppression is the deadline before which ambient output is forbidden.
// It is not safe for concurrent use; the Arbiter guards it.
type Suppression struct {
	// until is the deadline; the zero value means no suppression.
	until time.Time
}

// Extend pushes the deadline to now+d unless it is already later.
func (s *Suppression) Extend(now time.Time, d time.Duration) {
	deadline := now.Add(max(d, 0))
	if deadline.After(s.until) {
		s.until = deadline
	}
}

// IsActive reports whether now is before the deadline.
func (s *Suppression) IsActive(now time.Time) bool {
	return now.Before(s.until)
}

// Until returns the current deadline.
func (s *Suppression) Until() time.Time {
	return s.until
}

// Clear drops the deadline.
func (s *Suppression) Clear() {
	s.until = time.Time{}
}
