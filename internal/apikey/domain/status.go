package domain

// Status is the lifecycle state of an API key.
type Status string

const (
	StatusActive   Status = "active"
	StatusRotating Status = "rotating"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
)

var statusTransitions = map[Status][]Status{
	StatusActive:   {StatusExpired, StatusRevoked, StatusRotating},
	StatusRotating: {StatusRevoked},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusRotating, StatusExpired, StatusRevoked:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusExpired || s == StatusRevoked
}

// CanTransitionTo reports whether moving from s to next is a legal forward move.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
