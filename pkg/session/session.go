package session

import "time"

// Unknown replaces a location or fingerprint that could not be determined.
const Unknown = "Unknown"

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusActive Status = "Active"
	StatusClosed Status = "Closed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusClosed
}

// Record is one tracked client session. Only LastActive changes after
// creation, apart from Status when closed sessions are retained.
type Record struct {
	ID          string    `json:"session_id"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	Location    string    `json:"location"`
	Fingerprint string    `json:"fingerprint"`
	LastActive  time.Time `json:"last_active"`
	Status      Status    `json:"status"`
}

func (r Record) IsActive() bool {
	return r.Status == StatusActive
}
