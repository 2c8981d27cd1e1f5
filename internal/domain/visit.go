package domain

import (
	"time"
)

// VisitRecord is one admitted visit. Records are inserted once and never mutated.
type VisitRecord struct {
	ID        int64     `json:"id" db:"id"`
	IP        string    `json:"ip" db:"ip"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VisitRequest is the body of POST /api/visits
type VisitRequest struct {
	IP string `json:"ip"`
}

// VisitCount is the body of a successful GET or POST /api/visits
type VisitCount struct {
	Count int64 `json:"count"`
}

// Quota bounds how many visits one IP may record within Window
type Quota struct {
	Limit  int64
	Window time.Duration
}

// QuotaDecision is the outcome of a quota-checked insert
type QuotaDecision struct {
	IP       string
	Admitted bool
	// Used counts records inside the window, including the admitted one
	Used  int64
	Limit int64
	// RetryAfter is set when rejected: time until the oldest counted record leaves the window
	RetryAfter time.Duration
	Record     *VisitRecord
}

// Remaining returns how many more visits the IP may record in the current window
func (d *QuotaDecision) Remaining() int64 {
	if d.Used >= d.Limit {
		return 0
	}
	return d.Limit - d.Used
}

// VisitResult is returned by the write path
type VisitResult struct {
	Count    int64
	Decision *QuotaDecision
}
