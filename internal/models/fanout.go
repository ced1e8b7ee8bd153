package models

// FanoutStatus classifies the outcome of a sequence of single-row writes.
type FanoutStatus string

const (
	FanoutApplied  FanoutStatus = "applied"
	FanoutPartial  FanoutStatus = "partial"
	FanoutRejected FanoutStatus = "rejected"
)

// FanoutResult reports how many of the planned writes landed.
type FanoutResult struct {
	Status    FanoutStatus `json:"status"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
}

// NewFanoutResult derives the status from the counts.
func NewFanoutResult(completed, total int) FanoutResult {
	status := FanoutPartial
	switch {
	case completed >= total:
		status = FanoutApplied
	case completed == 0:
		status = FanoutRejected
	}
	return FanoutResult{Status: status, Completed: completed, Total: total}
}
