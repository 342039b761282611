package domain

import "time"

// SweepStats holds the outcome of one sweep over all tracked products.
type SweepStats struct {
	Total     int           `json:"total"`
	Checked   int           `json:"checked"`
	Changed   int           `json:"changed"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Alerts    int           `json:"alerts"`
	Duration  time.Duration `json:"duration"`
}
