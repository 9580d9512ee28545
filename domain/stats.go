package domain

// TaskStats aggregates per-user task counts over non-deleted rows.
// Cancelled tasks contribute to Total only; the per-status breakdown
// deliberately omits them.
type TaskStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
}
