package transport

// TaskCreateRequest is the JSON body for task creation.
type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// TaskUpdateRequest is the JSON body for a partial task update. Pointer
// fields keep absent and explicitly-set-to-empty apart.
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}
