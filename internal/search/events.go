package search

// WebSocket event types for search operations.
const (
	EventSearchStarted   = "search:started"
	EventSearchCompleted = "search:completed"
)

// SearchStartedPayload is sent when a search begins.
type SearchStartedPayload struct {
	ID      string   `json:"id"`
	Query   string   `json:"query"`
	Page    int      `json:"page"`
	Sources []string `json:"sources"`
}

// SearchCompletedPayload is sent when a search finishes.
type SearchCompletedPayload struct {
	ID        string   `json:"id"`
	Query     string   `json:"query"`
	Page      int      `json:"page"`
	Total     int      `json:"total"`
	Returned  int      `json:"returned"`
	Errors    []string `json:"errors,omitempty"`
	ElapsedMs int64    `json:"elapsedMs"`
}
