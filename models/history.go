package models

import "time"

// Default paging for cron job history
const (
	DefaultHistoryOffset = 0
	DefaultHistoryLimit  = 10
)

// HistoryOptions selects a page of cron job history. Nil or empty fields fall
// back to the defaults they are resolved against.
type HistoryOptions struct {
	Container string
	Name      string
	Offset    *int
	Limit     *int
}

// HistoryQuery is a fully resolved history request
type HistoryQuery struct {
	Container string
	Name      string
	Offset    int
	Limit     int
}

// Resolve fills every field the caller left unset from defaults
func (o *HistoryOptions) Resolve(defaults HistoryQuery) HistoryQuery {
	q := defaults
	if o == nil {
		return q
	}
	if o.Container != "" {
		q.Container = o.Container
	}
	if o.Name != "" {
		q.Name = o.Name
	}
	if o.Offset != nil {
		q.Offset = *o.Offset
	}
	if o.Limit != nil {
		q.Limit = *o.Limit
	}
	return q
}

// Int returns a pointer to v, for optional fields
func Int(v int) *int {
	return &v
}

// HistoryRecord is one past run of a cron job
type HistoryRecord struct {
	Container   string    `json:"container"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	StatusCode  int       `json:"statusCode"`
	Body        string    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

// Succeeded reports whether the run completed successfully
func (r HistoryRecord) Succeeded() bool {
	if r.Type != "" {
		return r.Type == "success"
	}
	return r.StatusCode >= 200 && r.StatusCode < 300
}
