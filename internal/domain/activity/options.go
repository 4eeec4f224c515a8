package activity

import "time"

// ListOptions filters journal entries.
type ListOptions struct {
	ProjectID string
	TaskID    *string
	Type      *Type
	Since     *time.Time
	Limit     int
	Offset    int
}
