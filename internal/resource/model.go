package resource

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("resource not found")

// Resource is a bookable lab instrument as seen by the scheduler.
// The catalog owns these rows; this package only reads them.
type Resource struct {
	ID               string
	Name             string
	AssetTag         string
	Location         string
	ApprovalRequired bool
	TrainingRequired bool
	Bookable         bool
	CreatedAt        time.Time
}

// Filter defines parameters for listing resources.
type Filter struct {
	Location     string
	BookableOnly bool
	Search       string // case-insensitive match on name or asset tag
}
