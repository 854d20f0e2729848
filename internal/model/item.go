package model

import (
	"fmt"
	"time"
)

// Item is a lost item posted by its owner.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	DateLost    time.Time `json:"dateLost"`
	Photo       string    `json:"photo,omitempty"`
	OwnerID     int64     `json:"ownerId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Joined owner (not always populated).
	Owner *Owner `json:"owner,omitempty"`
}

// Item statuses.
const (
	ItemStatusLost  = "lost"
	ItemStatusFound = "found"
)

// ItemPatch holds the fields of an item update. Nil fields are left unchanged.
type ItemPatch struct {
	Name        *string
	Description *string
	Category    *string
	Location    *string
	DateLost    *time.Time
	Photo       *string
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.Location == nil && p.DateLost == nil && p.Photo == nil
}

// dateLayouts are the accepted input formats for dateLost.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate parses a dateLost value.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
