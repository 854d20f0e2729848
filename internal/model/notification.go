package model

import "time"

// Notification tells a recipient that an item was reported found.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipientId"`
	Message     string    `json:"message"`
	ItemID      int64     `json:"itemId"`
	FinderID    int64     `json:"finderId"`
	FinderName  string    `json:"finderName"`
	CreatedAt   time.Time `json:"createdAt"`

	// Joined item with its owner. Nil when the item was deleted.
	Item *Item `json:"item,omitempty"`
}
