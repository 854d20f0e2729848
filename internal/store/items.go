package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/findme/internal/model"
)

const itemColumns = `i.id, i.name, i.description, i.category, i.location, i.date_lost,
	i.photo, i.owner_id, i.status, i.created_at, i.updated_at`

const ownerColumns = `u.id, u.name, u.full_name, u.email, u.contact_number, u.profile_photo`

// NewItem holds the fields required to create an item.
type NewItem struct {
	Name        string
	Description string
	Category    string
	Location    string
	DateLost    time.Time
	Photo       string
	OwnerID     int64
}

func itemDest(item *model.Item) []any {
	return []any{&item.ID, &item.Name, &item.Description, &item.Category, &item.Location, &item.DateLost,
		&item.Photo, &item.OwnerID, &item.Status, &item.CreatedAt, &item.UpdatedAt}
}

func ownerDest(o *model.Owner) []any {
	return []any{&o.ID, &o.Name, &o.FullName, &o.Email, &o.ContactNumber, &o.ProfilePhoto}
}

func scanItemWithOwner(s scanner) (*model.Item, error) {
	item := &model.Item{Owner: &model.Owner{}}
	if err := s.Scan(append(itemDest(item), ownerDest(item.Owner)...)...); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateItem creates a new item with status lost.
func CreateItem(ctx context.Context, q Querier, ni NewItem) (*model.Item, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO items (name, description, category, location, date_lost, photo, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ni.Name, ni.Description, ni.Category, ni.Location, ni.DateLost.UTC(), ni.Photo, ni.OwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID with its owner joined.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := scanItemWithOwner(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+`, `+ownerColumns+`
		 FROM items i JOIN users u ON u.id = i.owner_id
		 WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items with owners joined, newest first.
func ListItems(ctx context.Context, q Querier) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+`, `+ownerColumns+`
		 FROM items i JOIN users u ON u.id = i.owner_id
		 ORDER BY i.created_at DESC, i.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItemWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListItemsByOwner returns the items owned by a user, newest first.
func ListItemsByOwner(ctx context.Context, q Querier, ownerID int64) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items i
		 WHERE i.owner_id = ?
		 ORDER BY i.created_at DESC, i.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing items by owner: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(itemDest(&item)...); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem applies the non-nil fields of patch and returns the updated item.
// An empty patch leaves the row, including updated_at, untouched.
func UpdateItem(ctx context.Context, q Querier, id int64, patch model.ItemPatch) (*model.Item, error) {
	if patch.Empty() {
		return GetItem(ctx, q, id)
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.DateLost != nil {
		set("date_lost", patch.DateLost.UTC())
	}
	if patch.Photo != nil {
		set("photo", *patch.Photo)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	result, err := q.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return GetItem(ctx, q, id)
}

// SetItemStatus sets an item's status.
func SetItemStatus(ctx context.Context, q Querier, id int64, status string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setting item status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem permanently deletes an item. Notifications that reference it
// are kept.
func DeleteItem(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
