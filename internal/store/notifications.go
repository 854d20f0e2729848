package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/findme/internal/model"
)

// FoundReport describes a third party reporting an item as found.
type FoundReport struct {
	ItemID     int64
	FinderID   int64
	FinderName string
}

// MarkItemFound records that an item was found: it notifies the first
// administrator and the item owner and flips the item status to found, all
// in one transaction. A finder equal to the owner is rejected with
// ErrSelfFound, a deployment without an administrator with ErrNoAdmin.
//
// Reporting an already found item again is allowed and creates another
// notification pair.
func MarkItemFound(ctx context.Context, db *sql.DB, rep FoundReport) (*model.Item, []model.Notification, error) {
	var item *model.Item
	var created []model.Notification

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		item, err = GetItem(ctx, tx, rep.ItemID)
		if err != nil {
			return err
		}
		if item.OwnerID == rep.FinderID {
			return ErrSelfFound
		}

		admin, err := FindAdmin(ctx, tx)
		if err != nil {
			return err
		}

		created, err = CreateNotifications(ctx, tx, []model.Notification{
			{
				RecipientID: admin.ID,
				Message:     fmt.Sprintf("Item \"%s\" lost at %s has been found by %s", item.Name, item.Location, rep.FinderName),
				ItemID:      item.ID,
				FinderID:    rep.FinderID,
				FinderName:  rep.FinderName,
			},
			{
				RecipientID: item.OwnerID,
				Message:     fmt.Sprintf("Your item \"%s\" has been found by %s", item.Name, rep.FinderName),
				ItemID:      item.ID,
				FinderID:    rep.FinderID,
				FinderName:  rep.FinderName,
			},
		})
		if err != nil {
			return err
		}

		if err := SetItemStatus(ctx, tx, item.ID, model.ItemStatusFound); err != nil {
			return err
		}
		item.Status = model.ItemStatusFound
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return item, created, nil
}

// CreateNotifications inserts notifications and returns them with IDs set.
func CreateNotifications(ctx context.Context, q Querier, ns []model.Notification) ([]model.Notification, error) {
	out := make([]model.Notification, 0, len(ns))
	for _, n := range ns {
		result, err := q.ExecContext(ctx,
			`INSERT INTO notifications (recipient_id, message, item_id, finder_id, finder_name)
			 VALUES (?, ?, ?, ?, ?)`,
			n.RecipientID, n.Message, n.ItemID, n.FinderID, n.FinderName,
		)
		if err != nil {
			return nil, fmt.Errorf("creating notification: %w", err)
		}
		n.ID, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting notification id: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// ListNotifications returns the notifications addressed to recipientID,
// newest first, each with its item and the item's owner joined. The item is
// nil if it has since been deleted.
func ListNotifications(ctx context.Context, q Querier, recipientID int64) ([]model.Notification, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT n.id, n.recipient_id, n.message, n.item_id, n.finder_id, n.finder_name, n.created_at,
		        `+itemColumns+`, `+ownerColumns+`
		 FROM notifications n
		 LEFT JOIN items i ON i.id = n.item_id
		 LEFT JOIN users u ON u.id = i.owner_id
		 WHERE n.recipient_id = ?
		 ORDER BY n.created_at DESC, n.id DESC`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var (
			itemID, ownerID, ownerUserID                  sql.NullInt64
			name, desc, category, location, photo, status sql.NullString
			dateLost, createdAt, updatedAt                sql.NullTime
			uName, uFullName, uEmail, uContact, uPhoto    sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &n.ItemID, &n.FinderID, &n.FinderName, &n.CreatedAt,
			&itemID, &name, &desc, &category, &location, &dateLost, &photo, &ownerID, &status, &createdAt, &updatedAt,
			&ownerUserID, &uName, &uFullName, &uEmail, &uContact, &uPhoto,
		); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}

		if itemID.Valid {
			n.Item = &model.Item{
				ID:          itemID.Int64,
				Name:        name.String,
				Description: desc.String,
				Category:    category.String,
				Location:    location.String,
				DateLost:    dateLost.Time,
				Photo:       photo.String,
				OwnerID:     ownerID.Int64,
				Status:      status.String,
				CreatedAt:   createdAt.Time,
				UpdatedAt:   updatedAt.Time,
			}
			if ownerUserID.Valid {
				n.Item.Owner = &model.Owner{
					ID:            ownerUserID.Int64,
					Name:          uName.String,
					FullName:      uFullName.String,
					Email:         uEmail.String,
					ContactNumber: uContact.String,
					ProfilePhoto:  uPhoto.String,
				}
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
