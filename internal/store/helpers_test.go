package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/findme/internal/model"
)

func mustCreateUser(t *testing.T, q Querier, name, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), q, NewUser{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		Role:         role,
	})
	require.NoError(t, err)
	return u
}

func mustCreateItem(t *testing.T, q Querier, ownerID int64, name string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), q, NewItem{
		Name:        name,
		Description: "description of " + name,
		Category:    "accessories",
		Location:    "Library",
		DateLost:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		OwnerID:     ownerID,
	})
	require.NoError(t, err)
	return item
}

// backdate rewrites created_at of a row so time-based queries can be tested.
func backdate(t *testing.T, db *sql.DB, table string, id int64, at time.Time) {
	t.Helper()
	_, err := db.Exec(`UPDATE `+table+` SET created_at = ? WHERE id = ?`, at.UTC().Format(sqliteTime), id)
	require.NoError(t, err)
}
