package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/findme/internal/db"
	"github.com/erazemk/findme/internal/model"
)

func TestLogAndListActivity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, database, "alice", model.RoleUser)
	require.NoError(t, LogActivity(ctx, database, alice.ID, model.ActionRegister, "User alice registered"))
	require.NoError(t, LogActivity(ctx, database, alice.ID, model.ActionPostItem, `Item "Keys" posted by alice`))

	entries, err := ListActivity(ctx, database, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionPostItem, entries[0].Action)
	assert.Equal(t, "alice", entries[0].UserName)
	assert.Equal(t, model.ActionRegister, entries[1].Action)

	limited, err := ListActivity(ctx, database, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLogActivityRejectsUnknownAction(t *testing.T) {
	database := db.NewTestDB(t)

	err := LogActivity(context.Background(), database, 1, "mark_found", "")
	assert.Error(t, err)

	entries, err := ListActivity(context.Background(), database, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestActivitySurvivesUserDeletion(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, database, "alice", model.RoleUser)
	require.NoError(t, LogActivity(ctx, database, alice.ID, model.ActionLogin, ""))
	_, err := DeleteUser(ctx, database, alice.ID)
	require.NoError(t, err)

	entries, err := ListActivity(ctx, database, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, alice.ID, entries[0].UserID)
	assert.Empty(t, entries[0].UserName)
}
