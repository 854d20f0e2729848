package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/findme/internal/db"
	"github.com/erazemk/findme/internal/model"
)

func TestComputeAnalyticsEmpty(t *testing.T) {
	database := db.NewTestDB(t)

	a, err := ComputeAnalytics(context.Background(), database, time.Now())
	require.NoError(t, err)
	assert.Zero(t, a.TotalUsers)
	assert.Zero(t, a.TotalPosts)
	assert.NotNil(t, a.UserRegistrations)
	assert.Empty(t, a.UserRegistrations)
	assert.NotNil(t, a.PostsPerMonth)
	assert.NotNil(t, a.FoundLostCounts)
}

func TestComputeAnalytics(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	admin := mustCreateUser(t, database, "root", model.RoleAdmin)
	alice := mustCreateUser(t, database, "alice", model.RoleUser)
	bob := mustCreateUser(t, database, "bob", model.RoleUser)
	old := mustCreateUser(t, database, "old", model.RoleUser)

	backdate(t, database, "users", admin.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))  // first day of window
	backdate(t, database, "users", alice.ID, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)) // March
	backdate(t, database, "users", bob.ID, time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC))   // March
	backdate(t, database, "users", old.ID, time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC))

	keys := mustCreateItem(t, database, alice.ID, "Keys")
	wallet := mustCreateItem(t, database, alice.ID, "Wallet")
	phone := mustCreateItem(t, database, bob.ID, "Phone")
	backdate(t, database, "items", keys.ID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	backdate(t, database, "items", wallet.ID, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))
	backdate(t, database, "items", phone.ID, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) // after now
	require.NoError(t, SetItemStatus(ctx, database, wallet.ID, model.ItemStatusFound))

	a, err := ComputeAnalytics(ctx, database, now)
	require.NoError(t, err)

	assert.Equal(t, int64(4), a.TotalUsers)
	assert.Equal(t, int64(3), a.TotalPosts)
	assert.Equal(t, int64(1), a.FoundItems)
	assert.Equal(t, int64(2), a.LostItems)
	assert.Equal(t, a.TotalPosts, a.FoundItems+a.LostItems)

	assert.Equal(t, []MonthCount{{"2024-01", 1}, {"2024-03", 2}}, a.UserRegistrations,
		"ascending, zero months absent, December excluded")
	assert.Equal(t, []MonthCount{{"2024-04", 1}, {"2024-06", 1}}, a.PostsPerMonth)
	assert.Equal(t, []StatusCount{{model.ItemStatusFound, 1}, {model.ItemStatusLost, 2}}, a.FoundLostCounts)
}

func TestComputeAnalyticsYearBoundary(t *testing.T) {
	database := db.NewTestDB(t)
	now := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

	u := mustCreateUser(t, database, "alice", model.RoleUser)
	backdate(t, database, "users", u.ID, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))

	a, err := ComputeAnalytics(context.Background(), database, now)
	require.NoError(t, err)
	assert.Equal(t, []MonthCount{{"2024-09", 1}}, a.UserRegistrations)
}
