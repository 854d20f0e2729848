package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erazemk/findme/internal/auth"
	"github.com/erazemk/findme/internal/db"
	"github.com/erazemk/findme/internal/model"
	"github.com/erazemk/findme/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestProvisionAdmin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	password, err := provisionAdmin(ctx, database, "admin", "admin@example.com")
	require.NoError(t, err)
	assert.Len(t, password, generatedPasswordLength)

	admin, err := store.FindAdmin(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, password))

	_, err = provisionAdmin(ctx, database, "admin", "admin@example.com")
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestEnsureAdminOnlyOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := ensureAdmin(ctx, database, "admin", "admin@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := ensureAdmin(ctx, database, "other", "other@example.com")
	require.NoError(t, err)
	assert.Empty(t, second, "an administrator already exists")

	users, err := store.ListUsers(ctx, database)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEnsureAdminEmailHeldByUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, database, store.NewUser{
		Name: "squatter", Email: "admin@example.com", PasswordHash: "x", Role: model.RoleUser,
	})
	require.NoError(t, err)

	_, err = ensureAdmin(ctx, database, "admin", "admin@example.com")
	require.ErrorIs(t, err, store.ErrEmailTaken)
	assert.Contains(t, err.Error(), "role user")
	assert.Contains(t, err.Error(), "ADMIN_EMAIL")
}

func TestResetAdminPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	old, err := provisionAdmin(ctx, database, "admin", "admin@example.com")
	require.NoError(t, err)
	fresh, err := resetAdminPassword(ctx, database, "admin@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	admin, err := store.GetUserByEmail(ctx, database, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, fresh))
	assert.False(t, auth.CheckPassword(admin.PasswordHash, old))

	_, err = resetAdminPassword(ctx, database, "nobody@example.com")
	assert.Error(t, err)
}

func TestCheckAdmin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	var out bytes.Buffer
	assert.ErrorIs(t, checkAdmin(ctx, database, "admin@example.com", &out), store.ErrNoAdmin)
	assert.Contains(t, out.String(), "No account with email admin@example.com")

	_, err := store.CreateUser(ctx, database, store.NewUser{
		Name: "alice", Email: "alice@example.com", PasswordHash: "x", Role: model.RoleUser,
	})
	require.NoError(t, err)
	out.Reset()
	assert.Error(t, checkAdmin(ctx, database, "alice@example.com", &out))
	assert.Contains(t, out.String(), "role user")

	_, err = provisionAdmin(ctx, database, "admin", "admin@example.com")
	require.NoError(t, err)
	out.Reset()
	assert.NoError(t, checkAdmin(ctx, database, "admin@example.com", &out))
	assert.Contains(t, out.String(), "role admin")
}

func TestInitCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "findme.sqlite3")
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_NAME", "root")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("init", "--db", dbPath, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin account created")
	assert.Contains(t, out, "root@example.com")

	_, err = run("init", "--db", dbPath, "--log-level", "error")
	assert.ErrorContains(t, err, "already exists")

	out, err = run("init", "--db", dbPath, "--log-level", "error", "--reset-password")
	require.NoError(t, err)
	assert.Contains(t, out, "Password reset")

	out, err = run("check-admin", "--db", dbPath, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "role admin")

	_, err = run("check-admin", "--db", filepath.Join(t.TempDir(), "missing.sqlite3"))
	assert.Error(t, err)
}

func TestTokenPruner(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM revoked_tokens")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startTokenPruner(ctx, database, 10*time.Millisecond, zap.New(core))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("pruned revoked tokens").Len() > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	entry := logs.FilterMessage("pruned revoked tokens").All()[0]
	assert.Equal(t, int64(2), entry.ContextMap()["removed"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenPrunerLogsErrors(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM revoked_tokens")).
		WillReturnError(assert.AnError)

	core, logs := observer.New(zapcore.ErrorLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startTokenPruner(ctx, database, 10*time.Millisecond, zap.New(core))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("failed to prune revoked tokens").Len() > 0
	}, time.Second, 5*time.Millisecond)
}
