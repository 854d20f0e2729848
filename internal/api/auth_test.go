package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/findme/internal/model"
)

func TestRegisterLoginLogout(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name":     "alice",
		"fullName": "Alice Liddell",
		"email":    "alice@example.com",
		"password": testPassword,
		"role":     model.RoleAdmin,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	registered := decode[tokenResponse](t, resp)
	require.NotEmpty(t, registered.Token)
	assert.Equal(t, model.RoleUser, registered.User.Role, "registration never grants admin")
	assert.Equal(t, "Alice Liddell", registered.User.FullName)

	resp = env.do(t, http.MethodGet, "/items/user", registered.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", errorMessage(t, resp))

	resp = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[tokenResponse](t, resp)
	assert.Equal(t, registered.User.ID, login.User.ID)

	resp = env.do(t, http.MethodPost, "/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/items/user", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or expired token", errorMessage(t, resp))

	// Other sessions stay valid.
	resp = env.do(t, http.MethodGet, "/items/user", registered.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []string{model.ActionLogin, model.ActionRegister}, activityActions(t, env.db))
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "bob", model.RoleUser)

	tests := map[string]map[string]string{
		"missing name":    {"email": "a@example.com", "password": testPassword},
		"bad email":       {"name": "a", "email": "nope", "password": testPassword},
		"short password":  {"name": "a", "email": "a@example.com", "password": "short"},
		"duplicate email": {"name": "b", "email": "bob@example.com", "password": testPassword},
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Empty(t, activityActions(t, env.db))
}

func TestChangePassword(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.createUser(t, "alice", model.RoleUser)

	resp := env.do(t, http.MethodPut, "/auth/password", token, map[string]string{
		"currentPassword": "not-it", "newPassword": "another-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/auth/password", token, map[string]string{
		"currentPassword": testPassword, "newPassword": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/auth/password", token, map[string]string{
		"currentPassword": testPassword, "newPassword": "another-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "another-password",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not found", errorMessage(t, resp))
}
