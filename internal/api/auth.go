package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/auth"
	"github.com/erazemk/findme/internal/model"
	"github.com/erazemk/findme/internal/store"
)

// AuthHandler handles registration, login, logout and password changes.
type AuthHandler struct {
	responder
	DB     *sql.DB
	Issuer *auth.Issuer
}

type registerRequest struct {
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

var errInvalidCredentials = &apiError{status: http.StatusUnauthorized, message: "Invalid credentials"}

// Register handles POST /auth/register. New accounts get the user role.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		h.fail(w, r, badRequest("name, email and password are required"))
		return
	}
	if err := model.ValidateEmail(req.Email); err != nil {
		h.fail(w, r, badRequest("Invalid email"))
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		h.fail(w, r, badRequest("Password must be at least %d characters", model.MinPasswordLength))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var user *model.User
	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		var err error
		user, err = store.CreateUser(r.Context(), tx, store.NewUser{
			Name:         req.Name,
			FullName:     strings.TrimSpace(req.FullName),
			Email:        req.Email,
			PasswordHash: hash,
			Role:         model.RoleUser,
		})
		if err != nil {
			return err
		}
		return store.LogActivity(r.Context(), tx, user.ID, model.ActionRegister,
			fmt.Sprintf("User %s registered", user.Name))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	token, err := h.Issuer.Generate(user.ID, user.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("user registered", zap.Int64("id", user.ID))
	h.json(w, http.StatusCreated, tokenResponse{Token: token, User: user})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		h.fail(w, r, badRequest("email and password are required"))
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, strings.TrimSpace(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		h.fail(w, r, errInvalidCredentials)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.log.Warn("login failed", zap.Int64("id", user.ID), zap.String("remote", r.RemoteAddr))
		h.fail(w, r, errInvalidCredentials)
		return
	}

	token, err := h.Issuer.Generate(user.ID, user.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := store.LogActivity(r.Context(), h.DB, user.ID, model.ActionLogin,
		fmt.Sprintf("User %s logged in", user.Name)); err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("user logged in", zap.Int64("id", user.ID), zap.String("role", user.Role))
	h.json(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

// Logout handles POST /auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := CurrentClaims(r.Context())
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("user logged out", zap.Int64("id", CurrentUser(r.Context()).ID))
	h.message(w, http.StatusOK, "Logged out")
}

// ChangePassword handles PUT /auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		h.fail(w, r, badRequest("currentPassword and newPassword are required"))
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		h.fail(w, r, &apiError{status: http.StatusUnauthorized, message: "Current password is incorrect"})
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		h.fail(w, r, badRequest("Password must be at least %d characters", model.MinPasswordLength))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		if err := store.UpdateUserPassword(r.Context(), tx, user.ID, hash); err != nil {
			return err
		}
		return store.LogActivity(r.Context(), tx, user.ID, model.ActionEditProfile,
			fmt.Sprintf("User %s changed their password", user.Name))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("user changed own password", zap.Int64("id", user.ID))
	h.message(w, http.StatusOK, "Password updated")
}
