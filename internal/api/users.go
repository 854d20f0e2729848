package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/access"
	"github.com/erazemk/findme/internal/model"
	"github.com/erazemk/findme/internal/store"
	"github.com/erazemk/findme/internal/upload"
)

// UsersHandler handles the user registry endpoints.
type UsersHandler struct {
	responder
	DB      *sql.DB
	Uploads *upload.Store
	Policy  access.Policy
}

type updateUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified *bool  `json:"isVerified"`
}

// List handles GET /users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, users)
}

// Get handles GET /users/{id}. Admins may read anyone, users themselves.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "User")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Policy.Check(access.GetUser, CurrentUser(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, notFoundAs("User", err))
		return
	}
	h.json(w, http.StatusOK, user)
}

// Update handles PUT /users/{id}. Admins may change name, email, role and
// verification; everyone else only their own name and email. Other fields
// are ignored.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := CurrentUser(r.Context())
	id, err := pathID(r, "User")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Policy.Check(access.UpdateUser, actor, id); err != nil {
		h.fail(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	var upd store.UserUpdate
	if name := strings.TrimSpace(req.Name); name != "" {
		upd.Name = &name
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		if err := model.ValidateEmail(email); err != nil {
			h.fail(w, r, badRequest("Invalid email"))
			return
		}
		upd.Email = &email
	}
	isAdmin := actor.Role == model.RoleAdmin
	if isAdmin {
		if req.Role != "" {
			if !model.ValidRole(req.Role) {
				h.fail(w, r, badRequest("Invalid role"))
				return
			}
			upd.Role = &req.Role
		}
		upd.IsVerified = req.IsVerified
	}

	// The tag follows the actor, not the fields that changed.
	action := model.ActionEditProfile
	if isAdmin {
		action = model.ActionVerifyUser
	}

	var user *model.User
	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		var err error
		user, err = store.UpdateUser(r.Context(), tx, id, upd)
		if err != nil {
			return err
		}
		return store.LogActivity(r.Context(), tx, actor.ID, action,
			fmt.Sprintf("User %s updated by %s", user.Name, actor.Name))
	})
	if err != nil {
		h.fail(w, r, notFoundAs("User", err))
		return
	}

	h.log.Info("user updated", zap.Int64("id", id), zap.Int64("by", actor.ID), zap.String("action", action))
	h.json(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id}. The user's items go with them.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := CurrentUser(r.Context())
	id, err := pathID(r, "User")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var deleted *model.User
	var items []model.Item
	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		var err error
		items, err = store.ListItemsByOwner(r.Context(), tx, id)
		if err != nil {
			return err
		}
		deleted, err = store.DeleteUser(r.Context(), tx, id)
		if err != nil {
			return err
		}
		return store.LogActivity(r.Context(), tx, actor.ID, model.ActionDeleteUser,
			fmt.Sprintf("User %s deleted by %s", deleted.Name, actor.Name))
	})
	if err != nil {
		h.fail(w, r, notFoundAs("User", err))
		return
	}

	discardPhoto(h.log, h.Uploads, deleted.ProfilePhoto)
	for _, item := range items {
		discardPhoto(h.log, h.Uploads, item.Photo)
	}

	h.log.Info("user deleted", zap.Int64("id", id), zap.Int64("by", actor.ID), zap.Int("items", len(items)))
	h.message(w, http.StatusOK, "User deleted successfully")
}

// UpdateProfile handles PUT /users/profile: full name, contact number and
// profile photo of the caller.
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor := CurrentUser(r.Context())

	var fullName, contact *string
	err := parseForm(w, r, h.Uploads, map[string]**string{
		"fullName":      &fullName,
		"contactNumber": &contact,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	photo, err := savePhoto(r, h.Uploads, "profilePhoto")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	upd := store.UserUpdate{FullName: fullName, ContactNumber: contact}
	if photo != "" {
		upd.ProfilePhoto = &photo
	}

	var user *model.User
	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		var err error
		user, err = store.UpdateUser(r.Context(), tx, actor.ID, upd)
		if err != nil {
			return err
		}
		return store.LogActivity(r.Context(), tx, actor.ID, model.ActionEditProfile,
			fmt.Sprintf("User %s updated their profile", user.Name))
	})
	if err != nil {
		discardPhoto(h.log, h.Uploads, photo)
		h.fail(w, r, notFoundAs("User", err))
		return
	}
	if photo != "" {
		discardPhoto(h.log, h.Uploads, actor.ProfilePhoto)
	}

	h.log.Info("profile updated", zap.Int64("id", actor.ID))
	h.json(w, http.StatusOK, user)
}
