package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/access"
	"github.com/erazemk/findme/internal/model"
	"github.com/erazemk/findme/internal/store"
	"github.com/erazemk/findme/internal/upload"
)

// ItemsHandler handles the item registry endpoints.
type ItemsHandler struct {
	responder
	DB      *sql.DB
	Uploads *upload.Store
	Policy  access.Policy
}

type itemFields struct {
	Name, Description, Category, Location, DateLost *string
}

func (f *itemFields) targets() map[string]**string {
	return map[string]**string{
		"name":        &f.Name,
		"description": &f.Description,
		"category":    &f.Category,
		"location":    &f.Location,
		"dateLost":    &f.DateLost,
	}
}

type markFoundRequest struct {
	ItemID     int64  `json:"itemId"`
	FinderID   int64  `json:"finderId"`
	FinderName string `json:"finderName"`
}

type markFoundResponse struct {
	Message       string               `json:"message"`
	Item          *model.Item          `json:"item"`
	Notifications []model.Notification `json:"notifications"`
}

// pathID reads the {id} URL parameter. Ids that cannot name a row are
// reported as a missing resource.
func pathID(r *http.Request, resource string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, notFoundAs(resource, store.ErrNotFound)
	}
	return id, nil
}

// List handles GET /items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, items)
}

// ListMine handles GET /items/user.
func (h *ItemsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItemsByOwner(r.Context(), h.DB, CurrentUser(r.Context()).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, items)
}

// Get handles GET /items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Item")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, notFoundAs("Item", err))
		return
	}
	h.json(w, http.StatusOK, item)
}

// Create handles POST /items. The owner is always the caller.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())

	var f itemFields
	if err := parseForm(w, r, h.Uploads, f.targets()); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.Name == nil || f.Description == nil || f.Category == nil || f.Location == nil || f.DateLost == nil {
		h.fail(w, r, badRequest("name, description, category, location and dateLost are required"))
		return
	}
	dateLost, err := model.ParseDate(*f.DateLost)
	if err != nil {
		h.fail(w, r, badRequest("Invalid dateLost"))
		return
	}

	photo, err := savePhoto(r, h.Uploads, "photo")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var item *model.Item
	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		var err error
		item, err = store.CreateItem(r.Context(), tx, store.NewItem{
			Name:        *f.Name,
			Description: *f.Description,
			Category:    *f.Category,
			Location:    *f.Location,
			DateLost:    dateLost,
			Photo:       photo,
			OwnerID:     user.ID,
		})
		if err != nil {
			return err
		}
		return store.LogActivity(r.Context(), tx, user.ID, model.ActionPostItem,
			fmt.Sprintf("Item %q posted by %s", item.Name, user.Name))
	})
	if err != nil {
		h.discard(photo)
		h.fail(w, r, err)
		return
	}

	h.log.Info("item created", zap.Int64("id", item.ID), zap.Int64("owner", user.ID))
	h.json(w, http.StatusCreated, item)
}

// Update handles PUT /items/{id}. Only fields present in the body change.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	id, err := pathID(r, "Item")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	existing, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, notFoundAs("Item", err))
		return
	}
	if err := h.Policy.Check(access.UpdateItem, user, existing.OwnerID); err != nil {
		h.fail(w, r, err)
		return
	}

	var f itemFields
	if err := parseForm(w, r, h.Uploads, f.targets()); err != nil {
		h.fail(w, r, err)
		return
	}
	patch := model.ItemPatch{
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Location:    f.Location,
	}
	if f.DateLost != nil {
		d, err := model.ParseDate(*f.DateLost)
		if err != nil {
			h.fail(w, r, badRequest("Invalid dateLost"))
			return
		}
		patch.DateLost = &d
	}

	photo, err := savePhoto(r, h.Uploads, "photo")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if photo != "" {
		patch.Photo = &photo
	}

	var item *model.Item
	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		var err error
		item, err = store.UpdateItem(r.Context(), tx, id, patch)
		if err != nil {
			return err
		}
		return store.LogActivity(r.Context(), tx, user.ID, model.ActionEditItem,
			fmt.Sprintf("Item %q edited by %s", item.Name, user.Name))
	})
	if err != nil {
		h.discard(photo)
		h.fail(w, r, notFoundAs("Item", err))
		return
	}
	if photo != "" {
		h.discard(existing.Photo)
	}

	h.log.Info("item updated", zap.Int64("id", item.ID), zap.Int64("by", user.ID))
	h.json(w, http.StatusOK, item)
}

// Delete handles DELETE /items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	id, err := pathID(r, "Item")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, notFoundAs("Item", err))
		return
	}
	if err := h.Policy.Check(access.DeleteItem, user, item.OwnerID); err != nil {
		h.fail(w, r, err)
		return
	}

	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		if err := store.DeleteItem(r.Context(), tx, id); err != nil {
			return err
		}
		return store.LogActivity(r.Context(), tx, user.ID, model.ActionDeleteItem,
			fmt.Sprintf("Item %q deleted by %s", item.Name, user.Name))
	})
	if err != nil {
		h.fail(w, r, notFoundAs("Item", err))
		return
	}
	h.discard(item.Photo)

	h.log.Info("item deleted", zap.Int64("id", id), zap.Int64("by", user.ID))
	h.message(w, http.StatusOK, "Item deleted successfully")
}

// MarkFound handles POST /items/found. The caller need not own the item.
func (h *ItemsHandler) MarkFound(w http.ResponseWriter, r *http.Request) {
	var req markFoundRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ItemID <= 0 || req.FinderID <= 0 || req.FinderName == "" {
		h.fail(w, r, badRequest("Missing required fields"))
		return
	}

	item, created, err := store.MarkItemFound(r.Context(), h.DB, store.FoundReport{
		ItemID:     req.ItemID,
		FinderID:   req.FinderID,
		FinderName: req.FinderName,
	})
	if err != nil {
		h.fail(w, r, notFoundAs("Item", err))
		return
	}

	h.log.Info("item marked found",
		zap.Int64("id", item.ID),
		zap.Int64("finder", req.FinderID),
		zap.Int64("reported_by", CurrentUser(r.Context()).ID),
	)
	h.json(w, http.StatusOK, markFoundResponse{
		Message:       "Item marked as found, notifications sent",
		Item:          item,
		Notifications: created,
	})
}

func (h *ItemsHandler) discard(photo string) {
	discardPhoto(h.log, h.Uploads, photo)
}
