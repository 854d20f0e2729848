package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/findme/internal/store"
)

// AdminHandler handles the administrator dashboard endpoints.
type AdminHandler struct {
	responder
	DB  *sql.DB
	Now func() time.Time
}

// Notifications handles GET /admin/notifications.
func (h *AdminHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	ns, err := store.ListNotifications(r.Context(), h.DB, CurrentUser(r.Context()).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, ns)
}

// Analytics handles GET /admin/analytics. Nothing is cached.
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := store.ComputeAnalytics(r.Context(), h.DB, h.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, a)
}

// Activity handles GET /admin/activity?limit=N.
func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.fail(w, r, badRequest("Invalid limit"))
			return
		}
		limit = n
	}

	entries, err := store.ListActivity(r.Context(), h.DB, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, entries)
}
