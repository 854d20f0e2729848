package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/access"
	"github.com/erazemk/findme/internal/auth"
	"github.com/erazemk/findme/internal/upload"
)

// Deps are the process-wide collaborators shared by all handlers. They are
// built once at startup and never mutated.
type Deps struct {
	DB      *sql.DB
	Issuer  *auth.Issuer
	Uploads *upload.Store
	Log     *zap.Logger

	// Policy defaults to access.DefaultPolicy.
	Policy access.Policy
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Policy == nil {
		d.Policy = access.DefaultPolicy
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	rs := responder{log: d.Log}

	authHandler := &AuthHandler{responder: rs, DB: d.DB, Issuer: d.Issuer}
	itemsHandler := &ItemsHandler{responder: rs, DB: d.DB, Uploads: d.Uploads, Policy: d.Policy}
	usersHandler := &UsersHandler{responder: rs, DB: d.DB, Uploads: d.Uploads, Policy: d.Policy}
	adminHandler := &AdminHandler{responder: rs, DB: d.DB, Now: d.Now}

	authMW := Authenticate(d.DB, d.Issuer, d.Log)
	require := func(op access.Operation) func(http.Handler) http.Handler {
		return Require(d.Policy, op, d.Log)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rs.message(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rs.message(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Handle(upload.URLPrefix+"*", d.Uploads.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.With(require(access.Logout)).Post("/logout", authHandler.Logout)
			r.With(require(access.ChangePassword)).Put("/password", authHandler.ChangePassword)
		})
	})

	r.Route("/items", func(r chi.Router) {
		// Public reads.
		r.Get("/", itemsHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.With(require(access.ListMyItems)).Get("/user", itemsHandler.ListMine)
			r.With(require(access.CreateItem)).Post("/", itemsHandler.Create)
			r.With(require(access.MarkItemFound)).Post("/found", itemsHandler.MarkFound)
			r.With(require(access.UpdateItem)).Put("/{id}", itemsHandler.Update)
			r.With(require(access.DeleteItem)).Delete("/{id}", itemsHandler.Delete)
		})

		r.Get("/{id}", itemsHandler.Get)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(authMW)
		r.With(require(access.ListUsers)).Get("/", usersHandler.List)
		r.With(require(access.UpdateProfile)).Put("/profile", usersHandler.UpdateProfile)
		r.With(require(access.GetUser)).Get("/{id}", usersHandler.Get)
		r.With(require(access.UpdateUser)).Put("/{id}", usersHandler.Update)
		r.With(require(access.DeleteUser)).Delete("/{id}", usersHandler.Delete)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authMW)
		r.With(require(access.ListNotifications)).Get("/notifications", adminHandler.Notifications)
		r.With(require(access.ViewAnalytics)).Get("/analytics", adminHandler.Analytics)
		r.With(require(access.ViewActivity)).Get("/activity", adminHandler.Activity)
	})

	return r
}
