// internal/app/features/notifications/routes.go
package notifications

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter for the notification endpoints; mounted
// at /notifications behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/{notifID}/read", h.HandleMarkRead)
	r.Delete("/{notifID}", h.HandleDelete)
	return r
}
