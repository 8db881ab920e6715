// internal/app/features/deadlines/routes.go
package deadlines

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter for the deadline endpoints; mounted at
// /deadlines behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleGet)
	return r
}
