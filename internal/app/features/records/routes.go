// internal/app/features/records/routes.go
package records

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter for the record endpoints; mounted at
// /groups/{groupID}/records behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Post("/{recordID}/complete", h.HandleComplete)
	r.Delete("/{recordID}", h.HandleDelete)
	return r
}
