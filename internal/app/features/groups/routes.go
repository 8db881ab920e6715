// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter for the group endpoints; mounted at
// /groups behind RequireSignedIn. recordRoutes is mounted under
// /{groupID}/records so record handlers see the groupID URL param.
func Routes(h *Handler, recordRoutes chi.Router) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleListMine)
	r.Route("/{groupID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Delete("/", h.HandleDelete)
		r.Post("/join", h.HandleJoin)
		r.Post("/leave", h.HandleLeave)
		r.Get("/members", h.HandleMembers)
		r.Mount("/records", recordRoutes)
	})
	return r
}
