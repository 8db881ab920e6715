// internal/app/features/files/routes.go
package files

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter for the file endpoints; mounted at /files
// behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", h.HandleUpload)
	r.Post("/sign", h.HandleSign)
	return r
}
