// internal/app/features/books/routes.go
package books

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /book.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	r.Get("/two", h.ServeFeatured)
	r.Get("/preview", h.ServePreview)
	r.Get("/{id}", h.ServeGet)
	r.Patch("/{id}", h.ServeUpdate)
	return r
}

// AliasRoutes returns the subrouter mounted under /books, which older
// clients use for single-book lookups.
func AliasRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.ServeGet)
	return r
}
