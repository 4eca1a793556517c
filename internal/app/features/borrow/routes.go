// internal/app/features/borrow/routes.go
package borrow

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /borrow.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.ServeBorrow)
	r.Get("/email", h.ServeByEmail)
	r.Delete("/{id}", h.ServeReturn)
	return r
}
