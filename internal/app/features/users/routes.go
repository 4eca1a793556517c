// internal/app/features/users/routes.go
package users

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /users.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	if h.Limiter != nil {
		r.With(h.Limiter.Middleware(h.Log)).Post("/", h.ServeLogin)
	} else {
		r.Post("/", h.ServeLogin)
	}
	r.Get("/", h.ServeList)
	r.Get("/{email}", h.ServeGet)
	r.Get("/{email}/logins", h.ServeLogins)
	return r
}
