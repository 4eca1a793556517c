// internal/app/features/users/handler.go
package users

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/libraryhub/internal/app/services/directory"
	"github.com/dalemusser/libraryhub/internal/app/system/liberr"
	"github.com/dalemusser/libraryhub/internal/app/system/ratelimit"
	"github.com/dalemusser/libraryhub/internal/app/system/respond"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the user directory endpoints.
type Handler struct {
	Directory *directory.Service
	Limiter   *ratelimit.Limiter // guards POST /users; nil disables
	Log       *zap.Logger
}

func NewHandler(svc *directory.Service, limiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		Directory: svc,
		Limiter:   limiter,
		Log:       logger,
	}
}

// ServeLogin handles POST /users. The body is the client's user profile;
// email is required, name and photo are recognised, anything else is kept
// as profile data on first registration.
//
// 201 with the new user on first login, 200 with the updated user after.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	u, created, err := h.Directory.LoginOrRegister(r.Context(), directory.LoginInput{
		Email:     stringField(body, "email"),
		Name:      stringField(body, "name"),
		Photo:     stringField(body, "photo"),
		Profile:   body,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond.JSON(w, status, u)
}

// ServeList handles GET /users.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	users, err := h.Directory.ListAll(r.Context())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

// ServeGet handles GET /users/{email}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	email, err := emailParam(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	u, err := h.Directory.GetByEmail(r.Context(), email)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

// ServeLogins handles GET /users/{email}/logins?limit=n.
func (h *Handler) ServeLogins(w http.ResponseWriter, r *http.Request) {
	email, err := emailParam(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var limit int64
	if raw := query.Get(r, "limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respond.Error(w, r, h.Log, liberr.Invalid("limit must be an integer"))
			return
		}
		limit = n
	}
	recs, err := h.Directory.RecentLogins(r.Context(), email, limit)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, recs)
}

// emailParam returns the {email} path segment decoded. chi matches on the
// escaped path, so "a%40x.com" arrives here still escaped.
func emailParam(r *http.Request) (string, error) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		return "", liberr.Invalid("email is not a valid path segment")
	}
	return email, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
