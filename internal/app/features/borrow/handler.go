// internal/app/features/borrow/handler.go
package borrow

import (
	"net/http"

	"github.com/dalemusser/libraryhub/internal/app/services/ledger"
	"github.com/dalemusser/libraryhub/internal/app/system/respond"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the borrow ledger endpoints.
type Handler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
}

func NewHandler(svc *ledger.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Ledger: svc,
		Log:    logger,
	}
}

// ServeList handles GET /borrow.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Ledger.ListAll(r.Context())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, recs)
}

// ServeByEmail handles GET /borrow/email?email=.
func (h *Handler) ServeByEmail(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Ledger.ListByEmail(r.Context(), query.Get(r, "email"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, recs)
}

// ServeBorrow handles POST /borrow. The body needs email and bookId; any
// other fields (book name, image, return date) are stored with the record.
func (h *Handler) ServeBorrow(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	rec, err := h.Ledger.Borrow(r.Context(), stringField(body, "email"), stringField(body, "bookId"), body)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, rec)
}

// ServeReturn handles DELETE /borrow/{id}.
func (h *Handler) ServeReturn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Ledger.ReturnBook(r.Context(), id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"message":      "Book returned",
		"deletedCount": 1,
	})
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
