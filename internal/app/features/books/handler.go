// internal/app/features/books/handler.go
package books

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/libraryhub/internal/app/services/catalog"
	"github.com/dalemusser/libraryhub/internal/app/system/liberr"
	"github.com/dalemusser/libraryhub/internal/app/system/normalize"
	"github.com/dalemusser/libraryhub/internal/app/system/respond"
	"github.com/dalemusser/libraryhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the book catalog endpoints.
type Handler struct {
	Catalog      *catalog.Service
	PreviewLimit int64
	Log          *zap.Logger
}

func NewHandler(svc *catalog.Service, previewLimit int64, logger *zap.Logger) *Handler {
	return &Handler{
		Catalog:      svc,
		PreviewLimit: previewLimit,
		Log:          logger,
	}
}

// ServeList handles GET /book.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	books, err := h.Catalog.ListAll(r.Context())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, books)
}

// ServeFeatured handles GET /book/two: the home page's featured shelf,
// PreviewLimit books.
func (h *Handler) ServeFeatured(w http.ResponseWriter, r *http.Request) {
	h.preview(w, r, h.PreviewLimit)
}

// ServePreview handles GET /book/preview?limit=n. Without limit it behaves
// like ServeFeatured.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	limit := h.PreviewLimit
	if raw := normalize.QueryParam(query.Get(r, "limit")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respond.Error(w, r, h.Log, liberr.Invalid("limit must be a positive integer"))
			return
		}
		limit = n
	}
	h.preview(w, r, limit)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request, limit int64) {
	books, err := h.Catalog.ListPreview(r.Context(), limit)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, books)
}

// ServeGet handles GET /book/{id} and GET /books/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.Catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, b)
}

// ServeCreate handles POST /book.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	var in catalog.BookInput
	if err := respond.DecodeJSON(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	b, err := h.Catalog.Create(r.Context(), in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, b)
}

// ServeUpdate handles PATCH /book/{id}.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p models.BookPatch
	if err := respond.DecodeJSON(w, r, &p); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	b, err := h.Catalog.Update(r.Context(), id, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, b)
}
