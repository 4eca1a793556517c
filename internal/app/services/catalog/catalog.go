// Package catalog implements the book catalog: listing, lookup, creation and
// partial update of books.
package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dalemusser/libraryhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/libraryhub/internal/app/system/inputval"
	"github.com/dalemusser/libraryhub/internal/app/system/liberr"
	"github.com/dalemusser/libraryhub/internal/app/system/normalize"
	"github.com/dalemusser/libraryhub/internal/app/system/timeouts"
	"github.com/dalemusser/libraryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store is the persistence the catalog needs. *bookstore.Store satisfies it.
type Store interface {
	List(ctx context.Context, limit int64) ([]models.Book, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	Create(ctx context.Context, b models.Book) (models.Book, error)
	Update(ctx context.Context, id primitive.ObjectID, p models.BookPatch) (*models.Book, error)
}

// BookInput is the body of a create request.
type BookInput struct {
	Name       string         `json:"name" validate:"required,max=300" label:"name"`
	AuthorName string         `json:"authorName" validate:"required,max=200" label:"authorName"`
	Category   string         `json:"category" validate:"required,max=100" label:"category"`
	Rating     *models.Rating `json:"rating" validate:"required,gte=0,lte=5" label:"rating"`
	Photo      string         `json:"photo" validate:"omitempty,httpurl" label:"photo"`
}

// UnmarshalJSON decodes a create body; a blank rating counts as missing.
func (in *BookInput) UnmarshalJSON(data []byte) error {
	type plain BookInput
	var aux struct {
		plain
		Rating json.RawMessage `json:"rating"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	rating, err := models.OptionalRating(aux.Rating)
	if err != nil {
		return err
	}
	*in = BookInput(aux.plain)
	in.Rating = rating
	return nil
}

// patchRules mirrors BookInput for the fields a patch supplies.
type patchRules struct {
	Name       *string        `validate:"omitempty,min=1,max=300" label:"name"`
	AuthorName *string        `validate:"omitempty,min=1,max=200" label:"authorName"`
	Category   *string        `validate:"omitempty,min=1,max=100" label:"category"`
	Rating     *models.Rating `validate:"omitempty,gte=0,lte=5" label:"rating"`
	Photo      *string        `validate:"omitempty,httpurl" label:"photo"`
}

type Service struct {
	store Store
	log   *zap.Logger
}

func New(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, log: logger}
}

// ListAll returns every book in store order.
func (s *Service) ListAll(ctx context.Context) ([]models.Book, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "books list")
	defer cancel()

	books, err := s.store.List(ctx, 0)
	if err != nil {
		return nil, liberr.Store("list books", err)
	}
	return books, nil
}

// ListPreview returns at most limit books.
func (s *Service) ListPreview(ctx context.Context, limit int64) ([]models.Book, error) {
	if limit <= 0 {
		return nil, liberr.Invalid("limit must be a positive integer")
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "books preview")
	defer cancel()

	books, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, liberr.Store("preview books", err)
	}
	return books, nil
}

// GetByID returns the book with the given hex identifier.
func (s *Service) GetByID(ctx context.Context, id string) (models.Book, error) {
	oid, err := inputval.ObjectID(id)
	if err != nil {
		return models.Book{}, liberr.InvalidID()
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "book get")
	defer cancel()

	b, err := s.store.GetByID(ctx, oid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Book{}, liberr.NotFound("Book")
	}
	if err != nil {
		return models.Book{}, liberr.Store("get book", err)
	}
	return *b, nil
}

// Create validates in and inserts a new book.
func (s *Service) Create(ctx context.Context, in BookInput) (models.Book, error) {
	in.Name = cleanText(in.Name)
	in.AuthorName = cleanText(in.AuthorName)
	in.Category = cleanText(in.Category)
	in.Photo = normalize.Name(in.Photo)
	if err := check(in); err != nil {
		return models.Book{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "book create")
	defer cancel()

	b, err := s.store.Create(ctx, models.Book{
		Name:       in.Name,
		AuthorName: in.AuthorName,
		Category:   in.Category,
		Rating:     *in.Rating,
		Photo:      in.Photo,
	})
	if err != nil {
		return models.Book{}, liberr.Store("create book", err)
	}
	s.log.Info("book created", zap.String("book_id", b.ID.Hex()), zap.String("name", b.Name))
	return b, nil
}

// Update applies p to the book with the given hex identifier and returns
// the stored result. Fields p leaves nil are not written.
func (s *Service) Update(ctx context.Context, id string, p models.BookPatch) (models.Book, error) {
	oid, err := inputval.ObjectID(id)
	if err != nil {
		return models.Book{}, liberr.InvalidID()
	}
	if p.IsEmpty() {
		return models.Book{}, liberr.Missing("At least one of name, authorName, category, rating or photo")
	}
	p.Name = cleanPtr(p.Name)
	p.AuthorName = cleanPtr(p.AuthorName)
	p.Category = cleanPtr(p.Category)
	if p.Photo != nil {
		photo := normalize.Name(*p.Photo)
		p.Photo = &photo
	}
	if err := check(patchRules(p)); err != nil {
		return models.Book{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "book update")
	defer cancel()

	b, err := s.store.Update(ctx, oid, p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Book{}, liberr.NotFound("Book")
	}
	if err != nil {
		return models.Book{}, liberr.Store("update book", err)
	}
	return *b, nil
}

// check runs tag validation and converts the first failure into a liberr
// error: absent values are MissingParam, everything else InvalidField.
func check(v any) error {
	res := inputval.Validate(v)
	if !res.HasErrors() {
		return nil
	}
	first := res.Errors[0]
	if first.Tag == "required" {
		return liberr.Missing(first.Field)
	}
	return liberr.Invalid(first.Message)
}

func cleanText(s string) string {
	return normalize.Text(htmlsanitize.PlainText(s))
}

func cleanPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := cleanText(*p)
	return &v
}
