package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/libraryhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateBook inserts a book with the given name and author.
func (f *Fixtures) CreateBook(ctx context.Context, name, author string) models.Book {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	book := models.Book{
		ID:         primitive.NewObjectID(),
		Name:       name,
		AuthorName: author,
		Category:   "Fiction",
		Rating:     4,
		Photo:      "https://example.com/cover.jpg",
		CreatedAt:  &now,
	}

	if _, err := f.db.Collection("books").InsertOne(ctx, book); err != nil {
		f.t.Fatalf("failed to create test book: %v", err)
	}
	return book
}

// CreateUser inserts a user whose createdAt and lastLogin are one day ago.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()

	then := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Millisecond)
	user := models.User{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Name:      name,
		CreatedAt: then,
		LastLogin: then,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateBorrow inserts a borrow record for (email, bookID).
func (f *Fixtures) CreateBorrow(ctx context.Context, email, bookID string) models.BorrowRecord {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := models.BorrowRecord{
		ID:         primitive.NewObjectID(),
		Email:      email,
		BookID:     bookID,
		BorrowedAt: &now,
	}

	if _, err := f.db.Collection("borrow").InsertOne(ctx, rec); err != nil {
		f.t.Fatalf("failed to create test borrow record: %v", err)
	}
	return rec
}
