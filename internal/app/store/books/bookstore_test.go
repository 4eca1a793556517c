package bookstore_test

import (
	"errors"
	"testing"

	bookstore "github.com/dalemusser/libraryhub/internal/app/store/books"
	"github.com/dalemusser/libraryhub/internal/domain/models"
	"github.com/dalemusser/libraryhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := bookstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Book{
		Name:       "Dune",
		AuthorName: "Frank Herbert",
		Category:   "Sci-Fi",
		Rating:     4.5,
		Photo:      "https://example.com/dune.jpg",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.CreatedAt == nil {
		t.Error("expected CreatedAt to be set")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Dune" || got.AuthorName != "Frank Herbert" || got.Category != "Sci-Fi" {
		t.Errorf("unexpected book: %+v", got)
	}
	if got.Rating != 4.5 {
		t.Errorf("Rating: got %v, want 4.5", got.Rating)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := bookstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_List_Limit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := bookstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 8; i++ {
		fixtures.CreateBook(ctx, "Book", "Author")
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 8 {
		t.Errorf("List(0): got %d books, want 8", len(all))
	}

	some, err := store.List(ctx, 6)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(some) != 6 {
		t.Errorf("List(6): got %d books, want 6", len(some))
	}
}

func TestStore_List_EmptyIsNotNil(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := bookstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	books, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if books == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestStore_Update_PartialLeavesOtherFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := bookstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Insert a document with a field the API never writes.
	id := primitive.NewObjectID()
	_, err := db.Collection(bookstore.Collection).InsertOne(ctx, bson.M{
		"_id":        id,
		"name":       "Old Name",
		"authorName": "Someone",
		"category":   "History",
		"rating":     3,
		"photo":      "old.jpg",
		"quantity":   7,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	name := "New Name"
	rating := models.Rating(4)
	updated, err := store.Update(ctx, id, models.BookPatch{Name: &name, Rating: &rating})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "New Name" || updated.Rating != 4 {
		t.Errorf("unexpected updated book: %+v", updated)
	}
	if updated.AuthorName != "Someone" || updated.Photo != "old.jpg" {
		t.Errorf("unpatched fields changed: %+v", updated)
	}

	var raw bson.M
	if err := db.Collection(bookstore.Collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if q, _ := raw["quantity"].(int32); q != 7 {
		t.Errorf("quantity: got %v, want 7", raw["quantity"])
	}
}

func TestStore_Update_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := bookstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	name := "x"
	_, err := store.Update(ctx, primitive.NewObjectID(), models.BookPatch{Name: &name})
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_DecodesLegacyStringRating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := bookstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	_, err := db.Collection(bookstore.Collection).InsertOne(ctx, bson.M{
		"_id": id, "name": "Legacy", "rating": "3.5",
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Rating != 3.5 {
		t.Errorf("Rating: got %v, want 3.5", got.Rating)
	}
}
