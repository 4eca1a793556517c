package bookstore

import (
	"context"
	"time"

	"github.com/dalemusser/libraryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the books collection name.
const Collection = "books"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// List returns books in natural order. A limit <= 0 returns every book.
func (s *Store) List(ctx context.Context, limit int64) ([]models.Book, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Book, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID loads a book by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var b models.Book
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts b with a fresh ID and creation time and returns the stored book.
func (s *Store) Create(ctx context.Context, b models.Book) (models.Book, error) {
	now := time.Now().UTC()
	b.ID = primitive.NewObjectID()
	b.CreatedAt = &now
	b.UpdatedAt = nil

	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Book{}, err
	}
	return b, nil
}

// Update applies the non-nil fields of p and returns the book as stored after
// the update. Fields outside the patch are never written. Returns
// mongo.ErrNoDocuments when no book has the given ID.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p models.BookPatch) (*models.Book, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.AuthorName != nil {
		set["authorName"] = *p.AuthorName
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Rating != nil {
		set["rating"] = float64(*p.Rating)
	}
	if p.Photo != nil {
		set["photo"] = *p.Photo
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var b models.Book
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}
