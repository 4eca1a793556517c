package borrowstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/libraryhub/internal/app/system/normalize"
	"github.com/dalemusser/libraryhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the borrow records collection name.
const Collection = "borrow"

// ErrDuplicate is returned by Create when a record for the same
// (email, bookId) already exists (uniq_borrow_email_book).
var ErrDuplicate = errors.New("book already borrowed by this user")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// List returns every borrow record.
func (s *Store) List(ctx context.Context) ([]models.BorrowRecord, error) {
	return s.find(ctx, bson.M{})
}

// ListByEmail returns the records held by one user. No match is an empty slice.
func (s *Store) ListByEmail(ctx context.Context, email string) ([]models.BorrowRecord, error) {
	return s.find(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.BorrowRecord, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.BorrowRecord, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByPair looks up the record for (email, bookID).
// Returns mongo.ErrNoDocuments if the user does not hold the book.
func (s *Store) GetByPair(ctx context.Context, email, bookID string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email), "bookId": bookID}).Decode(&rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a new record. ID and BorrowedAt are assigned here.
// Returns ErrDuplicate if the pair is already recorded.
func (s *Store) Create(ctx context.Context, rec models.BorrowRecord) (models.BorrowRecord, error) {
	now := time.Now().UTC()
	rec.ID = primitive.NewObjectID()
	rec.Email = normalize.Email(rec.Email)
	rec.BorrowedAt = &now

	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		if wafflemongo.IsDup(err) {
			return models.BorrowRecord{}, ErrDuplicate
		}
		return models.BorrowRecord{}, err
	}
	return rec, nil
}

// Delete removes a record by ID and returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
