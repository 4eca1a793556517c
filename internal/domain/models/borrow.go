// internal/domain/models/borrow.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BorrowRecord links a user (by email) to a book they currently hold.
//
// At most one record exists per (Email, BookID); the pair is backed by the
// uniq_borrow_email_book index. Returning a book deletes its record.
type BorrowRecord struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email  string             `bson:"email" json:"email"`
	BookID string             `bson:"bookId" json:"bookId"`

	// Missing on records written before borrow times were tracked.
	BorrowedAt *time.Time `bson:"borrowedAt,omitempty" json:"borrowedAt,omitempty"`

	// Display fields the client sent with the borrow (book name, image,
	// return date, ...), returned as-is in listings.
	Details map[string]any `bson:"details,omitempty" json:"details,omitempty"`
}
