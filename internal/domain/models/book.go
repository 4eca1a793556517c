// internal/domain/models/book.go
package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book is a catalog entry in the books collection.
//
// JSON keeps the Mongo-style "_id" key; existing frontends read it directly.
type Book struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name       string             `bson:"name" json:"name"`
	AuthorName string             `bson:"authorName" json:"authorName"`
	Category   string             `bson:"category" json:"category"`
	Rating     Rating             `bson:"rating" json:"rating"`
	Photo      string             `bson:"photo" json:"photo"`

	// Older records were inserted without timestamps.
	CreatedAt *time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// BookPatch carries a partial update. Nil fields are left untouched.
type BookPatch struct {
	Name       *string `json:"name"`
	AuthorName *string `json:"authorName"`
	Category   *string `json:"category"`
	Rating     *Rating `json:"rating"`
	Photo      *string `json:"photo"`
}

// UnmarshalJSON decodes a patch; a blank rating leaves Rating nil.
func (p *BookPatch) UnmarshalJSON(data []byte) error {
	type plain BookPatch
	var aux struct {
		plain
		Rating json.RawMessage `json:"rating"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	rating, err := OptionalRating(aux.Rating)
	if err != nil {
		return err
	}
	*p = BookPatch(aux.plain)
	p.Rating = rating
	return nil
}

// IsEmpty reports whether the patch sets no field at all.
func (p BookPatch) IsEmpty() bool {
	return p.Name == nil && p.AuthorName == nil && p.Category == nil && p.Rating == nil && p.Photo == nil
}
