// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a library patron. Users are created on first login and never deleted.
//
// NOTE:
//   - Email is the natural key (normalized lower-case, unique index uniq_users_email).
//   - Profile holds whatever extra fields the client sent on first login.
type User struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email   string             `bson:"email" json:"email"`
	Name    string             `bson:"name,omitempty" json:"name,omitempty"`
	Photo   string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Profile map[string]any     `bson:"profile,omitempty" json:"profile,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	LastLogin time.Time `bson:"lastLogin" json:"lastLogin"`
}
