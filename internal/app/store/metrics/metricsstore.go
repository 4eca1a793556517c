package metricsstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of library totals reported by /health and /metrics.
type Counts struct {
	Books   int64 `json:"books"`
	Borrows int64 `json:"borrows"`
	Users   int64 `json:"users"`
}

var collections = []struct {
	name string
	dst  func(*Counts) *int64
}{
	{"books", func(c *Counts) *int64 { return &c.Books }},
	{"borrow", func(c *Counts) *int64 { return &c.Borrows }},
	{"users", func(c *Counts) *int64 { return &c.Users }},
}

// Count returns collection totals, stopping at the first failed count.
func Count(ctx context.Context, db *mongo.Database) (Counts, error) {
	var out Counts
	for _, c := range collections {
		n, err := db.Collection(c.name).EstimatedDocumentCount(ctx)
		if err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", c.name, err)
		}
		*c.dst(&out) = n
	}
	return out, nil
}

// FetchCounts returns collection totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts
	for _, c := range collections {
		if n, err := db.Collection(c.name).EstimatedDocumentCount(ctx); err == nil {
			*c.dst(&out) = n
		}
	}
	return out
}
