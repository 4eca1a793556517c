// internal/domain/models/rating.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Rating is a book's numeric score.
//
// Clients have historically sent it both as a JSON number and as a numeric
// string ("4.5"), and older documents store it as int, double or string.
// Rating accepts all of these and always writes a double.
type Rating float64

// MinRating and MaxRating bound a valid rating (inclusive).
const (
	MinRating Rating = 0
	MaxRating Rating = 5
)

// Valid reports whether r lies within [MinRating, MaxRating].
func (r Rating) Valid() bool {
	return r >= MinRating && r <= MaxRating
}

// UnmarshalJSON accepts a number or a numeric string.
func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return r.parse(s)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("rating must be a number: %w", err)
	}
	*r = Rating(f)
	return nil
}

// OptionalRating decodes a raw JSON rating field. An absent value, null or
// a blank string all mean "not supplied" and return nil.
func OptionalRating(raw []byte) (*Rating, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
	}
	var r Rating
	if err := r.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return &r, nil
}

// UnmarshalBSONValue decodes double, int32, int64 and numeric string values.
func (r *Rating) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeDouble:
		*r = Rating(rv.Double())
	case bson.TypeInt32:
		*r = Rating(rv.Int32())
	case bson.TypeInt64:
		*r = Rating(rv.Int64())
	case bson.TypeString:
		return r.parse(rv.StringValue())
	case bson.TypeNull, bson.TypeUndefined:
		*r = 0
	default:
		return fmt.Errorf("rating: unsupported bson type %s", t)
	}
	return nil
}

func (r *Rating) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*r = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("rating must be a number, got %q", s)
	}
	*r = Rating(f)
	return nil
}
