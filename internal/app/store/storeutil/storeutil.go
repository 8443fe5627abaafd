// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Paging bounds for list endpoints.
const (
	DefaultLimit int64 = 10
	MaxLimit     int64 = 100
)

// Page is a limit/offset window. Build it with NewPage or ParsePage so the
// bounds hold.
type Page struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

// NewPage clamps limit to 1..MaxLimit (0 or less means DefaultLimit) and
// offset to >= 0.
func NewPage(limit, offset int64) Page {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// ParsePage reads limit and offset query values. Unparseable values fall
// back to the defaults.
func ParsePage(limit, offset string) Page {
	l, _ := strconv.ParseInt(strings.TrimSpace(limit), 10, 64)
	o, _ := strconv.ParseInt(strings.TrimSpace(offset), 10, 64)
	return NewPage(l, o)
}

// Find returns find options for the page sorted newest first, with _id as
// the tie-breaker so paging is stable.
func (p Page) Find() *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(p.Offset).
		SetLimit(p.Limit)
}
