// Package item is a small REST resource for named items, kept in memory or in
// PostgreSQL and served behind an API key.
package item

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/sessiontrack/handler"
)

type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Input is the writable part of an Item.
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in Input) item(id int64) Item {
	return Item{ID: id, Name: in.Name, Description: in.Description}
}

var (
	ErrNotFound = handler.NewHTTPError(http.StatusNotFound, "Item not found")
	ErrStorage  = errors.New("item.storage_failed")
)

const maxNameLength = 255

func (in Input) validate() error {
	v := handler.NewValidationError()
	switch {
	case in.Name == "":
		v.Add("name", "is required")
	case len(in.Name) > maxNameLength:
		v.Add("name", "must be at most 255 characters")
	}
	if v.IsEmpty() {
		return nil
	}
	return v
}
