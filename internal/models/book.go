package models

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidBook = errors.New("invalid book")

type Book struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title" yaml:"title"`
	Author        string             `json:"author" bson:"author" yaml:"author"`
	Genre         string             `json:"genre" bson:"genre" yaml:"genre"`
	PublishedYear int                `json:"published_year" bson:"published_year" yaml:"published_year"`
	Price         float64            `json:"price" bson:"price" yaml:"price"`
	InStock       bool               `json:"in_stock" bson:"in_stock" yaml:"in_stock"`
	Pages         int                `json:"pages" bson:"pages" yaml:"pages"`
	Publisher     string             `json:"publisher" bson:"publisher" yaml:"publisher"`
}

const (
	BookEntity  = "book"
	IndexEntity = "index"
)

// Validate checks a book that is about to be written by this module.
func (b Book) Validate() error {
	switch {
	case b.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidBook)
	case b.Author == "":
		return fmt.Errorf("%w: author is required for %q", ErrInvalidBook, b.Title)
	case b.Price < 0:
		return fmt.Errorf("%w: negative price for %q", ErrInvalidBook, b.Title)
	case b.Pages < 0:
		return fmt.Errorf("%w: negative page count for %q", ErrInvalidBook, b.Title)
	case b.PublishedYear > time.Now().Year():
		return fmt.Errorf("%w: %q published in the future (%d)", ErrInvalidBook, b.Title, b.PublishedYear)
	}
	return nil
}

// BookSummary is a projected book row. Fields left out of the projection
// stay empty and are not printed. Price is a pointer so a projected price
// of 0 is still printed.
type BookSummary struct {
	Title  string   `json:"title,omitempty" bson:"title,omitempty"`
	Author string   `json:"author,omitempty" bson:"author,omitempty"`
	Price  *float64 `json:"price,omitempty" bson:"price,omitempty"`
}
