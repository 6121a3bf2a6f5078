// Package seed loads the sample book catalogue into the books collection.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"plp-bookstore/internal/models"
	"plp-bookstore/internal/queries"
)

//go:embed books.yaml
var defaultCatalogue []byte

type Catalogue struct {
	Books []models.Book `yaml:"books"`
}

func Parse(r io.Reader) (Catalogue, error) {
	var c Catalogue
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Catalogue{}, fmt.Errorf("parse catalogue: %w", err)
	}
	for i, b := range c.Books {
		if err := b.Validate(); err != nil {
			return Catalogue{}, fmt.Errorf("book %d: %w", i+1, err)
		}
	}
	return c, nil
}

// Default returns the embedded sample catalogue.
func Default() (Catalogue, error) {
	return Parse(bytes.NewReader(defaultCatalogue))
}

// Load reads the catalogue at path, or the embedded one when path is empty.
func Load(path string) (Catalogue, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return Catalogue{}, err
	}
	defer f.Close()
	return Parse(f)
}

type Options struct {
	// Drop empties the collection before inserting.
	Drop bool
}

func Seed(ctx context.Context, books *queries.Books, c Catalogue, opts Options, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Drop {
		if err := books.Drop(ctx); err != nil {
			return 0, err
		}
		logger.Info("collection dropped", zap.String("collection", books.Collection.Name()))
	}

	n, err := books.InsertMany(ctx, c.Books)
	if err != nil {
		return 0, err
	}
	logger.Info("books inserted", zap.Int("count", n))
	return n, nil
}
