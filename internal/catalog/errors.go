package catalog

import "errors"

// Catalog errors.
var (
	// ErrTemplateMissing is returned when a required template key is absent.
	ErrTemplateMissing = errors.New("template missing")

	// ErrInvalidCatalog is returned when a catalog document cannot be decoded.
	ErrInvalidCatalog = errors.New("invalid catalog document")
)
