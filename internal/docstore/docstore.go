// Package docstore provides the schemaless collection/id document store
// that holds the application data: user profiles in the "users" collection
// and one marker collection per role.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document exists at collection/id.
var ErrNotFound = errors.New("document not found")

type Store interface {
	// Get returns the document at collection/id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (map[string]any, error)

	// Upsert writes fields to collection/id. With merge set, fields are
	// overlaid on the existing document and unspecified fields survive;
	// without it the document is replaced. Creates the document either way
	// when absent.
	Upsert(ctx context.Context, collection, id string, fields map[string]any, merge bool) error

	// Delete removes the document at collection/id. Deleting an absent
	// document succeeds.
	Delete(ctx context.Context, collection, id string) error

	// ListIDs returns every document id in the collection.
	ListIDs(ctx context.Context, collection string) ([]string, error)
}
