// Package store persists research records.
//
// A research record is a saved analysis: the upstream graph, the detection
// algorithm it was analyzed with and the display filters. Explorer sessions
// open records from a [Store] by id.
//
// # Implementations
//
//   - [FileStore]: one JSON file per record, for the CLI
//   - [MemoryStore]: process-local, for tests and ephemeral servers
//   - [MongoStore]: the "research" collection of a MongoDB database
//
// # Usage
//
//	s, err := store.NewFileStore("")  // ~/.config/netlens/research/
//	if err != nil {
//	    return err
//	}
//	r := &network.Research{Name: "team chat"}
//	r.SetGraph(g)
//	if err := s.Put(ctx, r); err != nil {  // assigns r.ID
//	    return err
//	}
package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// Store persists research records.
type Store interface {
	// Get returns the record with id, or RESEARCH_NOT_FOUND.
	Get(ctx context.Context, id string) (*network.Research, error)

	// Put inserts or replaces r. A record without an id gets a new one and a
	// zero CreatedAt is set to now; both are written back to r.
	Put(ctx context.Context, r *network.Research) error

	// List returns all records, newest first.
	List(ctx context.Context) ([]*network.Research, error)

	// Delete removes the record with id. Deleting a missing record is not an
	// error.
	Delete(ctx context.Context, id string) error

	// Close releases resources held by the store.
	Close() error
}

// prepare assigns an id and a creation time where missing and validates the
// result.
func prepare(r *network.Research) error {
	if r == nil {
		return errors.New(errors.ErrCodeInvalidInput, "research record is required")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return errors.ValidateID(r.ID)
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeResearchNotFound, "research %s not found", id)
}

// sortNewest orders records by creation time, newest first, then by id.
func sortNewest(rs []*network.Research) {
	slices.SortFunc(rs, func(a, b *network.Research) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
