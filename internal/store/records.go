// Package store persists per-document financial records and job state.
package store

import "context"

// RecordStore abstracts the per-document record storage so the merger does
// not depend on the directory layout. The current backend is one JSON file
// per document plus plain-text error artifacts under errors/.
type RecordStore interface {
	// List returns the names of all stored records.
	List(ctx context.Context) ([]string, error)

	// Read returns the raw bytes of a named record.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write stores a record under name, resolving collisions by numeric
	// suffix, and returns the path actually written.
	Write(ctx context.Context, name string, data []byte) (string, error)

	// WriteError stores an error artifact under name and returns its path.
	// The error area is created lazily on first use.
	WriteError(ctx context.Context, name string, text string) (string, error)

	// Dir returns the root directory records live in.
	Dir() string
}
