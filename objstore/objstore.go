/*
   Access to the object store holding the page objects and the blocked-request log.
*/
package objstore

import (
	"context"

	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/Ahmed-Sermani/go-pagerank/objstore Store

var (
	// ErrNotFound is returned by Get when the requested object does not exist.
	ErrNotFound = xerrors.New("object not found")

	// ErrInvalidName is returned when an object name would resolve outside
	// of the store.
	ErrInvalidName = xerrors.New("invalid object name")
)

// Store is implemented by object stores that keep named blobs under a
// flat, prefix-addressable namespace.
type Store interface {
	// List returns the names of all objects whose name starts with prefix.
	// The order of the returned names is unspecified.
	List(ctx context.Context, prefix string) ([]string, error)

	// Get returns the contents of the named object. It fails with
	// ErrNotFound if the object does not exist; any other error is
	// considered transient.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put creates or replaces the named object.
	Put(ctx context.Context, name string, data []byte, contentType string) error
}

// Join builds an object name out of a prefix and a base name. Leading and
// trailing slashes of the prefix are ignored.
func Join(prefix, base string) string {
	prefix = TrimPrefix(prefix)
	if prefix == "" {
		return base
	}
	return prefix + "/" + base
}

// TrimPrefix strips the leading and trailing slashes from an object prefix.
func TrimPrefix(prefix string) string {
	for len(prefix) > 0 && prefix[0] == '/' {
		prefix = prefix[1:]
	}
	for len(prefix) > 0 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}
