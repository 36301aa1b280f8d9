package gcs

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"golang.org/x/xerrors"
	"google.golang.org/api/iterator"
)

var _ objstore.Store = (*GCSStore)(nil)

// GCSStore is an objstore.Store backed by a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCSStore connects to GCS using the application default credentials and
// returns a store for the named bucket. Callers must invoke Close once they
// are done with the store.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, xerrors.Errorf("gcs store: bucket name must be specified")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, xerrors.Errorf("gcs store: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
	}, nil
}

// Close releases the underlying GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	query := &storage.Query{Prefix: prefix}
	// Only the object names are needed; skip fetching the remaining attributes.
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, xerrors.Errorf("list %q: %w", prefix, err)
	}

	var (
		names []string
		it    = s.bucket.Objects(ctx, query)
	)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, xerrors.Errorf("list %q: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (s *GCSStore) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if xerrors.Is(err, storage.ErrObjectNotExist) {
			err = objstore.ErrNotFound
		}
		return nil, xerrors.Errorf("get %q: %w", name, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("get %q: %w", name, err)
	}
	return data, nil
}

func (s *GCSStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return xerrors.Errorf("put %q: %w", name, err)
	}
	// The object is only committed once the writer is closed.
	if err := w.Close(); err != nil {
		return xerrors.Errorf("put %q: %w", name, err)
	}
	return nil
}
