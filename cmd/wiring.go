package cmd

import (
	"context"
	"io"
	"net/url"

	"github.com/Ahmed-Sermani/go-pagerank/events"
	evmemory "github.com/Ahmed-Sermani/go-pagerank/events/memory"
	evpubsub "github.com/Ahmed-Sermani/go-pagerank/events/pubsub"
	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"github.com/Ahmed-Sermani/go-pagerank/objstore/fs"
	"github.com/Ahmed-Sermani/go-pagerank/objstore/gcs"
	objmemory "github.com/Ahmed-Sermani/go-pagerank/objstore/memory"
	"github.com/Ahmed-Sermani/go-pagerank/scorestore"
	"github.com/Ahmed-Sermani/go-pagerank/scorestore/cdb"
	scorememory "github.com/Ahmed-Sermani/go-pagerank/scorestore/memory"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// objectStoreURI returns the object store URI, falling back to the GCS
// bucket named by bucket.
func objectStoreURI(uri, bucket string) (string, error) {
	switch {
	case uri != "":
		return uri, nil
	case bucket != "":
		return "gs://" + bucket, nil
	default:
		return "", xerrors.Errorf("object store URI must be specified with --object-store-uri or --bucket")
	}
}

func getObjectStore(ctx context.Context, objectStoreURI string, logger *logrus.Entry) (objstore.Store, error) {
	uri, err := url.Parse(objectStoreURI)
	if err != nil {
		return nil, xerrors.Errorf("could not parse object store URI: %w", err)
	}

	switch uri.Scheme {
	case "in-memory":
		logger.Info("using in-memory object store")
		return objmemory.NewInMemoryStore(), nil
	case "file":
		logger.WithField("dir", uri.Path).Info("using directory object store")
		return fs.NewDirStore(uri.Path)
	case "gs":
		logger.WithField("bucket", uri.Host).Info("using GCS object store")
		return gcs.NewGCSStore(ctx, uri.Host)
	default:
		return nil, xerrors.Errorf("unsupported object store URI scheme: %q", uri.Scheme)
	}
}

// getScoreStore returns nil if scoreStoreURI is empty.
func getScoreStore(scoreStoreURI string, logger *logrus.Entry) (scorestore.Store, error) {
	if scoreStoreURI == "" {
		return nil, nil
	}

	uri, err := url.Parse(scoreStoreURI)
	if err != nil {
		return nil, xerrors.Errorf("could not parse score store URI: %w", err)
	}

	switch uri.Scheme {
	case "in-memory":
		logger.Info("using in-memory score store")
		return scorememory.NewInMemoryStore(), nil
	case "postgresql":
		logger.Info("using CDB score store")
		return cdb.NewCockroachDBStore(scoreStoreURI)
	default:
		return nil, xerrors.Errorf("unsupported score store URI scheme: %q", uri.Scheme)
	}
}

type eventBus interface {
	events.Publisher
	events.Subscriber
}

// eventBusURI returns the event bus URI, falling back to the Cloud Pub/Sub
// topic and subscription of project if any of them is set.
func eventBusURI(uri, project, topic, subscription string) string {
	switch {
	case uri != "":
		return uri
	case topic == "" && subscription == "":
		return "in-memory://"
	}

	q := url.Values{}
	if topic != "" {
		q.Set("topic", topic)
	}
	if subscription != "" {
		q.Set("subscription", subscription)
	}
	return (&url.URL{Scheme: "pubsub", Host: project, RawQuery: q.Encode()}).String()
}

// checkEventConsumer ensures that blocked request events published to an
// in-memory bus have a consumer in this process.
func checkEventConsumer(eventBusURI string, appendLog bool) error {
	uri, err := url.Parse(eventBusURI)
	if err != nil {
		return xerrors.Errorf("could not parse event bus URI: %w", err)
	}
	if uri.Scheme == "in-memory" && !appendLog {
		return xerrors.New("an in-memory event bus requires --append-log; use --topic or --event-bus-uri to publish to Cloud Pub/Sub")
	}
	return nil
}

func getEventBus(ctx context.Context, eventBusURI string, logger *logrus.Entry) (eventBus, error) {
	uri, err := url.Parse(eventBusURI)
	if err != nil {
		return nil, xerrors.Errorf("could not parse event bus URI: %w", err)
	}

	switch uri.Scheme {
	case "in-memory":
		logger.Info("using in-memory event bus")
		return evmemory.NewInMemoryBus(0), nil
	case "pubsub":
		logger.WithField("project", uri.Host).Info("using Cloud Pub/Sub event bus")
		return evpubsub.NewPubSubBus(ctx, evpubsub.Config{
			ProjectID:      uri.Host,
			TopicID:        uri.Query().Get("topic"),
			SubscriptionID: uri.Query().Get("subscription"),
		})
	default:
		return nil, xerrors.Errorf("unsupported event bus URI scheme: %q", uri.Scheme)
	}
}

// closeAll closes the resources implementing io.Closer.
func closeAll(logger *logrus.Entry, resources ...interface{}) {
	for _, r := range resources {
		closer, ok := r.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logger.WithError(err).Warn("could not release resource")
		}
	}
}
