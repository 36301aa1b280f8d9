/*
   Builds the page link graph out of the page objects kept in an object store.
*/

package crawler

import (
	"context"
	"io"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/graph"
	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"github.com/Ahmed-Sermani/go-pagerank/pipeline"
	"github.com/Ahmed-Sermani/go-pagerank/pipeline/runners"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	defaultFetchWorkers = 32
	defaultFetchTimeout = 30 * time.Second
)

var (
	// ErrIncompleteGraph is returned by Build when the pipeline finished
	// without producing an adjacency list for every page.
	ErrIncompleteGraph = xerrors.New("graph build did not observe every page")
)

// Config encapsulates the settings for building a link graph.
type Config struct {
	// Store provides access to the page objects.
	Store objstore.Store

	// Prefix is the object prefix under which pages are stored as
	// <prefix>/<id>.html.
	Prefix string

	// The number of pages fetched concurrently. If not specified, a
	// default value of 32 will be used instead.
	FetchWorkers int

	// The maximum time a single page fetch may take before it's treated
	// as failed. If not specified, a default value of 30s will be used.
	FetchTimeout time.Duration

	// The clock used for measuring build durations. Defaults to the
	// wall clock.
	Clock clock.Clock

	// Logger for per-page failures. If not specified, logs are discarded.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Store == nil {
		err = multierror.Append(err, xerrors.Errorf("object store has not been provided"))
	}
	if cfg.FetchWorkers < 0 {
		err = multierror.Append(err, xerrors.Errorf("number of fetch workers must not be negative"))
	} else if cfg.FetchWorkers == 0 {
		cfg.FetchWorkers = defaultFetchWorkers
	}
	if cfg.FetchTimeout < 0 {
		err = multierror.Append(err, xerrors.Errorf("fetch timeout must not be negative"))
	} else if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	cfg.Prefix = objstore.TrimPrefix(cfg.Prefix)
	return err
}

// BuildStats summarizes a graph build.
type BuildStats struct {
	Pages         int
	FailedFetches int
	Edges         int
	ReadDuration  time.Duration
}

// Crawler fetches page objects concurrently and turns them into a link graph.
// The build is a pipeline consisting of the following stages:
//
// - Given a page id, retrieve the page object from the store.
// - Extract the ids of the outgoing links from the page markup.
// - Collect the links of every page, keyed by page id.
type Crawler struct {
	cfg       Config
	pipeline  *pipeline.Pipeline
	fetcher   *pageFetcher
	extractor *linkExtractor
}

// New returns a Crawler instance using the provided config options.
func New(cfg Config) (*Crawler, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("crawler config validation failed: %w", err)
	}

	c := &Crawler{
		cfg:       cfg,
		fetcher:   newPageFetcher(cfg.Store, cfg.FetchTimeout, cfg.Logger),
		extractor: newLinkExtractor(),
	}
	c.pipeline = pipeline.New(
		runners.FixedWorkerPool(c.fetcher, cfg.FetchWorkers),
		runners.FIFO(c.extractor),
	)
	return c, nil
}

// Build fetches the pages [0, n) and returns the resulting link graph. Pages
// that cannot be fetched are treated as having no outgoing links.
//
// Calls to Build block until every page went through the pipeline. If ctx
// expires before that, Build returns an error and discards whatever was
// already fetched.
func (c *Crawler) Build(ctx context.Context, n int) (*graph.Graph, BuildStats, error) {
	if n < 0 {
		return nil, BuildStats{}, xerrors.Errorf("build graph: %w", graph.ErrNegativePageCount)
	}

	start := c.cfg.Clock.Now()
	source := &pageSource{prefix: c.cfg.Prefix, numPages: n}
	sink := newGraphSink(n)
	if err := c.pipeline.Process(ctx, source, sink); err != nil {
		return nil, BuildStats{}, xerrors.Errorf("build graph: %w", err)
	}
	if sink.pages != n {
		return nil, BuildStats{}, xerrors.Errorf("build graph: got %d of %d pages: %w", sink.pages, n, ErrIncompleteGraph)
	}

	// Every adjacency list is in place; derive the graph.
	g, err := graph.New(n, sink.outLinks)
	if err != nil {
		return nil, BuildStats{}, xerrors.Errorf("build graph: %w", err)
	}

	stats := BuildStats{
		Pages:         n,
		FailedFetches: sink.failed,
		Edges:         g.NumEdges(),
		ReadDuration:  c.cfg.Clock.Now().Sub(start),
	}
	c.cfg.Logger.WithFields(logrus.Fields{
		"pages":          stats.Pages,
		"edges":          stats.Edges,
		"failed_fetches": stats.FailedFetches,
		"read_duration":  stats.ReadDuration,
	}).Info("link graph built")
	return g, stats, nil
}

// PageResult is the outcome of fetching and parsing a single page. If the
// fetch failed, Err records the cause and Links is empty.
type PageResult struct {
	ID    int
	Links []int
	Err   error
}

// FetchAndParse fetches page id and extracts its outgoing links within
// [0, n). It never fails; fetch errors are reported through PageResult.Err.
func (c *Crawler) FetchAndParse(ctx context.Context, id, n int) PageResult {
	payload := newPagePayload(c.cfg.Prefix, id, n)
	defer payload.MarkAsProcessed()

	// Neither stage returns errors.
	_, _ = c.fetcher.Process(ctx, payload)
	_, _ = c.extractor.Process(ctx, payload)

	return PageResult{
		ID:    id,
		Links: append([]int{}, payload.Links...),
		Err:   payload.FetchErr,
	}
}
