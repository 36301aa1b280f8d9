package cmd

import (
	"context"
	"runtime"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/ranker"
	"github.com/Ahmed-Sermani/go-pagerank/service"
	"github.com/Ahmed-Sermani/go-pagerank/service/pagerank"
	"github.com/spf13/cobra"
)

func (c *cli) newRankCmd() *cobra.Command {
	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Build the link graph out of the page objects and rank it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runRank(cmd)
		},
	}

	defaults := ranker.DefaultConfig()
	flags := rankCmd.Flags()
	flags.String("object-store-uri", "", "The URI of the object store holding the pages (supported URIs: in-memory://, file:///path/to/dir, gs://bucket)")
	flags.String("bucket", "", "The GCS bucket holding the pages; used when --object-store-uri is not set")
	flags.String("prefix", "html-pages", "The object prefix of the pages")
	flags.Int("pages", -1, "The number of pages; discovered from the page objects if negative")
	flags.Int("workers", 32, "The number of pages fetched concurrently")
	flags.Duration("fetch-timeout", 30*time.Second, "The timeout for fetching a single page")
	flags.Float64("damping", defaults.DampingFactor, "The PageRank damping factor")
	flags.Float64("tolerance", defaults.Tolerance, "The relative change of the scores at which PageRank stops iterating")
	flags.Int("max-iter", defaults.MaxIterations, "The maximum number of PageRank iterations")
	flags.Int("compute-workers", runtime.NumCPU(), "The number of workers computing each PageRank iteration")
	flags.String("mode", defaults.Mode.String(), "The ranking mode (dangling-aware or legacy)")
	flags.Int("topk", 5, "The number of top ranked pages to report")
	flags.String("score-store-uri", "", "The URI for persisting the scores (supported URIs: in-memory://, postgresql://user@host:26257/pagerank?sslmode=disable); disabled if empty")
	flags.Duration("update-interval", 0, "The time between subsequent runs; run once if zero")
	return rankCmd
}

func (c *cli) runRank(cmd *cobra.Command) error {
	logger, err := c.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	storeURI, err := objectStoreURI(c.v.GetString("object-store-uri"), c.v.GetString("bucket"))
	if err != nil {
		return err
	}
	store, err := getObjectStore(ctx, storeURI, logger)
	if err != nil {
		return err
	}
	defer closeAll(logger, store)

	scoreStore, err := getScoreStore(c.v.GetString("score-store-uri"), logger)
	if err != nil {
		return err
	}
	defer closeAll(logger, scoreStore)

	mode, err := ranker.ParseMode(c.v.GetString("mode"))
	if err != nil {
		return err
	}

	var numPages *int
	if n := c.v.GetInt("pages"); n >= 0 {
		numPages = &n
	}

	svc, err := pagerank.NewService(pagerank.Config{
		Store:        store,
		Prefix:       c.v.GetString("prefix"),
		NumPages:     numPages,
		FetchWorkers: c.v.GetInt("workers"),
		FetchTimeout: c.v.GetDuration("fetch-timeout"),
		Ranker: ranker.Config{
			DampingFactor:  c.v.GetFloat64("damping"),
			Tolerance:      c.v.GetFloat64("tolerance"),
			MaxIterations:  c.v.GetInt("max-iter"),
			ComputeWorkers: c.v.GetInt("compute-workers"),
			Mode:           mode,
		},
		TopK:           c.v.GetInt("topk"),
		ScoreStore:     scoreStore,
		Output:         cmd.OutOrStdout(),
		UpdateInterval: c.v.GetDuration("update-interval"),
		Logger:         logger.WithField("service", "pagerank"),
	})
	if err != nil {
		return err
	}

	return service.Group{svc}.Run(ctx)
}
