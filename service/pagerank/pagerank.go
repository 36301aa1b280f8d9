package pagerank

import (
	"context"
	"io"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/crawler"
	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"github.com/Ahmed-Sermani/go-pagerank/ranker"
	"github.com/Ahmed-Sermani/go-pagerank/report"
	"github.com/Ahmed-Sermani/go-pagerank/scorestore"
	"github.com/Ahmed-Sermani/go-pagerank/stats"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const defaultTopK = 5

// Config encapsulates the settings for configuring the PageRank service.
type Config struct {
	// Store provides access to the page objects.
	Store objstore.Store

	// Prefix is the object prefix of the page objects.
	Prefix string

	// NumPages is the size of the page space. If nil, it's discovered by
	// listing the page objects on every run.
	NumPages *int

	// The number of concurrent page fetches and the timeout of each.
	FetchWorkers int
	FetchTimeout time.Duration

	// Ranker holds the PageRank settings; see ranker.DefaultConfig.
	Ranker ranker.Config

	// The number of top ranked pages included in the report. If not
	// specified, a default value of 5 will be used instead.
	TopK int

	// ScoreStore persists the scores of every run. Optional.
	ScoreStore scorestore.Store

	// Output receives the report of every run. Optional.
	Output io.Writer

	// The time between subsequent runs. A zero value runs once and exits.
	UpdateInterval time.Duration

	// The clock used for scheduling runs and measuring durations.
	// Defaults to the wall clock.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Store == nil {
		err = multierror.Append(err, xerrors.Errorf("object store has not been provided"))
	}
	if cfg.NumPages != nil && *cfg.NumPages < 0 {
		err = multierror.Append(err, xerrors.Errorf("number of pages must not be negative"))
	}
	if cfg.TopK < 0 {
		err = multierror.Append(err, xerrors.Errorf("top-k must not be negative"))
	} else if cfg.TopK == 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.UpdateInterval < 0 {
		err = multierror.Append(err, xerrors.Errorf("update interval must not be negative"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// Service implements the PageRank batch job: build the link graph out of
// the page objects, rank it and report the results.
type Service struct {
	cfg     Config
	crawler *crawler.Crawler
	ranker  *ranker.Ranker
}

// NewService creates a new PageRank service instance with the specified
// config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("pagerank service: config validation failed: %w", err)
	}

	c, err := crawler.New(crawler.Config{
		Store:        cfg.Store,
		Prefix:       cfg.Prefix,
		FetchWorkers: cfg.FetchWorkers,
		FetchTimeout: cfg.FetchTimeout,
		Clock:        cfg.Clock,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, xerrors.Errorf("pagerank service: %w", err)
	}

	rankerCfg := cfg.Ranker
	rankerCfg.Clock = cfg.Clock
	if rankerCfg.Logger == nil {
		rankerCfg.Logger = cfg.Logger
	}
	r, err := ranker.New(rankerCfg)
	if err != nil {
		return nil, xerrors.Errorf("pagerank service: %w", err)
	}

	return &Service{cfg: cfg, crawler: c, ranker: r}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "pagerank" }

// Run implements service.Service. With a zero update interval it performs a
// single run; otherwise it keeps re-running until ctx expires.
func (svc *Service) Run(ctx context.Context) error {
	if svc.cfg.UpdateInterval == 0 {
		_, err := svc.RunOnce(ctx)
		return err
	}

	svc.cfg.Logger.WithField("update_interval", svc.cfg.UpdateInterval.String()).Info("starting service")
	defer svc.cfg.Logger.Info("stopped service")

	for {
		if _, err := svc.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-svc.cfg.Clock.After(svc.cfg.UpdateInterval):
		}
	}
}

// RunOnce builds the link graph, ranks it and returns the report of the
// run. The report is also written to the configured output and the scores
// are persisted to the configured score store.
func (svc *Service) RunOnce(ctx context.Context) (*report.Report, error) {
	var (
		start  = svc.cfg.Clock.Now()
		logger = svc.cfg.Logger.WithField("run_id", uuid.New().String())
	)
	logger.Info("starting PageRank run")

	n, err := svc.crawler.ResolvePageSpace(ctx, svc.cfg.NumPages)
	if err != nil {
		return nil, err
	}
	g, buildStats, err := svc.crawler.Build(ctx, n)
	if err != nil {
		return nil, err
	}
	res, err := svc.ranker.Rank(ctx, g)
	if err != nil {
		return nil, err
	}

	if svc.cfg.ScoreStore != nil {
		if err = svc.cfg.ScoreStore.UpdateScores(ctx, res.Scores); err != nil {
			return nil, xerrors.Errorf("persist scores: %w", err)
		}
	}

	var rankSum float64
	for _, score := range res.Scores {
		rankSum += score
	}
	rep := &report.Report{
		Pages:         n,
		ReadDuration:  buildStats.ReadDuration,
		RankDuration:  res.Elapsed,
		TotalDuration: svc.cfg.Clock.Now().Sub(start),
		Iterations:    res.Iterations,
		Converged:     res.Converged,
		RankSum:       rankSum,
		FailedFetches: buildStats.FailedFetches,
		InDegree:      stats.Summarize(g.InDegrees()),
		OutDegree:     stats.Summarize(g.OutDegrees()),
		Top:           report.TopK(res.Scores, svc.cfg.TopK),
	}

	if !res.Converged {
		logger.WithField("iterations", res.Iterations).Warn("PageRank did not converge; reporting last iteration")
	}
	logger.WithFields(logrus.Fields{
		"pages":          rep.Pages,
		"iterations":     rep.Iterations,
		"rank_sum":       rep.RankSum,
		"total_duration": rep.TotalDuration.String(),
	}).Info("completed PageRank run")

	if svc.cfg.Output != nil {
		if _, err = rep.WriteTo(svc.cfg.Output); err != nil {
			return nil, xerrors.Errorf("write report: %w", err)
		}
	}
	return rep, nil
}
