package ranker

import (
	"io"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Mode selects how the ranker treats dangling pages and how it decides that
// the rank vector converged.
type Mode int

const (
	// ModeDanglingAware redistributes the rank of dangling pages evenly
	// across all pages and stops once the relative L1 change of the rank
	// vector drops to the tolerance. Ranks sum up to 1.
	ModeDanglingAware Mode = iota

	// ModeLegacy drops the rank of dangling pages and stops once the
	// relative change of the total rank mass drops to the tolerance. It's
	// kept for parity with historical output; ranks may sum up to less
	// than 1 when the graph has dangling pages.
	ModeLegacy
)

func (m Mode) String() string {
	switch m {
	case ModeDanglingAware:
		return "dangling-aware"
	case ModeLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseMode returns the Mode with the given name.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "dangling-aware":
		return ModeDanglingAware, nil
	case "legacy":
		return ModeLegacy, nil
	default:
		return 0, xerrors.Errorf("unknown ranking mode %q", name)
	}
}

// Config encapsulates the settings for the PageRank ranker.
type Config struct {
	// The probability of following an outgoing link instead of jumping
	// to a random page. Must be in the [0, 1) range.
	DampingFactor float64

	// The ranker stops once the relative change between two consecutive
	// iterations is at most this value.
	Tolerance float64

	// The upper bound on iterations. Once reached, the last computed rank
	// vector is returned as unconverged.
	MaxIterations int

	// The number of goroutines computing a single iteration. Values less
	// than 1 are treated as 1.
	ComputeWorkers int

	Mode Mode

	// The clock used for measuring the solve duration. Defaults to the
	// wall clock.
	Clock clock.Clock

	// Logger for per-iteration progress at debug level. If not specified,
	// logs are discarded.
	Logger *logrus.Entry
}

// DefaultConfig returns a Config with the standard damping factor of 0.85,
// a tolerance of 0.005 and at most 200 iterations.
func DefaultConfig() Config {
	return Config{
		DampingFactor:  0.85,
		Tolerance:      0.005,
		MaxIterations:  200,
		ComputeWorkers: 1,
		Mode:           ModeDanglingAware,
	}
}

func (cfg *Config) validate() error {
	var err error
	// NaN fails both comparisons.
	if !(cfg.DampingFactor >= 0 && cfg.DampingFactor < 1) {
		err = multierror.Append(err, xerrors.Errorf("damping factor must be in the [0, 1) range; got %v", cfg.DampingFactor))
	}
	if !(cfg.Tolerance >= 0) || math.IsInf(cfg.Tolerance, 1) {
		err = multierror.Append(err, xerrors.Errorf("tolerance must be a finite non-negative value; got %v", cfg.Tolerance))
	}
	if cfg.MaxIterations <= 0 {
		err = multierror.Append(err, xerrors.Errorf("max iterations must be greater than 0; got %d", cfg.MaxIterations))
	}
	if cfg.Mode != ModeDanglingAware && cfg.Mode != ModeLegacy {
		err = multierror.Append(err, xerrors.Errorf("unknown ranking mode %d", int(cfg.Mode)))
	}
	if cfg.ComputeWorkers < 1 {
		cfg.ComputeWorkers = 1
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
