/*
   Implements the iterative version of the PageRank algorithm
   https://en.wikipedia.org/wiki/PageRank
*/
package ranker

import (
	"context"
	"math"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/graph"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

/*
   PageRank works by counting the number and quality of links to
   a page to determine a rough estimate of how important the page is.

   Under the model of the random surfer, a surfer lands on a random page
   and from that point on either follows one of the outgoing links of the
   current page, with a probability equal to the damping factor, or
   teleports to a random page of the graph. PageRank scores reflect the
   probability that the surfer lands on a particular page, so each score
   is in the [0, 1] range and all scores sum up to 1.

   A page without outgoing links (a dangling page) would leak its score out
   of the graph. The ranker treats it as if it was linking to every page:
   the score of all dangling pages is pooled at the start of each iteration
   and shared evenly across the graph.
*/

// Result holds the outcome of a ranking run.
type Result struct {
	// Scores holds the rank of every page indexed by page id.
	Scores []float64

	// The number of iterations performed.
	Iterations int

	// Elapsed is the time spent iterating.
	Elapsed time.Duration

	// Converged is false if the ranker hit the iteration cap before
	// reaching the tolerance.
	Converged bool
}

// Ranker computes PageRank scores over a link graph.
type Ranker struct {
	cfg Config
}

// New returns a new Ranker instance using the provided config options.
func New(cfg Config) (*Ranker, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("PageRank ranker config validation failed: %w", err)
	}
	return &Ranker{cfg: cfg}, nil
}

// Rank iterates over g until the scores converge or the iteration cap is
// reached. Every iteration computes the new scores of all pages from the
// scores of the previous one.
//
// Hitting the iteration cap is not an error; Rank only fails if ctx expires
// between iterations.
func (r *Ranker) Rank(ctx context.Context, g *graph.Graph) (Result, error) {
	n := g.NumPages()
	if n == 0 {
		return Result{Scores: []float64{}, Converged: true}, nil
	}

	var (
		d       = r.cfg.DampingFactor
		nf      = float64(n)
		base    = (1.0 - d) / nf
		outDeg  = g.OutDegrees()
		current = make([]float64, n)
		next    = make([]float64, n)
		start   = r.cfg.Clock.Now()
	)
	for i := range current {
		current[i] = 1.0 / nf
	}

	for iter := 1; iter <= r.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, xerrors.Errorf("rank after %d iterations: %w", iter-1, err)
		}

		var prevMass, danglingMass float64
		for id, score := range current {
			prevMass += score
			if outDeg[id] == 0 {
				danglingMass += score
			}
		}

		teleport := base
		if r.cfg.Mode == ModeDanglingAware {
			teleport += d * danglingMass / nf
		}
		delta, newMass, err := r.step(ctx, g, outDeg, current, next, teleport)
		if err != nil {
			return Result{}, xerrors.Errorf("rank after %d iterations: %w", iter-1, err)
		}

		denom := prevMass
		if denom == 0 {
			denom = 1.0
		}
		change := delta / denom
		if r.cfg.Mode == ModeLegacy {
			change = math.Abs(newMass-prevMass) / denom
		}

		current, next = next, current
		r.cfg.Logger.WithFields(logrus.Fields{
			"iteration": iter,
			"delta":     change,
			"mass":      newMass,
		}).Debug("PageRank iteration completed")

		if change <= r.cfg.Tolerance {
			return Result{
				Scores:     current,
				Iterations: iter,
				Elapsed:    r.cfg.Clock.Now().Sub(start),
				Converged:  true,
			}, nil
		}
	}

	return Result{
		Scores:     current,
		Iterations: r.cfg.MaxIterations,
		Elapsed:    r.cfg.Clock.Now().Sub(start),
		Converged:  false,
	}, nil
}

// step computes next from current and returns the L1 distance between the
// two vectors together with the total mass of next. Pages are split into
// contiguous ranges, one per compute worker; every worker reads the same
// snapshot and writes a disjoint range of next. Workers that have not
// started yet when ctx expires skip their range and step fails.
func (r *Ranker) step(ctx context.Context, g *graph.Graph, outDeg []int, current, next []float64, teleport float64) (float64, float64, error) {
	workers := r.cfg.ComputeWorkers
	if workers > len(current) {
		workers = len(current)
	}
	if workers == 1 {
		delta, mass := r.stepRange(g, outDeg, current, next, teleport, 0, len(current))
		return delta, mass, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	var (
		deltas    = make([]float64, workers)
		masses    = make([]float64, workers)
		chunkSize = (len(current) + workers - 1) / workers
	)
	for w := 0; w < workers; w++ {
		from, to := w*chunkSize, (w+1)*chunkSize
		if to > len(current) {
			to = len(current)
		}
		if from >= to {
			continue
		}
		w, from, to := w, from, to
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			deltas[w], masses[w] = r.stepRange(g, outDeg, current, next, teleport, from, to)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, 0, err
	}

	// Partial sums are combined in range order so results only depend on
	// the number of workers.
	var delta, mass float64
	for w := 0; w < workers; w++ {
		delta += deltas[w]
		mass += masses[w]
	}
	return delta, mass, nil
}

func (r *Ranker) stepRange(g *graph.Graph, outDeg []int, current, next []float64, teleport float64, from, to int) (float64, float64) {
	var delta, mass float64
	for id := from; id < to; id++ {
		var incoming float64
		for _, src := range g.Incoming(id) {
			incoming += current[src] / float64(outDeg[src])
		}
		score := teleport + r.cfg.DampingFactor*incoming
		next[id] = score
		delta += math.Abs(score - current[id])
		mass += score
	}
	return delta, mass
}
