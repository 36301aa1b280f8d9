package ranker

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/graph"
	"github.com/juju/clock/testclock"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RankerTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type RankerTestSuite struct{}

func fixtureGraph(c *gc.C) *graph.Graph {
	g, err := graph.New(4, map[int][]int{
		0: {1, 2},
		1: {2},
		2: {0},
		3: {2},
	})
	c.Assert(err, gc.IsNil)
	return g
}

func strictConfig() Config {
	cfg := DefaultConfig()
	cfg.Tolerance = 1e-10
	cfg.MaxIterations = 1000
	return cfg
}

func (s *RankerTestSuite) rank(c *gc.C, cfg Config, g *graph.Graph) Result {
	r, err := New(cfg)
	c.Assert(err, gc.IsNil)
	res, err := r.Rank(context.TODO(), g)
	c.Assert(err, gc.IsNil)
	return res
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func (s *RankerTestSuite) TestFixture(c *gc.C) {
	res := s.rank(c, strictConfig(), fixtureGraph(c))

	c.Assert(res.Converged, gc.Equals, true)
	c.Assert(res.Iterations >= 1, gc.Equals, true)
	c.Assert(res.Scores, gc.HasLen, 4)
	c.Assert(math.Abs(sum(res.Scores)-1.0) < 1e-6, gc.Equals, true)

	order := []int{0, 1, 2, 3}
	sort.SliceStable(order, func(i, j int) bool { return res.Scores[order[i]] > res.Scores[order[j]] })
	c.Assert(order[0], gc.Equals, 2)
	c.Assert(order[3], gc.Equals, 3)

	// Page 3 has no incoming links so it only gets the teleport share.
	c.Assert(math.Abs(res.Scores[3]-0.15/4) < 1e-12, gc.Equals, true)
	for _, score := range res.Scores {
		c.Assert(score > 0, gc.Equals, true)
	}
}

func (s *RankerTestSuite) TestEmptyGraph(c *gc.C) {
	g, err := graph.New(0, nil)
	c.Assert(err, gc.IsNil)

	res := s.rank(c, DefaultConfig(), g)
	c.Assert(res.Scores, gc.HasLen, 0)
	c.Assert(res.Iterations, gc.Equals, 0)
	c.Assert(res.Elapsed, gc.Equals, time.Duration(0))
	c.Assert(res.Converged, gc.Equals, true)
}

func (s *RankerTestSuite) TestDanglingMassIsRedistributed(c *gc.C) {
	// Page 1 is dangling; its rank is shared by both pages.
	g, err := graph.New(2, map[int][]int{0: {1}})
	c.Assert(err, gc.IsNil)

	cfg := strictConfig()
	cfg.Tolerance = 1e-12
	res := s.rank(c, cfg, g)
	c.Assert(res.Converged, gc.Equals, true)
	c.Assert(math.Abs(sum(res.Scores)-1.0) < 1e-9, gc.Equals, true)

	// Closed form of the stationary distribution: r1 = 0.13875 / 0.21375
	// and r0 = 1 - r1.
	expR1 := 0.13875 / 0.21375
	c.Assert(math.Abs(res.Scores[1]-expR1) < 1e-6, gc.Equals, true)
	c.Assert(math.Abs(res.Scores[0]-(1-expR1)) < 1e-6, gc.Equals, true)
}

func (s *RankerTestSuite) TestAllPagesDangling(c *gc.C) {
	g, err := graph.New(5, nil)
	c.Assert(err, gc.IsNil)

	res := s.rank(c, DefaultConfig(), g)
	c.Assert(res.Converged, gc.Equals, true)
	c.Assert(res.Iterations, gc.Equals, 1)
	for _, score := range res.Scores {
		c.Assert(math.Abs(score-0.2) < 1e-12, gc.Equals, true)
	}
}

func (s *RankerTestSuite) TestLegacyMode(c *gc.C) {
	g, err := graph.New(2, map[int][]int{0: {1}})
	c.Assert(err, gc.IsNil)

	cfg := DefaultConfig()
	cfg.Mode = ModeLegacy
	res := s.rank(c, cfg, g)

	// Without redistribution the mass leaks through page 1 and the run
	// stops once the total mass settles.
	c.Assert(res.Converged, gc.Equals, true)
	c.Assert(res.Iterations, gc.Equals, 3)
	c.Assert(math.Abs(res.Scores[0]-0.075) < 1e-12, gc.Equals, true)
	c.Assert(math.Abs(res.Scores[1]-0.13875) < 1e-12, gc.Equals, true)
	c.Assert(sum(res.Scores) < 1.0, gc.Equals, true)
}

func (s *RankerTestSuite) TestLegacyModeStopsOnMassChange(c *gc.C) {
	cfg := strictConfig()
	cfg.Mode = ModeLegacy
	res := s.rank(c, cfg, fixtureGraph(c))

	// The fixture has no dangling pages so the total mass never changes.
	c.Assert(res.Converged, gc.Equals, true)
	c.Assert(res.Iterations, gc.Equals, 1)
}

func (s *RankerTestSuite) TestIdempotence(c *gc.C) {
	g := fixtureGraph(c)
	first := s.rank(c, strictConfig(), g)
	second := s.rank(c, strictConfig(), g)
	c.Assert(second.Scores, gc.DeepEquals, first.Scores)
	c.Assert(second.Iterations, gc.Equals, first.Iterations)
}

func (s *RankerTestSuite) TestMonotonicDelta(c *gc.C) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := strictConfig()
	cfg.Logger = logrus.NewEntry(logger)
	res := s.rank(c, cfg, fixtureGraph(c))
	c.Assert(res.Converged, gc.Equals, true)

	entries := hook.AllEntries()
	c.Assert(entries, gc.HasLen, res.Iterations)
	prev := math.Inf(1)
	for i, entry := range entries {
		delta := entry.Data["delta"].(float64)
		c.Assert(delta <= prev, gc.Equals, true, gc.Commentf("iteration %d: delta %v > %v", i+1, delta, prev))
		prev = delta
	}
	c.Assert(prev <= cfg.Tolerance, gc.Equals, true)
}

func (s *RankerTestSuite) TestIterationCap(c *gc.C) {
	cfg := DefaultConfig()
	cfg.Tolerance = 0
	cfg.MaxIterations = 3
	res := s.rank(c, cfg, fixtureGraph(c))

	c.Assert(res.Converged, gc.Equals, false)
	c.Assert(res.Iterations, gc.Equals, 3)
	c.Assert(math.Abs(sum(res.Scores)-1.0) < 1e-9, gc.Equals, true)
}

func (s *RankerTestSuite) TestComputeWorkers(c *gc.C) {
	outLinks := make(map[int][]int)
	for id := 0; id < 97; id++ {
		if id%11 == 0 {
			// Leave a few dangling pages around.
			continue
		}
		outLinks[id] = []int{(id * 7) % 97, (id + 1) % 97, (id * id) % 97}
	}
	g, err := graph.New(97, outLinks)
	c.Assert(err, gc.IsNil)

	cfg := strictConfig()
	sequential := s.rank(c, cfg, g)
	for _, workers := range []int{2, 5, 200} {
		cfg.ComputeWorkers = workers
		parallel := s.rank(c, cfg, g)
		c.Assert(parallel.Scores, gc.HasLen, 97)
		for id := range parallel.Scores {
			c.Assert(math.Abs(parallel.Scores[id]-sequential.Scores[id]) < 1e-9, gc.Equals, true)
		}
		c.Assert(math.Abs(sum(parallel.Scores)-1.0) < 1e-9, gc.Equals, true)
	}
}

func (s *RankerTestSuite) TestElapsedUsesClock(c *gc.C) {
	cfg := DefaultConfig()
	cfg.Clock = testclock.NewClock(time.Unix(0, 0))
	res := s.rank(c, cfg, fixtureGraph(c))
	c.Assert(res.Elapsed, gc.Equals, time.Duration(0))
}

func (s *RankerTestSuite) TestCancellation(c *gc.C) {
	r, err := New(DefaultConfig())
	c.Assert(err, gc.IsNil)

	ctx, cancel := context.WithCancel(context.TODO())
	cancel()
	_, err = r.Rank(ctx, fixtureGraph(c))
	c.Assert(xerrors.Is(err, context.Canceled), gc.Equals, true)
}

func (s *RankerTestSuite) TestParallelStepStopsOnCancellation(c *gc.C) {
	cfg := DefaultConfig()
	cfg.ComputeWorkers = 4
	r, err := New(cfg)
	c.Assert(err, gc.IsNil)

	g := fixtureGraph(c)
	current := []float64{0.25, 0.25, 0.25, 0.25}
	next := make([]float64, 4)

	ctx, cancel := context.WithCancel(context.TODO())
	cancel()
	_, _, err = r.step(ctx, g, g.OutDegrees(), current, next, 0.0375)
	c.Assert(xerrors.Is(err, context.Canceled), gc.Equals, true)

	// The sequential path has no per-range checks.
	r.cfg.ComputeWorkers = 1
	_, mass, err := r.step(ctx, g, g.OutDegrees(), current, next, 0.0375)
	c.Assert(err, gc.IsNil)
	c.Assert(mass > 0, gc.Equals, true)
}

func (s *RankerTestSuite) TestConfigValidation(c *gc.C) {
	specs := []struct {
		descr  string
		mutate func(*Config)
		expErr string
	}{
		{descr: "damping factor of 1", mutate: func(cfg *Config) { cfg.DampingFactor = 1 }, expErr: ".*damping factor must be in the \\[0, 1\\) range.*"},
		{descr: "negative damping factor", mutate: func(cfg *Config) { cfg.DampingFactor = -0.1 }, expErr: ".*damping factor must be in the \\[0, 1\\) range.*"},
		{descr: "NaN damping factor", mutate: func(cfg *Config) { cfg.DampingFactor = math.NaN() }, expErr: ".*damping factor must be in the \\[0, 1\\) range.*"},
		{descr: "negative tolerance", mutate: func(cfg *Config) { cfg.Tolerance = -1 }, expErr: ".*tolerance must be a finite non-negative value.*"},
		{descr: "zero iterations", mutate: func(cfg *Config) { cfg.MaxIterations = 0 }, expErr: ".*max iterations must be greater than 0.*"},
		{descr: "unknown mode", mutate: func(cfg *Config) { cfg.Mode = Mode(42) }, expErr: ".*unknown ranking mode 42.*"},
	}

	for i, spec := range specs {
		c.Logf("[spec %d] %s", i, spec.descr)
		cfg := DefaultConfig()
		spec.mutate(&cfg)
		_, err := New(cfg)
		c.Assert(err, gc.ErrorMatches, "(?s)PageRank ranker config validation failed: "+spec.expErr)
	}
}

func (s *RankerTestSuite) TestZeroDampingIsValid(c *gc.C) {
	cfg := DefaultConfig()
	cfg.DampingFactor = 0
	res := s.rank(c, cfg, fixtureGraph(c))
	c.Assert(res.Converged, gc.Equals, true)
	for _, score := range res.Scores {
		c.Assert(math.Abs(score-0.25) < 1e-12, gc.Equals, true)
	}
}

func (s *RankerTestSuite) TestParseMode(c *gc.C) {
	mode, err := ParseMode("legacy")
	c.Assert(err, gc.IsNil)
	c.Assert(mode, gc.Equals, ModeLegacy)

	mode, err = ParseMode("")
	c.Assert(err, gc.IsNil)
	c.Assert(mode, gc.Equals, ModeDanglingAware)
	c.Assert(mode.String(), gc.Equals, "dangling-aware")

	_, err = ParseMode("personalized")
	c.Assert(err, gc.ErrorMatches, `unknown ranking mode "personalized"`)
}
