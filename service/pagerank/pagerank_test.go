package pagerank

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"github.com/Ahmed-Sermani/go-pagerank/objstore/memory"
	"github.com/Ahmed-Sermani/go-pagerank/objstore/mocks"
	"github.com/Ahmed-Sermani/go-pagerank/ranker"
	scoremem "github.com/Ahmed-Sermani/go-pagerank/scorestore/memory"
	"github.com/golang/mock/gomock"
	"github.com/juju/clock/testclock"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(PageRankServiceTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type PageRankServiceTestSuite struct {
	store *memory.InMemoryStore
	clk   *testclock.Clock
}

func (s *PageRankServiceTestSuite) SetUpTest(c *gc.C) {
	s.store = memory.NewInMemoryStore()
	s.clk = testclock.NewClock(time.Unix(0, 0))

	links := map[int][]int{0: {1, 2}, 1: {2}, 2: {0}, 3: {2}}
	for id := 0; id < 4; id++ {
		var body strings.Builder
		for _, dst := range links[id] {
			fmt.Fprintf(&body, `<a HREF="%d.html">%d</a>`, dst, dst)
		}
		name := objstore.Join("html-pages", fmt.Sprintf("%d.html", id))
		c.Assert(s.store.Put(context.TODO(), name, []byte(body.String()), "text/html"), gc.IsNil)
	}
}

func (s *PageRankServiceTestSuite) config() Config {
	rankerCfg := ranker.DefaultConfig()
	rankerCfg.Tolerance = 1e-10
	rankerCfg.MaxIterations = 1000
	return Config{
		Store:  s.store,
		Prefix: "html-pages/",
		Ranker: rankerCfg,
		TopK:   2,
		Clock:  s.clk,
	}
}

func (s *PageRankServiceTestSuite) TestRunOnce(c *gc.C) {
	var out bytes.Buffer
	scores := scoremem.NewInMemoryStore()
	cfg := s.config()
	cfg.Output = &out
	cfg.ScoreStore = scores

	svc, err := NewService(cfg)
	c.Assert(err, gc.IsNil)
	c.Assert(svc.Run(context.TODO()), gc.IsNil)

	c.Assert(out.String(), gc.Matches, `(?s)PAGES: 4\n.*PAGERANK_CONVERGED: true\n.*TOP_PAGES_BY_PAGERANK:\n2\.html\t0\.\d{10}\n0\.html\t0\.\d{10}\n`)

	top, err := scores.Score(context.TODO(), 2)
	c.Assert(err, gc.IsNil)
	c.Assert(top > 0.39 && top < 0.4, gc.Equals, true)
}

func (s *PageRankServiceTestSuite) TestReport(c *gc.C) {
	svc, err := NewService(s.config())
	c.Assert(err, gc.IsNil)

	rep, err := svc.RunOnce(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(rep.Pages, gc.Equals, 4)
	c.Assert(rep.FailedFetches, gc.Equals, 0)
	c.Assert(rep.Converged, gc.Equals, true)
	c.Assert(rep.RankSum > 1-1e-6 && rep.RankSum < 1+1e-6, gc.Equals, true)
	c.Assert(rep.TotalDuration, gc.Equals, time.Duration(0))
	c.Assert(rep.InDegree.Max, gc.Equals, 3)
	c.Assert(rep.OutDegree.Mean, gc.Equals, 1.25)
	c.Assert(rep.Top, gc.HasLen, 2)
	c.Assert(rep.Top[0].ID, gc.Equals, 2)
}

func (s *PageRankServiceTestSuite) TestExplicitPageCount(c *gc.C) {
	n := 6
	cfg := s.config()
	cfg.NumPages = &n
	svc, err := NewService(cfg)
	c.Assert(err, gc.IsNil)

	rep, err := svc.RunOnce(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(rep.Pages, gc.Equals, 6)
	c.Assert(rep.FailedFetches, gc.Equals, 2)
}

func (s *PageRankServiceTestSuite) TestEmptyPageSpace(c *gc.C) {
	cfg := s.config()
	cfg.Store = memory.NewInMemoryStore()
	svc, err := NewService(cfg)
	c.Assert(err, gc.IsNil)

	rep, err := svc.RunOnce(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(rep.Pages, gc.Equals, 0)
	c.Assert(rep.Iterations, gc.Equals, 0)
	c.Assert(rep.Top, gc.HasLen, 0)
}

func (s *PageRankServiceTestSuite) TestDiscoveryFailureIsFatal(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().List(gomock.Any(), "html-pages/").Return(nil, xerrors.New("access denied"))

	cfg := s.config()
	cfg.Store = store
	svc, err := NewService(cfg)
	c.Assert(err, gc.IsNil)
	err = svc.Run(context.TODO())
	c.Assert(err, gc.ErrorMatches, ".*page discovery failed: access denied")
}

func (s *PageRankServiceTestSuite) TestConfigValidation(c *gc.C) {
	n := -1
	_, err := NewService(Config{NumPages: &n, TopK: -1, UpdateInterval: -time.Second, Ranker: ranker.DefaultConfig()})
	c.Assert(err, gc.ErrorMatches, "(?s)pagerank service: config validation failed: .*object store has not been provided.*number of pages must not be negative.*top-k must not be negative.*update interval must not be negative.*")

	cfg := s.config()
	cfg.Ranker.DampingFactor = 1
	_, err = NewService(cfg)
	c.Assert(err, gc.ErrorMatches, "(?s)pagerank service: PageRank ranker config validation failed: .*")
}

func (s *PageRankServiceTestSuite) TestPeriodicRuns(c *gc.C) {
	reports := make(chan string, 10)
	cfg := s.config()
	cfg.UpdateInterval = time.Minute
	cfg.Output = chanWriter(reports)

	svc, err := NewService(cfg)
	c.Assert(err, gc.IsNil)

	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	s.waitForReport(c, reports)
	c.Assert(s.clk.WaitAdvance(time.Minute, time.Second, 1), gc.IsNil)
	s.waitForReport(c, reports)

	cancel()
	select {
	case err = <-done:
		c.Assert(err, gc.IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("timed out waiting for the service to exit")
	}
}

func (s *PageRankServiceTestSuite) waitForReport(c *gc.C, reports <-chan string) {
	select {
	case got := <-reports:
		c.Assert(strings.HasPrefix(got, "PAGES: 4\n"), gc.Equals, true)
	case <-time.After(5 * time.Second):
		c.Fatal("timed out waiting for report")
	}
}

// chanWriter forwards each write to a channel. Reports are flushed with a
// single write.
type chanWriter chan string

func (w chanWriter) Write(p []byte) (int, error) {
	w <- string(p)
	return len(p), nil
}
