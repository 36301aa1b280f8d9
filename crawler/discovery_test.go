package crawler

import (
	"context"

	"github.com/Ahmed-Sermani/go-pagerank/graph"
	"github.com/Ahmed-Sermani/go-pagerank/objstore/memory"
	"github.com/Ahmed-Sermani/go-pagerank/objstore/mocks"
	"github.com/golang/mock/gomock"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(DiscoveryTestSuite))

type DiscoveryTestSuite struct {
	store *memory.InMemoryStore
}

func (s *DiscoveryTestSuite) SetUpTest(c *gc.C) {
	s.store = memory.NewInMemoryStore()
}

func (s *DiscoveryTestSuite) TestExplicitPageCount(c *gc.C) {
	n := 42
	got, err := newTestCrawler(c, s.store, "pages").ResolvePageSpace(context.TODO(), &n)
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, 42)

	n = -1
	_, err = newTestCrawler(c, s.store, "pages").ResolvePageSpace(context.TODO(), &n)
	c.Assert(xerrors.Is(err, graph.ErrNegativePageCount), gc.Equals, true)
}

func (s *DiscoveryTestSuite) TestDiscoverFromLargestID(c *gc.C) {
	putPage(c, s.store, "pages", 0)
	putPage(c, s.store, "pages", 3)
	putPage(c, s.store, "pages", 11)
	for _, name := range []string{"pages/index.html", "pages/12.htm", "pages/x13.html", "other/99.html", "pages-old/50.html"} {
		c.Assert(s.store.Put(context.TODO(), name, nil, ""), gc.IsNil)
	}

	got, err := newTestCrawler(c, s.store, "pages").ResolvePageSpace(context.TODO(), nil)
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, 12)
}

func (s *DiscoveryTestSuite) TestDiscoverNoPages(c *gc.C) {
	got, err := newTestCrawler(c, s.store, "pages").ResolvePageSpace(context.TODO(), nil)
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, 0)
}

func (s *DiscoveryTestSuite) TestDiscoveryFailure(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().List(gomock.Any(), "pages/").Return(nil, xerrors.New("permission denied"))

	_, err := newTestCrawler(c, store, "pages").ResolvePageSpace(context.TODO(), nil)
	c.Assert(err, gc.ErrorMatches, "resolve page space: page discovery failed: permission denied")
}

func (s *DiscoveryTestSuite) TestPageIDFromObjectName(c *gc.C) {
	specs := []struct {
		name string
		id   int
		ok   bool
	}{
		{name: "pages/10.html", id: 10, ok: true},
		{name: "0.html", id: 0, ok: true},
		{name: "a/b/007.html", id: 7, ok: true},
		{name: "pages/10.HTML"},
		{name: "pages/-1.html"},
		{name: "pages/99999999999999999999999.html"},
		{name: "pages/"},
	}
	for i, spec := range specs {
		c.Logf("[spec %d] %s", i, spec.name)
		id, ok := pageIDFromObjectName(spec.name)
		c.Assert(ok, gc.Equals, spec.ok)
		c.Assert(id, gc.Equals, spec.id)
	}
}
