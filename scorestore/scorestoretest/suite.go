/*
   Conformance tests shared by every score store implementation.
*/
package scorestoretest

import (
	"context"

	"github.com/Ahmed-Sermani/go-pagerank/scorestore"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

// SuiteBase defines a re-usable set of score store tests that can be
// executed against any type that implements scorestore.Store.
type SuiteBase struct {
	s scorestore.Store
}

// SetStore configures the test-suite to run all tests against s.
func (s *SuiteBase) SetStore(store scorestore.Store) {
	s.s = store
}

func (s *SuiteBase) TestUpdateAndLookupScores(c *gc.C) {
	exp := []float64{0.5, 0.25, 0.125, 0.125}
	err := s.s.UpdateScores(context.TODO(), exp)
	c.Assert(err, gc.IsNil)

	for id, score := range exp {
		got, err := s.s.Score(context.TODO(), id)
		c.Assert(err, gc.IsNil)
		c.Assert(got, gc.Equals, score)
	}
}

func (s *SuiteBase) TestLookupUnknownPage(c *gc.C) {
	err := s.s.UpdateScores(context.TODO(), []float64{1})
	c.Assert(err, gc.IsNil)

	_, err = s.s.Score(context.TODO(), 1)
	c.Assert(xerrors.Is(err, scorestore.ErrNotFound), gc.Equals, true)
	_, err = s.s.Score(context.TODO(), -1)
	c.Assert(xerrors.Is(err, scorestore.ErrNotFound), gc.Equals, true)
}

func (s *SuiteBase) TestUpdateReplacesPreviousRun(c *gc.C) {
	err := s.s.UpdateScores(context.TODO(), []float64{0.1, 0.2, 0.3, 0.4})
	c.Assert(err, gc.IsNil)
	err = s.s.UpdateScores(context.TODO(), []float64{0.6, 0.4})
	c.Assert(err, gc.IsNil)

	got, err := s.s.Score(context.TODO(), 0)
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, 0.6)

	// Pages outside the new page space are gone.
	_, err = s.s.Score(context.TODO(), 3)
	c.Assert(xerrors.Is(err, scorestore.ErrNotFound), gc.Equals, true)
}

func (s *SuiteBase) TestUpdateWithEmptyScores(c *gc.C) {
	err := s.s.UpdateScores(context.TODO(), []float64{0.7, 0.3})
	c.Assert(err, gc.IsNil)
	err = s.s.UpdateScores(context.TODO(), nil)
	c.Assert(err, gc.IsNil)

	_, err = s.s.Score(context.TODO(), 0)
	c.Assert(xerrors.Is(err, scorestore.ErrNotFound), gc.Equals, true)
}

func (s *SuiteBase) TestUpdateWithCancelledContext(c *gc.C) {
	err := s.s.UpdateScores(context.TODO(), []float64{1})
	c.Assert(err, gc.IsNil)

	ctx, cancel := context.WithCancel(context.TODO())
	cancel()
	err = s.s.UpdateScores(ctx, []float64{0.5, 0.5})
	c.Assert(err, gc.NotNil)

	// The previous run is left untouched.
	got, err := s.s.Score(context.TODO(), 0)
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, 1.0)
}
