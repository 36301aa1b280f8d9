package pipeline_test

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/pipeline"
	"github.com/Ahmed-Sermani/go-pagerank/pipeline/runners"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(PipelineTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type PipelineTestSuite struct{}

func (s *PipelineTestSuite) TestDataFlow(c *gc.C) {
	src := &sourceStub{data: intPayloads(10)}
	sink := new(sinkStub)

	p := pipeline.New(
		runners.FIFO(addProcessor(1)),
		runners.FixedWorkerPool(addProcessor(10), 4),
	)
	err := p.Process(context.TODO(), src, sink)
	c.Assert(err, gc.IsNil)

	got := sink.values()
	sort.Ints(got)
	exp := make([]int, 10)
	for i := range exp {
		exp[i] = i + 11
	}
	c.Assert(got, gc.DeepEquals, exp)
	c.Assert(atomic.LoadInt64(&src.processed), gc.Equals, int64(10))
}

func (s *PipelineTestSuite) TestDroppedPayloadsAreMarkedAsProcessed(c *gc.C) {
	src := &sourceStub{data: intPayloads(6)}
	sink := new(sinkStub)

	dropOdd := pipeline.ProcessorFunc(func(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
		if p.(*intPayload).val%2 == 1 {
			return nil, nil
		}
		return p, nil
	})
	err := pipeline.New(runners.FIFO(dropOdd)).Process(context.TODO(), src, sink)
	c.Assert(err, gc.IsNil)

	got := sink.values()
	sort.Ints(got)
	c.Assert(got, gc.DeepEquals, []int{0, 2, 4})
	c.Assert(atomic.LoadInt64(&src.processed), gc.Equals, int64(6))
}

func (s *PipelineTestSuite) TestProcessorErrorPropagation(c *gc.C) {
	src := &sourceStub{data: intPayloads(3)}
	failing := pipeline.ProcessorFunc(func(context.Context, pipeline.Payload) (pipeline.Payload, error) {
		return nil, xerrors.New("boom")
	})

	err := pipeline.New(runners.FIFO(failing)).Process(context.TODO(), src, new(sinkStub))
	c.Assert(err, gc.ErrorMatches, "(?s).*pipeline stage 0: boom.*")
}

func (s *PipelineTestSuite) TestSourceErrorPropagation(c *gc.C) {
	src := &sourceStub{data: intPayloads(2), err: xerrors.New("listing failed")}

	err := pipeline.New(runners.FIFO(addProcessor(0))).Process(context.TODO(), src, new(sinkStub))
	c.Assert(err, gc.ErrorMatches, "(?s).*pipeline source: listing failed.*")
}

func (s *PipelineTestSuite) TestSinkErrorPropagation(c *gc.C) {
	src := &sourceStub{data: intPayloads(2)}
	sink := &sinkStub{err: xerrors.New("disk full")}

	err := pipeline.New(runners.FIFO(addProcessor(0))).Process(context.TODO(), src, sink)
	c.Assert(err, gc.ErrorMatches, "(?s).*pipeline sink: disk full.*")
}

func (s *PipelineTestSuite) TestContextCancellationIsReported(c *gc.C) {
	ctx, cancel := context.WithCancel(context.TODO())
	blocking := pipeline.ProcessorFunc(func(ctx context.Context, p pipeline.Payload) (pipeline.Payload, error) {
		cancel()
		<-ctx.Done()
		return p, nil
	})

	src := &sourceStub{data: intPayloads(100)}
	err := pipeline.New(runners.FixedWorkerPool(blocking, 2)).Process(ctx, src, new(sinkStub))
	c.Assert(err, gc.NotNil)
	c.Assert(xerrors.Is(err, context.Canceled), gc.Equals, true)
}

func (s *PipelineTestSuite) TestFixedWorkerPoolBoundsConcurrency(c *gc.C) {
	const numWorkers = 3
	var active, maxActive int64
	proc := pipeline.ProcessorFunc(func(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
		cur := atomic.AddInt64(&active, 1)
		for {
			seen := atomic.LoadInt64(&maxActive)
			if cur <= seen || atomic.CompareAndSwapInt64(&maxActive, seen, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		return p, nil
	})

	src := &sourceStub{data: intPayloads(30)}
	sink := new(sinkStub)
	err := pipeline.New(runners.FixedWorkerPool(proc, numWorkers)).Process(context.TODO(), src, sink)
	c.Assert(err, gc.IsNil)
	c.Assert(sink.values(), gc.HasLen, 30)
	c.Assert(atomic.LoadInt64(&maxActive) <= numWorkers, gc.Equals, true)
	c.Assert(atomic.LoadInt64(&maxActive) >= 1, gc.Equals, true)
}

func (s *PipelineTestSuite) TestFixedWorkerPoolRejectsZeroWorkers(c *gc.C) {
	c.Assert(func() { runners.FixedWorkerPool(addProcessor(0), 0) }, gc.PanicMatches, ".*number of workers must be greater than 0")
}

type intPayload struct {
	val       int
	processed *int64
}

func (p *intPayload) MarkAsProcessed() { atomic.AddInt64(p.processed, 1) }

func intPayloads(n int) []int {
	vals := make([]int, n)
	for i := range vals {
		vals[i] = i
	}
	return vals
}

func addProcessor(delta int) pipeline.Processor {
	return pipeline.ProcessorFunc(func(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
		p.(*intPayload).val += delta
		return p, nil
	})
}

type sourceStub struct {
	index     int
	data      []int
	err       error
	processed int64
}

func (s *sourceStub) Next(context.Context) bool {
	if s.index >= len(s.data) {
		return false
	}
	s.index++
	return true
}

func (s *sourceStub) Payload() pipeline.Payload {
	return &intPayload{val: s.data[s.index-1], processed: &s.processed}
}

func (s *sourceStub) Error() error { return s.err }

type sinkStub struct {
	data []int
	err  error
}

func (s *sinkStub) Consume(_ context.Context, p pipeline.Payload) error {
	s.data = append(s.data, p.(*intPayload).val)
	return s.err
}

func (s *sinkStub) values() []int { return append([]int(nil), s.data...) }
