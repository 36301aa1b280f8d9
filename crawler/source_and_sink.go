package crawler

import (
	"context"

	"github.com/Ahmed-Sermani/go-pagerank/pipeline"
)

// pageSource emits the page ids [0, numPages) in ascending order.
type pageSource struct {
	prefix   string
	numPages int
	next     int
}

func (ps *pageSource) Error() error { return nil }

func (ps *pageSource) Next(ctx context.Context) bool {
	if ps.next >= ps.numPages || ctx.Err() != nil {
		return false
	}
	ps.next++
	return true
}

func (ps *pageSource) Payload() pipeline.Payload {
	return newPagePayload(ps.prefix, ps.next-1, ps.numPages)
}

// graphSink collects the outgoing links of each page keyed by page id. The
// pipeline invokes Consume from a single goroutine so it's the only writer.
type graphSink struct {
	outLinks map[int][]int
	pages    int
	failed   int
}

func newGraphSink(numPages int) *graphSink {
	return &graphSink{outLinks: make(map[int][]int, numPages)}
}

func (s *graphSink) Consume(_ context.Context, p pipeline.Payload) error {
	payload := p.(*pagePayload)

	// The payload gets recycled once consumed; keep a copy of its links.
	s.outLinks[payload.PageID] = append([]int(nil), payload.Links...)
	s.pages++
	if payload.FetchErr != nil {
		s.failed++
	}
	return nil
}
