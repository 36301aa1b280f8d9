package crawler

import (
	"bytes"
	"strconv"
	"sync"

	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"github.com/Ahmed-Sermani/go-pagerank/pipeline"
)

var (
	_ pipeline.Payload = (*pagePayload)(nil)

	// Payloads are recycled once they reach the sink.
	payloadPool = sync.Pool{
		New: func() any { return new(pagePayload) },
	}
)

type pagePayload struct {
	PageID   int
	NumPages int
	Object   string

	RawContent bytes.Buffer

	// FetchErr is set when the page object could not be retrieved; such a
	// page has no outgoing links.
	FetchErr error

	Links []int
}

func newPagePayload(prefix string, id, numPages int) *pagePayload {
	p := payloadPool.Get().(*pagePayload)
	p.PageID = id
	p.NumPages = numPages
	p.Object = pageObjectName(prefix, id)
	return p
}

// MarkAsProcessed resets the payload and returns it to the pool. Slice and
// buffer lengths are reset while their capacities are kept for reuse.
func (p *pagePayload) MarkAsProcessed() {
	p.PageID = 0
	p.NumPages = 0
	p.Object = ""
	p.RawContent.Reset()
	p.FetchErr = nil
	p.Links = p.Links[:0]
	payloadPool.Put(p)
}

// pageObjectName returns the object name of page id: <prefix>/<id>.html.
func pageObjectName(prefix string, id int) string {
	return objstore.Join(prefix, strconv.Itoa(id)+".html")
}
