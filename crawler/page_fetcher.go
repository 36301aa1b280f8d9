package crawler

import (
	"context"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"github.com/Ahmed-Sermani/go-pagerank/pipeline"
	"github.com/sirupsen/logrus"
)

var _ pipeline.Processor = (*pageFetcher)(nil)

type pageFetcher struct {
	store   objstore.Store
	timeout time.Duration
	logger  *logrus.Entry
}

func newPageFetcher(store objstore.Store, timeout time.Duration, logger *logrus.Entry) *pageFetcher {
	return &pageFetcher{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Process retrieves the page object. A failed fetch never fails the
// pipeline: the error is recorded on the payload and the page continues
// with empty content.
func (pf *pageFetcher) Process(ctx context.Context, p pipeline.Payload) (pipeline.Payload, error) {
	payload := p.(*pagePayload)

	fetchCtx, cancel := context.WithTimeout(ctx, pf.timeout)
	defer cancel()

	data, err := pf.store.Get(fetchCtx, payload.Object)
	if err != nil {
		payload.FetchErr = err
		// Once the build itself is cancelled every in-flight fetch fails;
		// the build reports that, not each page.
		if ctx.Err() == nil {
			pf.logger.WithFields(logrus.Fields{
				"page_id": payload.PageID,
				"object":  payload.Object,
			}).WithError(err).Warn("page fetch failed; treating page as having no outgoing links")
		}
		return payload, nil
	}

	_, _ = payload.RawContent.Write(data)
	return payload, nil
}
