package crawler

import (
	"context"
	"regexp"
	"strconv"

	"github.com/Ahmed-Sermani/go-pagerank/pipeline"
)

var (
	_ pipeline.Processor = (*linkExtractor)(nil)

	// Links are encoded as <a HREF="<digits>.html">; tag and attribute
	// names are matched case-insensitively.
	anchorRegex = regexp.MustCompile(`(?i)<a\s+HREF="(\d+)\.html"`)
)

type linkExtractor struct{}

func newLinkExtractor() *linkExtractor {
	return &linkExtractor{}
}

func (le *linkExtractor) Process(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
	payload := p.(*pagePayload)
	if payload.FetchErr != nil {
		return payload, nil
	}

	payload.Links = appendLinks(payload.Links, payload.RawContent.Bytes(), payload.NumPages)
	return payload, nil
}

// ExtractLinks returns the ids of the pages linked from content, in order of
// appearance. Parallel links are kept; ids outside [0, numPages) are dropped.
func ExtractLinks(content []byte, numPages int) []int {
	return appendLinks(nil, content, numPages)
}

func appendLinks(links []int, content []byte, numPages int) []int {
	for _, match := range anchorRegex.FindAllSubmatch(content, -1) {
		id, err := strconv.Atoi(string(match[1]))
		if err != nil || id >= numPages {
			continue
		}
		links = append(links, id)
	}
	return links
}
