package crawler

import (
	"context"
	"path"
	"regexp"
	"strconv"

	"github.com/Ahmed-Sermani/go-pagerank/graph"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

var pageObjectRegex = regexp.MustCompile(`^(\d+)\.html$`)

// ResolvePageSpace returns the number of pages N. If explicit is provided it
// is used as is. Otherwise N is derived from the largest page id found under
// the configured prefix, or 0 if there are no page objects.
//
// A failure to list the store is fatal: no page space can be assumed.
func (c *Crawler) ResolvePageSpace(ctx context.Context, explicit *int) (int, error) {
	if explicit != nil {
		if *explicit < 0 {
			return 0, xerrors.Errorf("resolve page space: %w", graph.ErrNegativePageCount)
		}
		return *explicit, nil
	}

	listPrefix := c.cfg.Prefix
	if listPrefix != "" {
		listPrefix += "/"
	}
	names, err := c.cfg.Store.List(ctx, listPrefix)
	if err != nil {
		return 0, xerrors.Errorf("resolve page space: page discovery failed: %w", err)
	}

	maxID, found := -1, 0
	for _, name := range names {
		id, ok := pageIDFromObjectName(name)
		if !ok {
			continue
		}
		found++
		if id > maxID {
			maxID = id
		}
	}

	c.cfg.Logger.WithFields(logrus.Fields{
		"prefix":       c.cfg.Prefix,
		"objects":      len(names),
		"page_objects": found,
		"num_pages":    maxID + 1,
	}).Info("discovered page space")
	return maxID + 1, nil
}

// pageIDFromObjectName extracts the page id from an object whose base name
// is <digits>.html.
func pageIDFromObjectName(name string) (int, bool) {
	match := pageObjectRegex.FindStringSubmatch(path.Base(name))
	if match == nil {
		return 0, false
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		// The digit run overflows an int.
		return 0, false
	}
	return id, true
}
