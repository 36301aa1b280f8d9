/*
   Immutable link graph over integer page ids.
*/
package graph

import (
	"golang.org/x/xerrors"
)

var (
	// ErrNegativePageCount is returned when a graph is created with a
	// negative number of pages.
	ErrNegativePageCount = xerrors.New("page count must not be negative")
)

// Graph is a directed graph over the page ids [0, NumPages). Each page keeps
// its outgoing links in the order they appear in the page markup; parallel
// links are preserved.
//
// A Graph is immutable once created and safe for concurrent reads.
type Graph struct {
	outLinks [][]int
	inDegree []int
	numEdges int

	// incoming is the reverse adjacency; it's derived once at creation time.
	incoming [][]int
}

// New creates a graph with n pages using the provided outgoing links. Pages
// that are missing from outLinks have no outgoing links. Destinations
// outside [0, n) are dropped.
func New(n int, outLinks map[int][]int) (*Graph, error) {
	if n < 0 {
		return nil, xerrors.Errorf("create graph with %d pages: %w", n, ErrNegativePageCount)
	}

	g := &Graph{
		outLinks: make([][]int, n),
		inDegree: make([]int, n),
	}
	for src := 0; src < n; src++ {
		links := outLinks[src]
		filtered := make([]int, 0, len(links))
		for _, dst := range links {
			if dst >= 0 && dst < n {
				filtered = append(filtered, dst)
			}
		}
		g.outLinks[src] = filtered
	}

	// Degrees and the reverse adjacency are derived only after every
	// adjacency list is in place.
	incomingCount := make([]int, n)
	for _, links := range g.outLinks {
		for _, dst := range links {
			g.inDegree[dst]++
			incomingCount[dst]++
			g.numEdges++
		}
	}
	g.incoming = make([][]int, n)
	for dst, count := range incomingCount {
		g.incoming[dst] = make([]int, 0, count)
	}
	for src, links := range g.outLinks {
		for _, dst := range links {
			g.incoming[dst] = append(g.incoming[dst], src)
		}
	}
	return g, nil
}

// NumPages returns the number of pages N in the graph.
func (g *Graph) NumPages() int { return len(g.outLinks) }

// NumEdges returns the total number of link occurrences in the graph.
func (g *Graph) NumEdges() int { return g.numEdges }

// OutLinks returns a copy of the outgoing links of page id.
func (g *Graph) OutLinks(id int) []int {
	return append([]int(nil), g.outLinks[id]...)
}

// OutDegree returns the number of outgoing links of page id.
func (g *Graph) OutDegree(id int) int { return len(g.outLinks[id]) }

// InDegree returns the number of link occurrences that point to page id.
func (g *Graph) InDegree(id int) int { return g.inDegree[id] }

// IsDangling returns true if page id has no outgoing links.
func (g *Graph) IsDangling(id int) bool { return len(g.outLinks[id]) == 0 }

// Incoming returns the sources linking to page id; a source appears once per
// link occurrence. The returned slice must not be modified.
func (g *Graph) Incoming(id int) []int { return g.incoming[id] }

// OutDegrees returns the out-degree of every page indexed by page id.
func (g *Graph) OutDegrees() []int {
	degrees := make([]int, len(g.outLinks))
	for id, links := range g.outLinks {
		degrees[id] = len(links)
	}
	return degrees
}

// InDegrees returns the in-degree of every page indexed by page id.
func (g *Graph) InDegrees() []int {
	return append([]int(nil), g.inDegree...)
}
