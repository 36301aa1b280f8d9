/*
   Human readable summary of a ranking run.
*/
package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/stats"
)

// PageScore associates a page with its PageRank score.
type PageScore struct {
	ID    int
	Score float64
}

// TopK returns the k highest scoring pages sorted by descending score. Pages
// with equal scores are ordered by ascending id.
func TopK(scores []float64, k int) []PageScore {
	if k <= 0 {
		return nil
	}

	ranked := make([]PageScore, len(scores))
	for id, score := range scores {
		ranked[id] = PageScore{ID: id, Score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// Report collects the measurements of a ranking run.
type Report struct {
	Pages         int
	ReadDuration  time.Duration
	RankDuration  time.Duration
	TotalDuration time.Duration
	Iterations    int
	Converged     bool
	RankSum       float64
	FailedFetches int

	InDegree  stats.Summary
	OutDegree stats.Summary

	Top []PageScore
}

// WriteTo writes the report to w in a line oriented KEY: value format.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	fmt.Fprintf(cw, "PAGES: %d\n", r.Pages)
	fmt.Fprintf(cw, "READ_SECONDS: %.3f\n", r.ReadDuration.Seconds())
	fmt.Fprintf(cw, "PAGERANK_SECONDS: %.3f\n", r.RankDuration.Seconds())
	fmt.Fprintf(cw, "TOTAL_SECONDS: %.3f\n", r.TotalDuration.Seconds())
	fmt.Fprintf(cw, "PAGERANK_ITERS: %d\n", r.Iterations)
	fmt.Fprintf(cw, "PAGERANK_CONVERGED: %t\n", r.Converged)
	fmt.Fprintf(cw, "PAGERANK_SUM: %.10f\n", r.RankSum)
	fmt.Fprintf(cw, "FAILED_FETCHES: %d\n", r.FailedFetches)

	fmt.Fprintf(cw, "\nINCOMING_LINKS_STATS:\n%s\n", r.InDegree)
	fmt.Fprintf(cw, "\nOUTGOING_LINKS_STATS:\n%s\n", r.OutDegree)

	fmt.Fprint(cw, "\nTOP_PAGES_BY_PAGERANK:\n")
	for _, ps := range r.Top {
		fmt.Fprintf(cw, "%d.html\t%.10f\n", ps.ID, ps.Score)
	}

	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

// countingWriter keeps track of the bytes written and the first write error
// so formatting calls don't need individual checks.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err
	return n, err
}
