package crawler

import (
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(LinkExtractorTestSuite))

type LinkExtractorTestSuite struct{}

func (s *LinkExtractorTestSuite) TestExtractLinks(c *gc.C) {
	content := []byte(`
<html>
<a HREF="1.html">one</a>
<a href="2.html">two</a>
<A   HREF="1.html">one again</A>
<a HREF="5.html">outside</a>
<a HREF="abc.html">not a page</a>
<a class="x" HREF="3.html">attribute before href</a>
<link HREF="3.html">
<a HREF='3.html'>single quotes</a>
<a HREF="99999999999999999999999.html">overflow</a>
</html>`)

	c.Assert(ExtractLinks(content, 5), gc.DeepEquals, []int{1, 2, 1})
}

func (s *LinkExtractorTestSuite) TestExtractLinksNoMatches(c *gc.C) {
	c.Assert(ExtractLinks([]byte("<p>no links</p>"), 10), gc.HasLen, 0)
	c.Assert(ExtractLinks(nil, 10), gc.HasLen, 0)
}
