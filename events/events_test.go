package events

import (
	"testing"
	"time"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(EventsTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type EventsTestSuite struct{}

func (s *EventsTestSuite) TestEncodedFields(c *gc.C) {
	e := NewBlockedRequest(ReasonForbiddenCountry, "Syria", "3.html", "/3.html", "192.0.2.1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)))
	data, err := e.Encode()
	c.Assert(err, gc.IsNil)

	c.Assert(string(data), gc.Matches, `\{"id":"[0-9a-f-]{36}","reason":"forbidden_country","country":"Syria","file":"3.html","path":"/3.html","remote_addr":"192.0.2.1","ts":"2024-05-01T11:00:00Z"\}`)
}

func (s *EventsTestSuite) TestDecodeInvalidPayload(c *gc.C) {
	_, err := Decode([]byte("{not json"))
	c.Assert(err, gc.ErrorMatches, "decode blocked request event: .*")
}
