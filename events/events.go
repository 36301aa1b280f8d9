/*
   Events emitted when the front door refuses to serve a request.
*/
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/Ahmed-Sermani/go-pagerank/events Publisher

// ReasonForbiddenCountry is the reason recorded for requests originating
// from a country the front door does not serve.
const ReasonForbiddenCountry = "forbidden_country"

// BlockedRequest describes a request that was refused.
type BlockedRequest struct {
	ID         uuid.UUID `json:"id"`
	Reason     string    `json:"reason"`
	Country    string    `json:"country"`
	File       string    `json:"file"`
	Path       string    `json:"path"`
	RemoteAddr string    `json:"remote_addr"`
	Timestamp  time.Time `json:"ts"`
}

// NewBlockedRequest returns a BlockedRequest with a random ID.
func NewBlockedRequest(reason, country, file, path, remoteAddr string, ts time.Time) BlockedRequest {
	return BlockedRequest{
		ID:         uuid.New(),
		Reason:     reason,
		Country:    country,
		File:       file,
		Path:       path,
		RemoteAddr: remoteAddr,
		Timestamp:  ts.UTC(),
	}
}

// Encode serializes the event for transport.
func (e BlockedRequest) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, xerrors.Errorf("encode blocked request event: %w", err)
	}
	return data, nil
}

// Decode parses an event produced by Encode.
func Decode(data []byte) (BlockedRequest, error) {
	var e BlockedRequest
	if err := json.Unmarshal(data, &e); err != nil {
		return BlockedRequest{}, xerrors.Errorf("decode blocked request event: %w", err)
	}
	return e, nil
}

// Publisher is implemented by objects that deliver events to subscribers.
type Publisher interface {
	// Publish blocks until the event has been accepted by the transport.
	Publish(ctx context.Context, e BlockedRequest) error
}

// Message is a delivered event awaiting acknowledgement. Messages that are
// not acknowledged get redelivered.
type Message interface {
	Data() []byte
	Ack()
	Nack()
}

// Handler processes a single message. It must call either Ack or Nack.
type Handler func(ctx context.Context, msg Message)

// Subscriber is implemented by objects that receive events.
type Subscriber interface {
	// Receive invokes h for every delivered message until ctx expires or
	// an unrecoverable error occurs. Handlers may run concurrently.
	Receive(ctx context.Context, h Handler) error
}
