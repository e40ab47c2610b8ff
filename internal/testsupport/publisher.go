package testsupport

import (
	"context"
	"sync"

	"darkroom/internal/event"
)

// Published is one captured publish call.
type Published struct {
	RoutingKey string
	Body       []byte
}

// CapturePublisher records publishes in memory and satisfies bus.Publisher.
type CapturePublisher struct {
	mu        sync.Mutex
	published []Published

	FailWith error // when set, Publish fails with this error
}

// NewCapturePublisher builds an empty capture publisher.
func NewCapturePublisher() *CapturePublisher {
	return &CapturePublisher{}
}

func (p *CapturePublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	if p.FailWith != nil {
		return p.FailWith
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, Published{RoutingKey: routingKey, Body: append([]byte{}, body...)})
	return nil
}

// Published returns the captured publish calls in order.
func (p *CapturePublisher) Published() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published{}, p.published...)
}

// LastEnvelope parses and returns the most recently published envelope.
func (p *CapturePublisher) LastEnvelope() (event.Envelope, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.published) == 0 {
		return event.Envelope{}, false
	}
	env, err := event.Parse(p.published[len(p.published)-1].Body)
	if err != nil {
		return event.Envelope{}, false
	}
	return env, true
}
