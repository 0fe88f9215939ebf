package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultMaxLen bounds a stream when no explicit length is configured.
const DefaultMaxLen = 10000

// Publisher appends events to one Redis stream, trimming it to roughly
// maxLen entries.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
	newID  func() string
}

type PublisherOption func(*Publisher)

// WithMaxLen sets the approximate stream length; 0 or less disables trimming.
func WithMaxLen(n int64) PublisherOption {
	return func(p *Publisher) { p.maxLen = n }
}

func NewPublisher(client *redis.Client, stream string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client: client,
		stream: stream,
		maxLen: DefaultMaxLen,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes data as an event of eventType. The type is also stored as a
// separate stream field so consumers can filter without decoding.
func (p *Publisher) Publish(ctx context.Context, eventType string, data any) error {
	event := Event{
		ID:        p.newID(),
		Type:      eventType,
		Source:    Source,
		Timestamp: p.now().UTC(),
		Data:      data,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":  eventType,
			"event": eventJSON,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish %s event to %s: %w", eventType, p.stream, err)
	}

	return nil
}

// NopPublisher drops every event. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
