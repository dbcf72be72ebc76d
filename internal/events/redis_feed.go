package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const feedChannel = "support:changefeed"

// redisFeed is a Dispatcher backed by Redis pub/sub so that multiple
// service instances observe each other's writes. Local handlers receive
// events via the subscription loop, including events this instance
// published itself.
type redisFeed struct {
	client *redis.Client
	logger *zap.Logger

	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewRedisFeed starts a Redis-backed change feed. The subscription loop
// runs until ctx is cancelled.
func NewRedisFeed(ctx context.Context, client *redis.Client, logger *zap.Logger) Dispatcher {
	feed := &redisFeed{
		client:    client,
		logger:    logger,
		listeners: make(map[EventType][]EventHandler),
	}
	go feed.consume(ctx)
	return feed
}

// Publish serializes the event onto the shared channel.
func (f *redisFeed) Publish(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, feedChannel, raw).Err()
}

// Subscribe registers a handler for the given event type.
func (f *redisFeed) Subscribe(eventType EventType, handler EventHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[eventType] = append(f.listeners[eventType], handler)
}

func (f *redisFeed) consume(ctx context.Context) {
	sub := f.client.Subscribe(ctx, feedChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				f.logger.Warn("discarding malformed change feed event", zap.Error(err))
				continue
			}
			f.deliver(ctx, event)
		}
	}
}

func (f *redisFeed) deliver(ctx context.Context, event Event) {
	f.mu.RLock()
	handlers := append([]EventHandler{}, f.listeners[event.Type]...)
	f.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			f.logger.Error("change feed handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err),
			)
		}
	}
}
