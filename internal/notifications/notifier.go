// Package notifications delivers post moderation events to connected staff.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"istancool/internal/middleware"
	"istancool/internal/models"

	"github.com/redis/go-redis/v9"
)

// ModerationChannel carries every post event for the staff feed.
const ModerationChannel = "moderation:posts"

// Notifier publishes events on Redis. Without Redis it hands them straight
// to the local subscriber, so a single instance still gets its feed.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local func(channel, payload string)
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) publish(ctx context.Context, channel, payload string) error {
	if n.rdb != nil {
		return n.rdb.Publish(ctx, channel, payload).Err()
	}
	n.mu.RLock()
	local := n.local
	n.mu.RUnlock()
	if local != nil {
		local(channel, payload)
	}
	return nil
}

// PublishPostEvent sends ev to the staff feed.
func (n *Notifier) PublishPostEvent(ctx context.Context, ev models.PostEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal post event: %w", err)
	}
	return n.publish(ctx, ModerationChannel, string(payload))
}

// StartSubscriber calls onMessage for every moderation message until ctx ends.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		n.mu.Lock()
		n.local = onMessage
		n.mu.Unlock()
		return nil
	}

	sub := n.rdb.Subscribe(ctx, ModerationChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in moderation subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
