// Package notifications provides in-app notification emission, real-time
// delivery over websockets and the push outbox.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"eminence/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
)

// Realtime event types pushed to connected clients.
const (
	EventNotificationCreated = "notification_created"
	EventBadgeGranted        = "badge_granted"
	EventQuoteLikeUpdated    = "quote_like_updated"
	EventReplyCreated        = "reply_created"
	EventDailyTopQuote       = "daily_top_quote"
)

// Event is the envelope every realtime message uses.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Notifier publishes realtime payloads into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a payload to every connected user.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// StartPatternSubscriber subscribes to every user channel and the broadcast
// channel and calls onMessage for each incoming message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	// wait for the subscription so nothing published right after is lost
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
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
							observability.GlobalLogger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// userFromChannel is the inverse of UserChannel.
func userFromChannel(channel string) (string, bool) {
	uid, ok := strings.CutPrefix(channel, userChannelPrefix)
	return uid, ok && uid != ""
}

// Publisher delivers events to users. With Redis configured events go through
// pub/sub so every instance's hub sees them; otherwise they go straight to the
// local hub.
type Publisher struct {
	hub      *Hub
	notifier *Notifier
}

// NewPublisher creates a publisher. Either argument may be nil.
func NewPublisher(hub *Hub, notifier *Notifier) *Publisher {
	return &Publisher{hub: hub, notifier: notifier}
}

// PublishUser sends an event to one user.
func (p *Publisher) PublishUser(ctx context.Context, userID, eventType string, payload interface{}) error {
	if p == nil || userID == "" {
		return nil
	}
	message, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if p.notifier.Enabled() {
		return p.notifier.PublishUser(ctx, userID, string(message))
	}
	if p.hub != nil {
		p.hub.Broadcast(userID, string(message))
	}
	return nil
}

// PublishAll sends an event to everyone connected.
func (p *Publisher) PublishAll(ctx context.Context, eventType string, payload interface{}) error {
	if p == nil {
		return nil
	}
	message, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if p.notifier.Enabled() {
		return p.notifier.PublishBroadcast(ctx, string(message))
	}
	if p.hub != nil {
		p.hub.BroadcastAll(string(message))
	}
	return nil
}
