package notifications

import (
	"context"
	"log/slog"

	"eminence/internal/badges"
	"eminence/internal/models"
	"eminence/internal/observability"
)

// Emission outcomes recorded in metrics.
const (
	outcomeEmitted    = "emitted"
	outcomeSuppressed = "suppressed"
	outcomeFailed     = "failed"
)

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// RecipientLookup loads the account settings used to decide on push delivery.
type RecipientLookup interface {
	GetByID(ctx context.Context, uid string) (*models.User, error)
}

// LikeEvent describes a like that was just added.
type LikeEvent struct {
	QuoteID              string
	QuoteText            string
	ToUserID             string
	FromUserID           string
	FromUserName         string
	FromUserProfileImage *string
	FromAnonymous        bool
}

// ReplyEvent describes a reply that was just posted.
type ReplyEvent struct {
	QuoteID              string
	QuoteText            string
	ToUserID             string
	FromUserID           string
	FromUserName         string
	FromUserProfileImage *string
	FromAnonymous        bool
	ReplyText            string
	// ReplyAuthor is the author field the replier typed, used in the push body.
	ReplyAuthor string
}

// Emitter writes in-app notifications and fans them out to realtime and push.
type Emitter struct {
	store      NotificationStore
	recipients RecipientLookup
	publisher  *Publisher
	push       *PushQueue
}

// NewEmitter creates an emitter. publisher and push may be nil.
func NewEmitter(store NotificationStore, recipients RecipientLookup, publisher *Publisher, push *PushQueue) *Emitter {
	return &Emitter{store: store, recipients: recipients, publisher: publisher, push: push}
}

func suppressed(from, to string, anonymous bool) bool {
	return to == "" || from == "" || anonymous || from == to
}

func displayName(name string) string {
	if name == "" {
		return models.DefaultDisplayName
	}
	return name
}

// EmitOnLike notifies the quote's author of a like. It reports whether a
// notification was written; self likes, anonymous likers and authorless
// quotes are skipped without error.
func (e *Emitter) EmitOnLike(ctx context.Context, ev LikeEvent) (bool, error) {
	kind := string(models.NotificationLike)
	if suppressed(ev.FromUserID, ev.ToUserID, ev.FromAnonymous) {
		observability.NotificationsEmitted.WithLabelValues(kind, outcomeSuppressed).Inc()
		return false, nil
	}

	name := displayName(ev.FromUserName)
	quoteID, quoteText := ev.QuoteID, ev.QuoteText
	n := &models.Notification{
		Type:                 models.NotificationLike,
		Message:              LikeMessage(name),
		FromUserID:           ev.FromUserID,
		FromUserName:         name,
		FromUserProfileImage: ev.FromUserProfileImage,
		ToUserID:             ev.ToUserID,
		RelatedQuoteID:       &quoteID,
		RelatedQuoteText:     &quoteText,
	}
	if err := e.store.Create(ctx, n); err != nil {
		observability.NotificationsEmitted.WithLabelValues(kind, outcomeFailed).Inc()
		return false, err
	}

	e.fanOut(ctx, n, PushJob{
		Kind:   PushKindLike,
		UserID: ev.ToUserID,
		Title:  LikePushTitle,
		Body:   LikePushBody(ev.QuoteText),
		Data:   map[string]string{"quoteId": ev.QuoteID, "type": kind},
	})
	observability.NotificationsEmitted.WithLabelValues(kind, outcomeEmitted).Inc()
	return true, nil
}

// EmitOnReply notifies the quote's author of a reply, with the same
// suppression rules as EmitOnLike.
func (e *Emitter) EmitOnReply(ctx context.Context, ev ReplyEvent) (bool, error) {
	kind := string(models.NotificationReply)
	if suppressed(ev.FromUserID, ev.ToUserID, ev.FromAnonymous) {
		observability.NotificationsEmitted.WithLabelValues(kind, outcomeSuppressed).Inc()
		return false, nil
	}

	name := displayName(ev.FromUserName)
	quoteID, quoteText, replyText := ev.QuoteID, ev.QuoteText, ev.ReplyText
	n := &models.Notification{
		Type:                 models.NotificationReply,
		Message:              ReplyMessage(name),
		FromUserID:           ev.FromUserID,
		FromUserName:         name,
		FromUserProfileImage: ev.FromUserProfileImage,
		ToUserID:             ev.ToUserID,
		RelatedQuoteID:       &quoteID,
		RelatedQuoteText:     &quoteText,
		ReplyText:            &replyText,
	}
	if err := e.store.Create(ctx, n); err != nil {
		observability.NotificationsEmitted.WithLabelValues(kind, outcomeFailed).Inc()
		return false, err
	}

	e.fanOut(ctx, n, PushJob{
		Kind:   PushKindReply,
		UserID: ev.ToUserID,
		Title:  ReplyPushTitle,
		Body:   ReplyPushBody(ev.ReplyAuthor, ev.ReplyText),
		Data:   map[string]string{"quoteId": ev.QuoteID, "type": kind},
	})
	observability.NotificationsEmitted.WithLabelValues(kind, outcomeEmitted).Inc()
	return true, nil
}

// fanOut publishes the stored notification and queues its push. Both are best
// effort.
func (e *Emitter) fanOut(ctx context.Context, n *models.Notification, job PushJob) {
	if err := e.publisher.PublishUser(ctx, n.ToUserID, EventNotificationCreated, n); err != nil {
		observability.LogAsyncOperationError(ctx, "notification_publish", err, map[string]interface{}{
			"notification_id": n.ID,
		})
	}
	e.enqueuePush(ctx, job)
}

func (e *Emitter) enqueuePush(ctx context.Context, job PushJob) {
	if e.push == nil || e.recipients == nil {
		return
	}
	user, err := e.recipients.GetByID(ctx, job.UserID)
	if err != nil {
		if !models.HasCode(err, models.CodeNotFound) {
			observability.LogAsyncOperationError(ctx, "push_recipient_lookup", err, map[string]interface{}{
				"user_id": job.UserID,
			})
		}
		return
	}
	if !user.CanReceivePush() {
		return
	}
	job.Tokens = []string{*user.FCMToken}
	if err := e.push.Enqueue(ctx, job); err != nil {
		observability.LogAsyncOperationError(ctx, "push_enqueue", err, map[string]interface{}{
			"user_id": job.UserID,
			"kind":    job.Kind,
		})
	}
}

// OnBadgeGranted announces a new badge to its owner's connected devices, which
// raise the alert locally. Badge grants never go to the push outbox.
func (e *Emitter) OnBadgeGranted(ctx context.Context, g badges.Granted) {
	if err := e.publisher.PublishUser(ctx, g.UserID, EventBadgeGranted, g); err != nil {
		observability.LogAsyncOperationError(ctx, "badge_publish", err, map[string]interface{}{
			"user_id": g.UserID,
			"badge":   g.Badge.ID,
		})
	}
	observability.GlobalLogger.DebugContext(ctx, "badge announced",
		slog.String("user_id", g.UserID), slog.String("badge", g.Badge.ID))
}
