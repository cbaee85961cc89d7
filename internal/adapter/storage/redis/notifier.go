package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"marketplace-settlement/internal/core/ports"
)

const withdrawalReviewChannel = "withdrawal-review"

// Notifier implements ports.NotificationDispatcher over Redis pub/sub.
// User notices go to a per-user channel consumed by the realtime gateway;
// withdrawal review events go to a shared channel consumed by the admin
// console.
type Notifier struct {
	client *goredis.Client
}

// NewNotifier creates a new Redis pub/sub notifier.
func NewNotifier(client *goredis.Client) *Notifier {
	return &Notifier{client: client}
}

type notice struct {
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
	SentAt   time.Time         `json:"sent_at"`
}

// Notify publishes a user-facing notice to the user's channel.
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, title, message string, metadata map[string]string) error {
	payload, err := json.Marshal(notice{
		Title:    title,
		Message:  message,
		Metadata: metadata,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}

	channel := "notifications:" + userID.String()
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}

// PublishWithdrawalReview publishes a pending withdrawal to the review
// channel.
func (n *Notifier) PublishWithdrawalReview(ctx context.Context, event ports.WithdrawalReviewEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode review event: %w", err)
	}
	if err := n.client.Publish(ctx, withdrawalReviewChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish review event: %w", err)
	}
	return nil
}
