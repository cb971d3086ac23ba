package redis

import (
	"context"
	"encoding/json"

	"quiz-session-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes session events on quiz:session:{id}:events for the
// notification service to fan out.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Notify(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, EventsChannel(event.SessionID), data).Err()
}

// EventsChannel names the pub/sub channel of a session.
func EventsChannel(sessionID string) string {
	return "quiz:session:" + sessionID + ":events"
}
