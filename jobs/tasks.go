package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueAuth is the queue for authentication event jobs.
	QueueAuth = "auth"
	// TaskTypeAuthEvent is the task type for recording auth flow events.
	TaskTypeAuthEvent = "auth:event"
)

// Auth event kinds.
const (
	AuthEventLogin   = "login"
	AuthEventSignout = "signout"
)

// AuthEventPayload describes an authentication event worth recording.
type AuthEventPayload struct {
	Kind      string    `json:"kind"`
	AccountID int64     `json:"accountId,omitempty"`
	Email     string    `json:"email,omitempty"`
	ClientID  string    `json:"clientId"`
	At        time.Time `json:"at"`
}

// NewAuthEventTask constructs an Asynq task for the event.
func NewAuthEventTask(payload AuthEventPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuthEvent, data, asynq.Queue(QueueAuth)), nil
}

// AuthEventHandler processes TaskTypeAuthEvent tasks. Recording is an audit
// convenience; a payload that fails to decode is dropped rather than retried.
func AuthEventHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuthEventPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("auth event",
			slog.String("kind", payload.Kind),
			slog.Int64("account_id", payload.AccountID),
			slog.String("client_id", payload.ClientID),
			slog.Time("at", payload.At),
		)
		return nil
	}
}
