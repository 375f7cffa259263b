package auth

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/askora/askora/jobs"
)

// Notifier publishes authentication events for downstream consumers. All
// notifications are best effort: a failure never fails the triggering flow.
type Notifier interface {
	LoginRecorded(ctx context.Context, account *Account, clientID string) error
	SignedOut(ctx context.Context, clientID string) error
}

// AsynqNotifier enqueues auth events on the background job queue.
type AsynqNotifier struct {
	client *asynq.Client
}

// NewAsynqNotifier constructs a notifier over an asynq client.
func NewAsynqNotifier(client *asynq.Client) *AsynqNotifier {
	return &AsynqNotifier{client: client}
}

// LoginRecorded enqueues a login event.
func (n *AsynqNotifier) LoginRecorded(ctx context.Context, account *Account, clientID string) error {
	task, err := jobs.NewAuthEventTask(jobs.AuthEventPayload{
		Kind:      jobs.AuthEventLogin,
		AccountID: account.ID,
		Email:     account.Email,
		ClientID:  clientID,
		At:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = n.client.EnqueueContext(ctx, task)
	return err
}

// SignedOut enqueues a signout event.
func (n *AsynqNotifier) SignedOut(ctx context.Context, clientID string) error {
	task, err := jobs.NewAuthEventTask(jobs.AuthEventPayload{
		Kind:     jobs.AuthEventSignout,
		ClientID: clientID,
		At:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = n.client.EnqueueContext(ctx, task)
	return err
}

var _ Notifier = (*AsynqNotifier)(nil)
