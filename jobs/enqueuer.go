package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer pushes background tasks onto the queue. Callers treat every
// enqueue as fire-and-forget.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer for the given Redis address.
func NewEnqueuer(redisAddr string) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Close releases the underlying queue connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// EnqueueLoginAlert schedules a login alert email.
func (e *Enqueuer) EnqueueLoginAlert(ctx context.Context, to, name string, at time.Time) error {
	task, err := NewSendEmailTask(SendEmailPayload{
		To:       to,
		Subject:  "Login Alert",
		Template: TemplateLoginAlert,
		Data: map[string]any{
			"name":    name,
			"loginAt": at.Format(time.RFC1123),
		},
	})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	return err
}
