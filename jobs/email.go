package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// EmailJob processes TaskTypeSendEmail tasks.
type EmailJob struct {
	mailer Mailer
	logger *slog.Logger
}

// NewEmailJob constructs an EmailJob.
func NewEmailJob(mailer Mailer, logger *slog.Logger) *EmailJob {
	return &EmailJob{mailer: mailer, logger: logger}
}

// Handle renders and sends one email. A malformed payload skips retrying;
// delivery errors are returned so Asynq retries up to the task's limit.
func (j *EmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	body, err := RenderEmail(payload.Template, payload.Data)
	if err != nil {
		j.logger.Error("render email", slog.Any("error", err), slog.String("template", payload.Template))
		return asynq.SkipRetry
	}
	if err := j.mailer.Send(payload.To, payload.Subject, body); err != nil {
		j.logger.Warn("send email", slog.Any("error", err), slog.String("to", payload.To))
		return err
	}
	j.logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}
