package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	amqp "github.com/rabbitmq/amqp091-go"
)

// NotifyWorker turns completion events into outbound mail. Delivery itself
// is the external mailer's job; this worker only renders and enqueues.
type NotifyWorker struct {
	logger  Logger
	emails  EmailPublisher
	channel *amqp.Channel
}

func NewNotifyWorker(logger Logger, emails EmailPublisher, channel *amqp.Channel) *NotifyWorker {
	return &NotifyWorker{
		logger:  logger,
		emails:  emails,
		channel: channel,
	}
}

func (w *NotifyWorker) Start(ctx context.Context) error {
	return consume(ctx, w.channel, produce.QueueNotifyJobComplete, "notify-worker", w.handle)
}

func (w *NotifyWorker) handle(ctx context.Context, body []byte) outcome {
	var event produce.JobCompleteEvent
	if err := json.Unmarshal(body, &event); err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[NotifyWorker] Discarding malformed completion event")
		return dropMessage
	}
	if event.Email == "" {
		w.logger.WarningWithContextf(ctx, "[NotifyWorker] Completion event for job %s has no recipient, skipping", event.JobID)
		return ackMessage
	}

	completedAt := time.Unix(event.CompleteTime, 0).UTC().Format("2006-01-02 15:04:05 MST")
	mail := produce.SendEmailMessage{
		Recipients: []string{event.Email},
		Subject:    fmt.Sprintf("Results available for job %s", event.JobID),
		Body: fmt.Sprintf("Your annotation job completed at %s. Click here to view job details and results: %s",
			completedAt, event.Link),
	}

	if err := w.emails.PublishSendEmail(ctx, mail); err != nil {
		w.logger.WarningWithContextf(ctx, "[NotifyWorker] Failed to enqueue mail for job %s, requeueing: %v", event.JobID, err)
		return requeueMessage
	}

	w.logger.InfoWithContextf(ctx, "[NotifyWorker] Completion mail for job %s enqueued to %s", event.JobID, event.Email)
	return ackMessage
}
