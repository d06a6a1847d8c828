package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/infra"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	amqp "github.com/rabbitmq/amqp091-go"
)

// outcome is what a message handler decides about its delivery. Handlers
// never ack or nack themselves; the consume loop applies the outcome, so a
// handler failure can never kill the loop or leak an unacked delivery.
type outcome int

const (
	ackMessage     outcome = iota // done, delete the message
	requeueMessage                // transient failure, redeliver later
	dropMessage                   // unprocessable, dead-letter it
)

type Logger interface {
	DebugWithContextf(ctx context.Context, format string, args ...interface{})
	InfoWithContextf(ctx context.Context, format string, args ...interface{})
	WarningWithContextf(ctx context.Context, format string, args ...interface{})
	ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{})
}

type JobStore interface {
	GetByID(jobID uuid.UUID) (*entity.Job, error)
	UpdateStatusIf(jobID uuid.UUID, expected, next entity.JobStatus, fields map[string]interface{}) error
	UpdateArchiveStatusIf(jobID uuid.UUID, expected, next entity.ArchiveStatus, fields map[string]interface{}) error
}

type ObjectStore interface {
	DownloadFile(ctx context.Context, bucket, key, localPath string) error
	UploadFile(ctx context.Context, bucket, key, localPath string) error
}

type ColdStore interface {
	InitiateRetrieval(ctx context.Context, archiveRef, description string, tier infra.RetrievalTier) error
}

type WorkflowStarter interface {
	StartArchiveExecution(ctx context.Context, name string, input infra.ArchiveExecutionInput) (string, error)
}

type ProfileFetcher interface {
	GetUserProfile(ctx context.Context, userID string) (*infra.UserProfile, error)
}

type CompletionPublisher interface {
	PublishJobComplete(ctx context.Context, event produce.JobCompleteEvent) error
}

type EmailPublisher interface {
	PublishSendEmail(ctx context.Context, message produce.SendEmailMessage) error
}

type Runner interface {
	Run(ctx context.Context, inputPath, jobID, userID, email string) error
}

// consume attaches a handler to a queue and pumps deliveries until the
// context is canceled or the channel closes.
func consume(ctx context.Context, channel *amqp.Channel, queue, tag string, handle func(context.Context, []byte) outcome) error {
	deliveries, err := channel.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				switch handle(ctx, delivery.Body) {
				case ackMessage:
					_ = delivery.Ack(false)
				case requeueMessage:
					_ = delivery.Nack(false, true)
				case dropMessage:
					_ = delivery.Nack(false, false)
				}
			}
		}
	}()

	return nil
}
