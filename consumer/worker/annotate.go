package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/config"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/infra"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/helixbio/gva-annotation-orchestrator/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AnnotateWorker drains the annotation request queue. Delivery is at least
// once, so the conditional PENDING to RUNNING claim on the job record is
// what serializes replicas: exactly one delivery wins the claim, every other
// delivery of the same job acks without side effects.
type AnnotateWorker struct {
	logger        Logger
	jobs          JobStore
	store         ObjectStore
	runner        Runner
	events        CompletionPublisher
	channel       *amqp.Channel
	dataDir       string
	resultsBucket string
	keyPrefix     string
	domainName    string
	now           func() time.Time
}

func NewAnnotateWorker(cfg *config.EnvConfig, logger Logger, jobs JobStore, store ObjectStore, runner Runner, events CompletionPublisher, channel *amqp.Channel) *AnnotateWorker {
	return &AnnotateWorker{
		logger:        logger,
		jobs:          jobs,
		store:         store,
		runner:        runner,
		events:        events,
		channel:       channel,
		dataDir:       cfg.Annotator.DataDir,
		resultsBucket: cfg.Minio.ResultsBucket,
		keyPrefix:     cfg.Annotator.KeyPrefix,
		domainName:    cfg.DomainName,
		now:           time.Now,
	}
}

func (w *AnnotateWorker) Start(ctx context.Context) error {
	return consume(ctx, w.channel, produce.QueueAnnotationRequests, "annotate-worker", w.handle)
}

func (w *AnnotateWorker) handle(ctx context.Context, body []byte) outcome {
	var msg produce.AnnotationRequestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[AnnotateWorker] Discarding malformed annotation request")
		return dropMessage
	}

	jobID, err := uuid.Parse(msg.JobID)
	if err != nil || msg.UserID == "" || msg.InputBucket == "" || msg.InputKey == "" || msg.InputFileName == "" {
		w.logger.ErrorWithContextf(ctx, err, "[AnnotateWorker] Discarding annotation request with missing fields: job_id=%q", msg.JobID)
		return dropMessage
	}

	scratchDir := filepath.Join(w.dataDir, msg.JobID)
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[AnnotateWorker] Failed to create scratch dir for job %s", msg.JobID)
		return requeueMessage
	}
	defer os.RemoveAll(scratchDir)

	inputPath := filepath.Join(scratchDir, msg.InputFileName)
	if err := w.store.DownloadFile(ctx, msg.InputBucket, msg.InputKey, inputPath); err != nil {
		if errors.Is(err, infra.ErrObjectNotFound) {
			// The input will never appear on redelivery either.
			w.failJob(ctx, jobID, entity.JobStatusPending, err.Error())
			return ackMessage
		}
		w.logger.WarningWithContextf(ctx, "[AnnotateWorker] Transient download failure for job %s, requeueing: %v", msg.JobID, err)
		return requeueMessage
	}

	if err := w.jobs.UpdateStatusIf(jobID, entity.JobStatusPending, entity.JobStatusRunning, nil); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			w.logger.InfoWithContextf(ctx, "[AnnotateWorker] Job %s already claimed, acking duplicate delivery", msg.JobID)
			return ackMessage
		}
		w.logger.WarningWithContextf(ctx, "[AnnotateWorker] Failed to claim job %s, requeueing: %v", msg.JobID, err)
		return requeueMessage
	}

	w.logger.InfoWithContextf(ctx, "[AnnotateWorker] Claimed job %s, starting annotation", msg.JobID)

	if err := w.runner.Run(ctx, inputPath, msg.JobID, msg.UserID, msg.Email); err != nil {
		w.failJob(ctx, jobID, entity.JobStatusRunning, err.Error())
		return ackMessage
	}

	resultKey := entity.ResultKey(w.keyPrefix, msg.UserID, msg.JobID, msg.InputFileName)
	logKey := entity.LogKey(w.keyPrefix, msg.UserID, msg.JobID, msg.InputFileName)

	resultPath := filepath.Join(scratchDir, entity.ResultFileName(msg.InputFileName))
	if err := w.store.UploadFile(ctx, w.resultsBucket, resultKey, resultPath); err != nil {
		w.logger.WarningWithContextf(ctx, "[AnnotateWorker] Failed to upload result for job %s, requeueing: %v", msg.JobID, err)
		return requeueMessage
	}

	logPath := filepath.Join(scratchDir, entity.LogFileName(msg.InputFileName))
	if err := w.store.UploadFile(ctx, w.resultsBucket, logKey, logPath); err != nil {
		w.logger.WarningWithContextf(ctx, "[AnnotateWorker] Failed to upload log for job %s, requeueing: %v", msg.JobID, err)
		return requeueMessage
	}

	completeTime := w.now().Unix()
	err = w.jobs.UpdateStatusIf(jobID, entity.JobStatusRunning, entity.JobStatusCompleted, map[string]interface{}{
		"result_bucket": w.resultsBucket,
		"result_key":    resultKey,
		"log_key":       logKey,
		"complete_time": completeTime,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			w.logger.InfoWithContextf(ctx, "[AnnotateWorker] Job %s no longer RUNNING, acking", msg.JobID)
			return ackMessage
		}
		w.logger.WarningWithContextf(ctx, "[AnnotateWorker] Failed to record completion of job %s, requeueing: %v", msg.JobID, err)
		return requeueMessage
	}

	event := produce.JobCompleteEvent{
		JobID:        msg.JobID,
		UserID:       msg.UserID,
		ResultBucket: w.resultsBucket,
		ResultKey:    resultKey,
		Email:        msg.Email,
		CompleteTime: completeTime,
		Link:         fmt.Sprintf("https://%s/annotations/%s", w.domainName, msg.JobID),
	}
	if err := w.events.PublishJobComplete(ctx, event); err != nil {
		w.logger.WarningWithContextf(ctx, "[AnnotateWorker] Failed to publish completion of job %s, requeueing: %v", msg.JobID, err)
		return requeueMessage
	}

	w.logger.InfoWithContextf(ctx, "[AnnotateWorker] Job %s completed", msg.JobID)
	return ackMessage
}

// failJob records a terminal failure. A conditional-update rejection here
// means another writer already moved the job on, which is fine: ERROR must
// never overwrite a concurrent completion.
func (w *AnnotateWorker) failJob(ctx context.Context, jobID uuid.UUID, from entity.JobStatus, reason string) {
	err := w.jobs.UpdateStatusIf(jobID, from, entity.JobStatusError, map[string]interface{}{
		"error_message": reason,
	})
	if err != nil && !errors.Is(err, repository.ErrConditionFailed) {
		w.logger.ErrorWithContextf(ctx, err, "[AnnotateWorker] Failed to record error state for job %s", jobID)
		return
	}
	w.logger.InfoWithContextf(ctx, "[AnnotateWorker] Job %s marked failed: %s", jobID, reason)
}
