package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/config"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/infra"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/helixbio/gva-annotation-orchestrator/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EligibilityFunc decides whether a completed job's result should be moved
// to the cold tier, based on the owner's profile.
type EligibilityFunc func(profile *infra.UserProfile) bool

// RoleEligibility archives results owned by accounts in one of the given
// roles.
func RoleEligibility(roles []string) EligibilityFunc {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return func(profile *infra.UserProfile) bool {
		_, ok := set[profile.Role]
		return ok
	}
}

// ArchiveWorker moves eligible completed results into the cold tier. It
// consumes its own binding of the job events exchange, and separately records
// completions reported back by the archival workflow. Every step is
// idempotent under duplicate delivery: the archive_status conditional update
// is the only gate.
type ArchiveWorker struct {
	logger   Logger
	jobs     JobStore
	profiles ProfileFetcher
	workflow WorkflowStarter
	channel  *amqp.Channel
	eligible EligibilityFunc
}

func NewArchiveWorker(cfg *config.EnvConfig, logger Logger, jobs JobStore, profiles ProfileFetcher, workflow WorkflowStarter, channel *amqp.Channel) *ArchiveWorker {
	return &ArchiveWorker{
		logger:   logger,
		jobs:     jobs,
		profiles: profiles,
		workflow: workflow,
		channel:  channel,
		eligible: RoleEligibility(cfg.Archive.EligibleRoles),
	}
}

func (w *ArchiveWorker) Start(ctx context.Context) error {
	if err := consume(ctx, w.channel, produce.QueueArchiveJobComplete, "archive-worker", w.handleJobComplete); err != nil {
		return err
	}
	return consume(ctx, w.channel, produce.QueueArchiveCompleted, "archive-recorder", w.handleArchiveCompleted)
}

func (w *ArchiveWorker) handleJobComplete(ctx context.Context, body []byte) outcome {
	var event produce.JobCompleteEvent
	if err := json.Unmarshal(body, &event); err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[ArchiveWorker] Discarding malformed completion event")
		return dropMessage
	}

	jobID, err := uuid.Parse(event.JobID)
	if err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[ArchiveWorker] Discarding completion event with bad job_id %q", event.JobID)
		return dropMessage
	}

	profile, err := w.profiles.GetUserProfile(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, infra.ErrUserNotFound) {
			w.logger.WarningWithContextf(ctx, "[ArchiveWorker] Owner %s of job %s not found, skipping archival", event.UserID, event.JobID)
			return ackMessage
		}
		w.logger.WarningWithContextf(ctx, "[ArchiveWorker] Profile lookup failed for job %s, requeueing: %v", event.JobID, err)
		return requeueMessage
	}
	if !w.eligible(profile) {
		w.logger.DebugWithContextf(ctx, "[ArchiveWorker] Job %s owner role %s not eligible for archival", event.JobID, profile.Role)
		return ackMessage
	}

	job, err := w.jobs.GetByID(jobID)
	if err != nil {
		w.logger.WarningWithContextf(ctx, "[ArchiveWorker] Failed to load job %s, requeueing: %v", event.JobID, err)
		return requeueMessage
	}
	if job.ArchiveStatus != entity.ArchiveStatusNone {
		w.logger.InfoWithContextf(ctx, "[ArchiveWorker] Job %s archive already %s, acking duplicate", event.JobID, job.ArchiveStatus)
		return ackMessage
	}

	// The execution is named by the job id so the engine deduplicates
	// re-triggers of the same job.
	_, err = w.workflow.StartArchiveExecution(ctx, event.JobID, infra.ArchiveExecutionInput{
		JobID:        event.JobID,
		ResultBucket: job.ResultBucket,
		ResultKey:    job.ResultKey,
	})
	if err != nil && !errors.Is(err, infra.ErrWorkflowAlreadyStarted) {
		w.logger.WarningWithContextf(ctx, "[ArchiveWorker] Failed to start archival of job %s, requeueing: %v", event.JobID, err)
		return requeueMessage
	}

	err = w.jobs.UpdateArchiveStatusIf(jobID, entity.ArchiveStatusNone, entity.ArchiveStatusInProgress, nil)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return ackMessage
		}
		w.logger.WarningWithContextf(ctx, "[ArchiveWorker] Failed to mark job %s archival in progress, requeueing: %v", event.JobID, err)
		return requeueMessage
	}

	w.logger.InfoWithContextf(ctx, "[ArchiveWorker] Archival of job %s started", event.JobID)
	return ackMessage
}

func (w *ArchiveWorker) handleArchiveCompleted(ctx context.Context, body []byte) outcome {
	var msg produce.ArchiveCompletedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[ArchiveWorker] Discarding malformed archive-completed message")
		return dropMessage
	}

	jobID, err := uuid.Parse(msg.JobID)
	if err != nil || msg.ArchiveReference == "" {
		w.logger.ErrorWithContextf(ctx, err, "[ArchiveWorker] Discarding archive-completed message with missing fields: job_id=%q", msg.JobID)
		return dropMessage
	}

	// The archive reference is written here, exactly once.
	err = w.jobs.UpdateArchiveStatusIf(jobID, entity.ArchiveStatusInProgress, entity.ArchiveStatusArchived, map[string]interface{}{
		"archive_reference": msg.ArchiveReference,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			w.logger.InfoWithContextf(ctx, "[ArchiveWorker] Job %s not awaiting archival, acking duplicate", msg.JobID)
			return ackMessage
		}
		w.logger.WarningWithContextf(ctx, "[ArchiveWorker] Failed to record archival of job %s, requeueing: %v", msg.JobID, err)
		return requeueMessage
	}

	w.logger.InfoWithContextf(ctx, "[ArchiveWorker] Job %s archived as %s", msg.JobID, msg.ArchiveReference)
	return ackMessage
}
