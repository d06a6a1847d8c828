package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/infra"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/helixbio/gva-annotation-orchestrator/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ThawWorker brings archived results back from the cold tier. Retrieval is
// tiered: each entry walks the ordered tier list, falling through to the next
// tier only on a capacity rejection. Any other retrieval error aborts the
// entry immediately, and exhausting every tier is a terminal per-entry
// failure that leaves archive_status untouched.
type ThawWorker struct {
	logger  Logger
	jobs    JobStore
	cold    ColdStore
	channel *amqp.Channel
	tiers   []infra.RetrievalTier
}

func NewThawWorker(logger Logger, jobs JobStore, cold ColdStore, channel *amqp.Channel) *ThawWorker {
	return &ThawWorker{
		logger:  logger,
		jobs:    jobs,
		cold:    cold,
		channel: channel,
		tiers:   infra.RetrievalTiers,
	}
}

func (w *ThawWorker) Start(ctx context.Context) error {
	if err := consume(ctx, w.channel, produce.QueueRestoreRequests, "thaw-worker", w.handleRestoreRequest); err != nil {
		return err
	}
	return consume(ctx, w.channel, produce.QueueRestoreCompleted, "thaw-recorder", w.handleRestoreCompleted)
}

func (w *ThawWorker) handleRestoreRequest(ctx context.Context, body []byte) outcome {
	var msg produce.RestoreRequestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[ThawWorker] Discarding malformed restore request")
		return dropMessage
	}

	transient := false
	for _, entry := range msg.Entries {
		if err := w.restoreEntry(ctx, entry); err != nil {
			if errors.Is(err, errRetryEntry) {
				transient = true
				continue
			}
			w.logger.ErrorWithContextf(ctx, err, "[ThawWorker] Retrieval of job %s failed terminally", entry.JobID)
		}
	}
	if transient {
		// Redelivery retries every entry; already restored entries are
		// filtered out by the conditional update.
		return requeueMessage
	}
	return ackMessage
}

// errRetryEntry marks an entry failure worth retrying on redelivery, as
// opposed to a terminal one.
var errRetryEntry = errors.New("entry failed transiently")

func (w *ThawWorker) restoreEntry(ctx context.Context, entry produce.RestoreEntry) error {
	jobID, err := uuid.Parse(entry.JobID)
	if err != nil || entry.ArchiveReference == "" {
		return fmt.Errorf("restore entry missing fields: job_id=%q", entry.JobID)
	}

	job, err := w.jobs.GetByID(jobID)
	if err != nil {
		return fmt.Errorf("%w: load job %s: %v", errRetryEntry, entry.JobID, err)
	}
	if job.ArchiveStatus != entity.ArchiveStatusArchived {
		w.logger.InfoWithContextf(ctx, "[ThawWorker] Job %s archive status %s, skipping retrieval", entry.JobID, job.ArchiveStatus)
		return nil
	}

	if err := w.initiateWithFallback(ctx, entry); err != nil {
		return err
	}

	err = w.jobs.UpdateArchiveStatusIf(jobID, entity.ArchiveStatusArchived, entity.ArchiveStatusRestoring, nil)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			// A concurrent request already recorded the retrieval. The extra
			// initiation is harmless: the cold tier deduplicates restores of
			// the same object.
			return nil
		}
		return fmt.Errorf("%w: mark job %s restoring: %v", errRetryEntry, entry.JobID, err)
	}

	w.logger.InfoWithContextf(ctx, "[ThawWorker] Retrieval of job %s initiated", entry.JobID)
	return nil
}

func (w *ThawWorker) initiateWithFallback(ctx context.Context, entry produce.RestoreEntry) error {
	description := "restore job " + entry.JobID
	for _, tier := range w.tiers {
		err := w.cold.InitiateRetrieval(ctx, entry.ArchiveReference, description, tier)
		if err == nil {
			w.logger.InfoWithContextf(ctx, "[ThawWorker] Job %s retrieval accepted at %s tier", entry.JobID, tier)
			return nil
		}
		if errors.Is(err, infra.ErrInsufficientCapacity) {
			w.logger.WarningWithContextf(ctx, "[ThawWorker] No %s capacity for job %s, trying next tier", tier, entry.JobID)
			continue
		}
		return fmt.Errorf("initiate retrieval for job %s: %w", entry.JobID, err)
	}
	return fmt.Errorf("all retrieval tiers exhausted for job %s", entry.JobID)
}

func (w *ThawWorker) handleRestoreCompleted(ctx context.Context, body []byte) outcome {
	var msg produce.RestoreCompletedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[ThawWorker] Discarding malformed restore-completed message")
		return dropMessage
	}

	jobID, err := uuid.Parse(msg.JobID)
	if err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[ThawWorker] Discarding restore-completed message with bad job_id %q", msg.JobID)
		return dropMessage
	}

	err = w.jobs.UpdateArchiveStatusIf(jobID, entity.ArchiveStatusRestoring, entity.ArchiveStatusRestored, nil)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			w.logger.InfoWithContextf(ctx, "[ThawWorker] Job %s not restoring, acking duplicate", msg.JobID)
			return ackMessage
		}
		w.logger.WarningWithContextf(ctx, "[ThawWorker] Failed to record restore of job %s, requeueing: %v", msg.JobID, err)
		return requeueMessage
	}

	w.logger.InfoWithContextf(ctx, "[ThawWorker] Job %s restored to hot tier", msg.JobID)
	return ackMessage
}
