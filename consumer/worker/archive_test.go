package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/infra"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedJob(userID uuid.UUID) *entity.Job {
	jobID := uuid.New()
	return &entity.Job{
		JobID:         jobID,
		UserID:        userID,
		InputFileName: "a.vcf",
		JobStatus:     entity.JobStatusCompleted,
		ResultBucket:  "gva-results",
		ResultKey:     entity.ResultKey("annotations", userID.String(), jobID.String(), "a.vcf"),
		ArchiveStatus: entity.ArchiveStatusNone,
	}
}

func completeEventBody(t *testing.T, job *entity.Job) []byte {
	t.Helper()
	body, err := json.Marshal(produce.JobCompleteEvent{
		JobID:        job.JobID.String(),
		UserID:       job.UserID.String(),
		ResultBucket: job.ResultBucket,
		ResultKey:    job.ResultKey,
	})
	require.NoError(t, err)
	return body
}

func newTestArchiveWorker(jobs *fakeJobStore, profiles *fakeProfileFetcher, workflow *fakeWorkflowStarter) *ArchiveWorker {
	return &ArchiveWorker{
		logger:   nopLogger{},
		jobs:     jobs,
		profiles: profiles,
		workflow: workflow,
		eligible: RoleEligibility([]string{"free_user"}),
	}
}

func freeUserProfiles(userID uuid.UUID) *fakeProfileFetcher {
	return &fakeProfileFetcher{profiles: map[string]*infra.UserProfile{
		userID.String(): {UserID: userID.String(), Email: "user@example.org", Role: "free_user"},
	}}
}

func TestArchiveEligibleJobStartsWorkflow(t *testing.T) {
	userID := uuid.New()
	job := completedJob(userID)
	jobs := newFakeJobStore(job)
	workflow := &fakeWorkflowStarter{}
	w := newTestArchiveWorker(jobs, freeUserProfiles(userID), workflow)

	got := w.handleJobComplete(context.Background(), completeEventBody(t, job))
	assert.Equal(t, ackMessage, got)

	require.Len(t, workflow.names, 1)
	assert.Equal(t, job.JobID.String(), workflow.names[0])

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.ArchiveStatusInProgress, stored.ArchiveStatus)
}

func TestArchiveDuplicateEventIsIdempotent(t *testing.T) {
	userID := uuid.New()
	job := completedJob(userID)
	jobs := newFakeJobStore(job)
	workflow := &fakeWorkflowStarter{}
	w := newTestArchiveWorker(jobs, freeUserProfiles(userID), workflow)

	body := completeEventBody(t, job)
	assert.Equal(t, ackMessage, w.handleJobComplete(context.Background(), body))
	assert.Equal(t, ackMessage, w.handleJobComplete(context.Background(), body))

	assert.Len(t, workflow.names, 1)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.ArchiveStatusInProgress, stored.ArchiveStatus)
}

func TestArchiveIneligibleRoleSkipped(t *testing.T) {
	userID := uuid.New()
	job := completedJob(userID)
	jobs := newFakeJobStore(job)
	workflow := &fakeWorkflowStarter{}
	profiles := &fakeProfileFetcher{profiles: map[string]*infra.UserProfile{
		userID.String(): {UserID: userID.String(), Role: "premium_user"},
	}}
	w := newTestArchiveWorker(jobs, profiles, workflow)

	got := w.handleJobComplete(context.Background(), completeEventBody(t, job))
	assert.Equal(t, ackMessage, got)

	assert.Empty(t, workflow.names)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.ArchiveStatusNone, stored.ArchiveStatus)
}

func TestArchiveAlreadyStartedWorkflowIsNoOp(t *testing.T) {
	userID := uuid.New()
	job := completedJob(userID)
	jobs := newFakeJobStore(job)
	workflow := &fakeWorkflowStarter{err: infra.ErrWorkflowAlreadyStarted}
	w := newTestArchiveWorker(jobs, freeUserProfiles(userID), workflow)

	got := w.handleJobComplete(context.Background(), completeEventBody(t, job))
	assert.Equal(t, ackMessage, got)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.ArchiveStatusInProgress, stored.ArchiveStatus)
}

func TestArchiveWorkflowFailureRequeuesWithoutStatusWrite(t *testing.T) {
	userID := uuid.New()
	job := completedJob(userID)
	jobs := newFakeJobStore(job)
	workflow := &fakeWorkflowStarter{err: context.DeadlineExceeded}
	w := newTestArchiveWorker(jobs, freeUserProfiles(userID), workflow)

	got := w.handleJobComplete(context.Background(), completeEventBody(t, job))
	assert.Equal(t, requeueMessage, got)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.ArchiveStatusNone, stored.ArchiveStatus)
}

func TestArchiveCompletedWritesReferenceOnce(t *testing.T) {
	userID := uuid.New()
	job := completedJob(userID)
	job.ArchiveStatus = entity.ArchiveStatusInProgress
	jobs := newFakeJobStore(job)
	w := newTestArchiveWorker(jobs, freeUserProfiles(userID), &fakeWorkflowStarter{})

	body, err := json.Marshal(produce.ArchiveCompletedMessage{
		JobID:            job.JobID.String(),
		ArchiveReference: "vault/ref-1",
	})
	require.NoError(t, err)

	assert.Equal(t, ackMessage, w.handleArchiveCompleted(context.Background(), body))

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.ArchiveStatusArchived, stored.ArchiveStatus)
	assert.Equal(t, "vault/ref-1", stored.ArchiveReference)

	// A duplicate with a different reference must not overwrite the first.
	dup, err := json.Marshal(produce.ArchiveCompletedMessage{
		JobID:            job.JobID.String(),
		ArchiveReference: "vault/ref-2",
	})
	require.NoError(t, err)
	assert.Equal(t, ackMessage, w.handleArchiveCompleted(context.Background(), dup))

	stored, err = jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "vault/ref-1", stored.ArchiveReference)
}
