package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnnotateWorker(t *testing.T, jobs *fakeJobStore, store *fakeObjectStore, runner *fakeRunner, events *fakeCompletionPublisher) *AnnotateWorker {
	t.Helper()
	return &AnnotateWorker{
		logger:        nopLogger{},
		jobs:          jobs,
		store:         store,
		runner:        runner,
		events:        events,
		dataDir:       t.TempDir(),
		resultsBucket: "gva-results",
		keyPrefix:     "annotations",
		domainName:    "gva.example.org",
		now:           func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func pendingJob(userID uuid.UUID, fileName string) *entity.Job {
	jobID := uuid.New()
	return &entity.Job{
		JobID:         jobID,
		UserID:        userID,
		InputFileName: fileName,
		InputBucket:   "gva-inputs",
		InputKey:      entity.ObjectKey("annotations", userID.String(), jobID.String(), fileName),
		SubmitTime:    1699999000,
		JobStatus:     entity.JobStatusPending,
		ArchiveStatus: entity.ArchiveStatusNone,
	}
}

func requestBody(t *testing.T, job *entity.Job) []byte {
	t.Helper()
	body, err := json.Marshal(produce.AnnotationRequestMessage{
		JobID:         job.JobID.String(),
		UserID:        job.UserID.String(),
		InputFileName: job.InputFileName,
		InputBucket:   job.InputBucket,
		InputKey:      job.InputKey,
		Email:         "user@example.org",
	})
	require.NoError(t, err)
	return body
}

func TestAnnotateHappyPath(t *testing.T) {
	userID := uuid.New()
	job := pendingJob(userID, "a.vcf")
	jobs := newFakeJobStore(job)

	store := newFakeObjectStore()
	store.put(job.InputBucket, job.InputKey, []byte("##fileformat=VCFv4.2\n"))

	runner := &fakeRunner{}
	events := &fakeCompletionPublisher{}
	w := newTestAnnotateWorker(t, jobs, store, runner, events)

	got := w.handle(context.Background(), requestBody(t, job))
	assert.Equal(t, ackMessage, got)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, stored.JobStatus)
	assert.Equal(t, "gva-results", stored.ResultBucket)
	assert.Equal(t, entity.ResultKey("annotations", userID.String(), job.JobID.String(), "a.vcf"), stored.ResultKey)
	assert.Equal(t, entity.LogKey("annotations", userID.String(), job.JobID.String(), "a.vcf"), stored.LogKey)
	assert.Equal(t, int64(1700000000), stored.CompleteTime)

	assert.Contains(t, stored.ResultKey, job.JobID.String()+"~a.annot.vcf")
	assert.Contains(t, stored.LogKey, job.JobID.String()+"~a.vcf.count.log")
	assert.Len(t, store.uploads, 2)

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, job.JobID.String(), event.JobID)
	assert.Equal(t, "user@example.org", event.Email)
	assert.Equal(t, "https://gva.example.org/annotations/"+job.JobID.String(), event.Link)
}

func TestAnnotateDuplicateDeliverySingleClaim(t *testing.T) {
	userID := uuid.New()
	job := pendingJob(userID, "a.vcf")
	jobs := newFakeJobStore(job)

	store := newFakeObjectStore()
	store.put(job.InputBucket, job.InputKey, []byte("data\n"))

	runner := &fakeRunner{}
	events := &fakeCompletionPublisher{}
	w := newTestAnnotateWorker(t, jobs, store, runner, events)

	body := requestBody(t, job)
	assert.Equal(t, ackMessage, w.handle(context.Background(), body))
	assert.Equal(t, ackMessage, w.handle(context.Background(), body))

	assert.Equal(t, 1, runner.runs)
	assert.Len(t, events.events, 1)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, stored.JobStatus)
}

func TestAnnotateMissingInputIsTerminal(t *testing.T) {
	userID := uuid.New()
	job := pendingJob(userID, "a.vcf")
	jobs := newFakeJobStore(job)

	store := newFakeObjectStore()
	runner := &fakeRunner{}
	events := &fakeCompletionPublisher{}
	w := newTestAnnotateWorker(t, jobs, store, runner, events)

	got := w.handle(context.Background(), requestBody(t, job))
	assert.Equal(t, ackMessage, got)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusError, stored.JobStatus)
	assert.NotEmpty(t, stored.ErrorMessage)
	assert.Equal(t, 0, runner.runs)
	assert.Empty(t, events.events)
}

func TestAnnotateTimeoutIsTerminal(t *testing.T) {
	userID := uuid.New()
	job := pendingJob(userID, "a.vcf")
	jobs := newFakeJobStore(job)

	store := newFakeObjectStore()
	store.put(job.InputBucket, job.InputKey, []byte("data\n"))

	runner := &fakeRunner{err: ErrAnnotationTimeout}
	events := &fakeCompletionPublisher{}
	w := newTestAnnotateWorker(t, jobs, store, runner, events)

	got := w.handle(context.Background(), requestBody(t, job))
	assert.Equal(t, ackMessage, got)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusError, stored.JobStatus)
	assert.Contains(t, stored.ErrorMessage, "deadline")
	assert.Empty(t, events.events)
}

func TestAnnotateMalformedMessageIsDropped(t *testing.T) {
	jobs := newFakeJobStore()
	store := newFakeObjectStore()
	runner := &fakeRunner{}
	events := &fakeCompletionPublisher{}
	w := newTestAnnotateWorker(t, jobs, store, runner, events)

	assert.Equal(t, dropMessage, w.handle(context.Background(), []byte("not json")))
	assert.Equal(t, dropMessage, w.handle(context.Background(), []byte(`{"job_id":"nope"}`)))
	assert.Equal(t, 0, runner.runs)
}

func TestAnnotateTransientDownloadFailureRequeues(t *testing.T) {
	userID := uuid.New()
	job := pendingJob(userID, "a.vcf")
	jobs := newFakeJobStore(job)

	store := newFakeObjectStore()
	store.downloadErr = context.DeadlineExceeded

	runner := &fakeRunner{}
	events := &fakeCompletionPublisher{}
	w := newTestAnnotateWorker(t, jobs, store, runner, events)

	got := w.handle(context.Background(), requestBody(t, job))
	assert.Equal(t, requeueMessage, got)

	stored, err := jobs.GetByID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, stored.JobStatus)
}
