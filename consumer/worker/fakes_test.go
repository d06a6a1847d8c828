package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/infra"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/helixbio/gva-annotation-orchestrator/repository"
	"gorm.io/gorm"
)

type nopLogger struct{}

func (nopLogger) DebugWithContextf(context.Context, string, ...interface{})        {}
func (nopLogger) InfoWithContextf(context.Context, string, ...interface{})         {}
func (nopLogger) WarningWithContextf(context.Context, string, ...interface{})      {}
func (nopLogger) ErrorWithContextf(context.Context, error, string, ...interface{}) {}

// fakeJobStore mirrors the repository's conditional-update semantics over an
// in-memory map.
type fakeJobStore struct {
	jobs map[uuid.UUID]*entity.Job
}

func newFakeJobStore(jobs ...*entity.Job) *fakeJobStore {
	s := &fakeJobStore{jobs: make(map[uuid.UUID]*entity.Job)}
	for _, job := range jobs {
		s.jobs[job.JobID] = job
	}
	return s
}

func (s *fakeJobStore) GetByID(jobID uuid.UUID) (*entity.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *fakeJobStore) UpdateStatusIf(jobID uuid.UUID, expected, next entity.JobStatus, fields map[string]interface{}) error {
	if !expected.CanTransitionTo(next) {
		return repository.ErrInvalidTransition
	}
	job, ok := s.jobs[jobID]
	if !ok || job.JobStatus != expected {
		return repository.ErrConditionFailed
	}
	job.JobStatus = next
	applyFields(job, fields)
	return nil
}

func (s *fakeJobStore) UpdateArchiveStatusIf(jobID uuid.UUID, expected, next entity.ArchiveStatus, fields map[string]interface{}) error {
	if !expected.CanTransitionTo(next) {
		return repository.ErrInvalidTransition
	}
	job, ok := s.jobs[jobID]
	if !ok || job.ArchiveStatus != expected {
		return repository.ErrConditionFailed
	}
	job.ArchiveStatus = next
	applyFields(job, fields)
	return nil
}

func applyFields(job *entity.Job, fields map[string]interface{}) {
	for column, value := range fields {
		switch column {
		case "result_bucket":
			job.ResultBucket = value.(string)
		case "result_key":
			job.ResultKey = value.(string)
		case "log_key":
			job.LogKey = value.(string)
		case "complete_time":
			job.CompleteTime = value.(int64)
		case "error_message":
			job.ErrorMessage = value.(string)
		case "archive_reference":
			job.ArchiveReference = value.(string)
		}
	}
}

type fakeObjectStore struct {
	objects     map[string][]byte
	uploads     []string
	downloadErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) put(bucket, key string, data []byte) {
	s.objects[bucket+"/"+key] = data
}

func (s *fakeObjectStore) DownloadFile(_ context.Context, bucket, key, localPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return fmt.Errorf("%w: %s/%s", infra.ErrObjectNotFound, bucket, key)
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (s *fakeObjectStore) UploadFile(_ context.Context, bucket, key, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.put(bucket, key, data)
	s.uploads = append(s.uploads, bucket+"/"+key)
	return nil
}

// fakeRunner stands in for the annotator binary, writing the two artifacts
// beside the input the way the real executable does.
type fakeRunner struct {
	err  error
	runs int
}

func (r *fakeRunner) Run(_ context.Context, inputPath, _, _, _ string) error {
	r.runs++
	if r.err != nil {
		return r.err
	}
	dir := filepath.Dir(inputPath)
	name := filepath.Base(inputPath)
	if err := os.WriteFile(filepath.Join(dir, entity.ResultFileName(name)), []byte("annotated"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, entity.LogFileName(name)), []byte("counts"), 0o644)
}

type fakeCompletionPublisher struct {
	events []produce.JobCompleteEvent
	err    error
}

func (p *fakeCompletionPublisher) PublishJobComplete(_ context.Context, event produce.JobCompleteEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fakeEmailPublisher struct {
	messages []produce.SendEmailMessage
}

func (p *fakeEmailPublisher) PublishSendEmail(_ context.Context, message produce.SendEmailMessage) error {
	p.messages = append(p.messages, message)
	return nil
}

type fakeColdStore struct {
	tierErrs map[infra.RetrievalTier]error
	calls    []infra.RetrievalTier
}

func (s *fakeColdStore) InitiateRetrieval(_ context.Context, _, _ string, tier infra.RetrievalTier) error {
	s.calls = append(s.calls, tier)
	return s.tierErrs[tier]
}

type fakeWorkflowStarter struct {
	err   error
	names []string
}

func (s *fakeWorkflowStarter) StartArchiveExecution(_ context.Context, name string, _ infra.ArchiveExecutionInput) (string, error) {
	s.names = append(s.names, name)
	if s.err != nil {
		return "", s.err
	}
	return "execution-" + name, nil
}

type fakeProfileFetcher struct {
	profiles map[string]*infra.UserProfile
	err      error
}

func (f *fakeProfileFetcher) GetUserProfile(_ context.Context, userID string) (*infra.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, infra.ErrUserNotFound
	}
	return profile, nil
}
