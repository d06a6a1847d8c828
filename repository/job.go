package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"gorm.io/gorm"
)

var (
	// ErrConditionFailed is returned when a conditional update finds the
	// guarded column not holding the expected value. Under concurrent or
	// duplicate delivery this is an expected outcome, not a fault.
	ErrConditionFailed = errors.New("conditional update rejected: stored value does not match expected value")

	// ErrInvalidTransition is returned before any SQL runs when the requested
	// transition would skip or regress the lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *entity.Job) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(jobID uuid.UUID) (*entity.Job, error) {
	var job entity.Job
	err := r.db.Where("job_id = ?", jobID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) ListByUserID(userID uuid.UUID) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.Where("user_id = ?", userID).Order("submit_time DESC").Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *JobRepository) ListByUserIDAndArchiveStatus(userID uuid.UUID, status entity.ArchiveStatus) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.Where("user_id = ? AND archive_status = ?", userID, status).Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateStatusIf is the compare-and-set primitive guarding job_status. The
// update applies extra fields together with the transition, and succeeds only
// if the stored status still equals expected; RowsAffected == 0 means another
// writer got there first and yields ErrConditionFailed with no side effects.
func (r *JobRepository) UpdateStatusIf(jobID uuid.UUID, expected, next entity.JobStatus, fields map[string]interface{}) error {
	if !expected.CanTransitionTo(next) {
		return ErrInvalidTransition
	}

	updates := map[string]interface{}{"job_status": next}
	for column, value := range fields {
		updates[column] = value
	}

	res := r.db.Model(&entity.Job{}).
		Where("job_id = ? AND job_status = ?", jobID, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

// UpdateArchiveStatusIf is the compare-and-set primitive guarding
// archive_status. The archive reference is written exactly once, by the
// IN_PROGRESS -> ARCHIVED caller, and is immutable afterwards.
func (r *JobRepository) UpdateArchiveStatusIf(jobID uuid.UUID, expected, next entity.ArchiveStatus, fields map[string]interface{}) error {
	if !expected.CanTransitionTo(next) {
		return ErrInvalidTransition
	}

	updates := map[string]interface{}{"archive_status": next}
	for column, value := range fields {
		updates[column] = value
	}

	res := r.db.Model(&entity.Job{}).
		Where("job_id = ? AND archive_status = ?", jobID, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}
