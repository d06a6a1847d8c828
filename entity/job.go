package entity

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusError     JobStatus = "ERROR"
)

type ArchiveStatus string

const (
	ArchiveStatusNone       ArchiveStatus = "NONE"
	ArchiveStatusInProgress ArchiveStatus = "IN_PROGRESS"
	ArchiveStatusArchived   ArchiveStatus = "ARCHIVED"
	ArchiveStatusRestoring  ArchiveStatus = "RESTORING"
	ArchiveStatusRestored   ArchiveStatus = "RESTORED"
)

// Job is the single source of truth for an annotation request's lifecycle.
// All writes to JobStatus and ArchiveStatus go through the repository's
// conditional-update primitive.
type Job struct {
	JobID            uuid.UUID      `json:"job_id" gorm:"type:uuid;primaryKey;column:job_id"`
	UserID           uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	InputFileName    string         `json:"input_file_name" gorm:"not null"`
	InputBucket      string         `json:"input_bucket" gorm:"not null"`
	InputKey         string         `json:"input_key" gorm:"not null"`
	Parameters       datatypes.JSON `json:"parameters,omitempty"`
	SubmitTime       int64          `json:"submit_time" gorm:"not null"`
	JobStatus        JobStatus      `json:"job_status" gorm:"not null;index"`
	ResultBucket     string         `json:"result_bucket,omitempty"`
	ResultKey        string         `json:"result_key,omitempty"`
	LogKey           string         `json:"log_key,omitempty"`
	CompleteTime     int64          `json:"complete_time,omitempty"`
	ArchiveStatus    ArchiveStatus  `json:"archive_status" gorm:"not null;default:NONE"`
	ArchiveReference string         `json:"archive_reference,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty" gorm:"type:text"`
}

// Transitions are strictly forward. ERROR is reachable from any live state,
// and nothing leaves ERROR.
var jobStatusTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:   {JobStatusRunning, JobStatusError},
	JobStatusRunning:   {JobStatusCompleted, JobStatusError},
	JobStatusCompleted: {JobStatusError},
	JobStatusError:     {},
}

var archiveStatusTransitions = map[ArchiveStatus][]ArchiveStatus{
	ArchiveStatusNone:       {ArchiveStatusInProgress},
	ArchiveStatusInProgress: {ArchiveStatusArchived},
	ArchiveStatusArchived:   {ArchiveStatusRestoring},
	ArchiveStatusRestoring:  {ArchiveStatusRestored},
	ArchiveStatusRestored:   {},
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ArchiveStatus) CanTransitionTo(next ArchiveStatus) bool {
	for _, allowed := range archiveStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
