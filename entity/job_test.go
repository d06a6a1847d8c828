package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitionsAreForwardOnly(t *testing.T) {
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusRunning))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusCompleted))

	// ERROR is reachable from every live state.
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusError))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusError))
	assert.True(t, JobStatusCompleted.CanTransitionTo(JobStatusError))

	// No skips.
	assert.False(t, JobStatusPending.CanTransitionTo(JobStatusCompleted))

	// No regressions.
	assert.False(t, JobStatusRunning.CanTransitionTo(JobStatusPending))
	assert.False(t, JobStatusCompleted.CanTransitionTo(JobStatusRunning))
	assert.False(t, JobStatusCompleted.CanTransitionTo(JobStatusPending))

	// Nothing leaves ERROR.
	assert.False(t, JobStatusError.CanTransitionTo(JobStatusPending))
	assert.False(t, JobStatusError.CanTransitionTo(JobStatusRunning))
	assert.False(t, JobStatusError.CanTransitionTo(JobStatusCompleted))

	// No self loops.
	assert.False(t, JobStatusRunning.CanTransitionTo(JobStatusRunning))
}

func TestArchiveStatusTransitionsFollowTheChain(t *testing.T) {
	assert.True(t, ArchiveStatusNone.CanTransitionTo(ArchiveStatusInProgress))
	assert.True(t, ArchiveStatusInProgress.CanTransitionTo(ArchiveStatusArchived))
	assert.True(t, ArchiveStatusArchived.CanTransitionTo(ArchiveStatusRestoring))
	assert.True(t, ArchiveStatusRestoring.CanTransitionTo(ArchiveStatusRestored))

	assert.False(t, ArchiveStatusNone.CanTransitionTo(ArchiveStatusArchived))
	assert.False(t, ArchiveStatusArchived.CanTransitionTo(ArchiveStatusRestored))
	assert.False(t, ArchiveStatusArchived.CanTransitionTo(ArchiveStatusNone))
	assert.False(t, ArchiveStatusRestored.CanTransitionTo(ArchiveStatusRestoring))
}
