package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyEnqueuesCompletionMail(t *testing.T) {
	emails := &fakeEmailPublisher{}
	w := &NotifyWorker{logger: nopLogger{}, emails: emails}

	jobID := uuid.New().String()
	body, err := json.Marshal(produce.JobCompleteEvent{
		JobID:        jobID,
		Email:        "user@example.org",
		CompleteTime: 1700000000,
		Link:         "https://gva.example.org/annotations/" + jobID,
	})
	require.NoError(t, err)

	assert.Equal(t, ackMessage, w.handle(context.Background(), body))

	require.Len(t, emails.messages, 1)
	mail := emails.messages[0]
	assert.Equal(t, []string{"user@example.org"}, mail.Recipients)
	assert.Contains(t, mail.Subject, jobID)
	assert.Contains(t, mail.Body, "https://gva.example.org/annotations/"+jobID)
}

func TestNotifySkipsEventWithoutRecipient(t *testing.T) {
	emails := &fakeEmailPublisher{}
	w := &NotifyWorker{logger: nopLogger{}, emails: emails}

	body, err := json.Marshal(produce.JobCompleteEvent{JobID: uuid.New().String()})
	require.NoError(t, err)

	assert.Equal(t, ackMessage, w.handle(context.Background(), body))
	assert.Empty(t, emails.messages)
}
