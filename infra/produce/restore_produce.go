package produce

import "context"

// RestoreEntry identifies one archived result to bring back.
type RestoreEntry struct {
	JobID            string `json:"job_id"`
	ArchiveReference string `json:"archive_reference"`
}

// RestoreRequestMessage asks the thaw coordinator to retrieve a user's
// archived results. One message may carry many entries; each entry is
// retried independently on the next delivery if the batch fails partway.
type RestoreRequestMessage struct {
	UserID  string         `json:"user_id"`
	Entries []RestoreEntry `json:"entries"`
}

// ArchiveCompletedMessage is published by the archival workflow once the
// result object has been moved into the cold tier.
type ArchiveCompletedMessage struct {
	JobID            string `json:"job_id"`
	ArchiveReference string `json:"archive_reference"`
}

// RestoreCompletedMessage is published once a retrieved object has been
// copied back into the hot tier.
type RestoreCompletedMessage struct {
	JobID string `json:"job_id"`
}

func (p *Produce) PublishRestoreRequest(ctx context.Context, message RestoreRequestMessage) error {
	return p.publish(ctx, "", QueueRestoreRequests, message)
}

func (p *Produce) PublishArchiveCompleted(ctx context.Context, message ArchiveCompletedMessage) error {
	return p.publish(ctx, "", QueueArchiveCompleted, message)
}

func (p *Produce) PublishRestoreCompleted(ctx context.Context, message RestoreCompletedMessage) error {
	return p.publish(ctx, "", QueueRestoreCompleted, message)
}
