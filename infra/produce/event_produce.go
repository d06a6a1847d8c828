package produce

import "context"

// JobCompleteEvent announces a finished annotation on the job events
// exchange. The notifier and the archival coordinator each consume their own
// bound queue.
type JobCompleteEvent struct {
	JobID        string `json:"job_id"`
	UserID       string `json:"user_id"`
	ResultBucket string `json:"result_bucket"`
	ResultKey    string `json:"result_key"`
	Email        string `json:"email"`
	CompleteTime int64  `json:"complete_time"`
	Link         string `json:"link"`
}

func (p *Produce) PublishJobComplete(ctx context.Context, event JobCompleteEvent) error {
	return p.publish(ctx, ExchangeJobEvents, "", event)
}
