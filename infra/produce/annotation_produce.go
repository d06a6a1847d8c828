package produce

import "context"

// AnnotationRequestMessage enqueues one submitted job for the worker pool.
// Delivery is at least once; the worker's claim on the job record decides
// which delivery wins.
type AnnotationRequestMessage struct {
	JobID         string `json:"job_id"`
	UserID        string `json:"user_id"`
	InputFileName string `json:"input_file_name"`
	InputBucket   string `json:"input_bucket"`
	InputKey      string `json:"input_key"`
	Email         string `json:"email"`
}

func (p *Produce) PublishAnnotationRequest(ctx context.Context, message AnnotationRequestMessage) error {
	return p.publish(ctx, "", QueueAnnotationRequests, message)
}
