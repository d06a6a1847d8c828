package produce

import "context"

// SendEmailMessage hands a rendered notification to the mail relay queue.
type SendEmailMessage struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

func (p *Produce) PublishSendEmail(ctx context.Context, message SendEmailMessage) error {
	return p.publish(ctx, "", QueueSendEmail, message)
}
