package produce

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// Work queues.
	QueueAnnotationRequests = "gva.annotation.requests"
	QueueRestoreRequests    = "gva.restore.requests"
	QueueArchiveCompleted   = "gva.archive.completed"
	QueueRestoreCompleted   = "gva.restore.completed"
	QueueSendEmail          = "gva.email.send"

	// Job completion fans out to every interested consumer.
	ExchangeJobEvents       = "gva.job.events"
	QueueNotifyJobComplete  = "gva.notify.job-complete"
	QueueArchiveJobComplete = "gva.archive.job-complete"

	// Messages nacked without requeue land here for inspection.
	ExchangeDeadLetter = "gva.dlx"
	QueueDeadLetter    = "gva.dead-letter"
)

type Produce struct {
	channel *amqp.Channel
}

func InitProduce(channel *amqp.Channel) *Produce {
	p := &Produce{channel: channel}
	if err := p.declareTopology(); err != nil {
		log.Fatalf("RabbitMQ topology declaration failed: %v", err)
	}
	return p
}

func (p *Produce) declareTopology() error {
	if err := p.channel.ExchangeDeclare(ExchangeDeadLetter, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := p.channel.QueueDeclare(QueueDeadLetter, true, false, false, false, nil); err != nil {
		return err
	}
	if err := p.channel.QueueBind(QueueDeadLetter, "", ExchangeDeadLetter, false, nil); err != nil {
		return err
	}

	workQueueArgs := amqp.Table{"x-dead-letter-exchange": ExchangeDeadLetter}
	for _, queue := range []string{
		QueueAnnotationRequests,
		QueueRestoreRequests,
		QueueArchiveCompleted,
		QueueRestoreCompleted,
		QueueSendEmail,
		QueueNotifyJobComplete,
		QueueArchiveJobComplete,
	} {
		if _, err := p.channel.QueueDeclare(queue, true, false, false, false, workQueueArgs); err != nil {
			return err
		}
	}

	if err := p.channel.ExchangeDeclare(ExchangeJobEvents, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	for _, queue := range []string{QueueNotifyJobComplete, QueueArchiveJobComplete} {
		if err := p.channel.QueueBind(queue, "", ExchangeJobEvents, false, nil); err != nil {
			return err
		}
	}

	return nil
}

func (p *Produce) publish(ctx context.Context, exchange, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}
