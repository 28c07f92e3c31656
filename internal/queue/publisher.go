package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RundownQueueName is the durable queue change events are routed to.
const RundownQueueName = "rundown.changed"

// maxDialTimeout caps the broker handshake when ctx has no deadline.
const maxDialTimeout = 10 * time.Second

// Publisher sends RundownEvents to RabbitMQ.  It dials per publish:
// events are infrequent and a broker outage must never wedge a request.
type Publisher struct {
	url string
	log logrus.FieldLogger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: log}
}

// Publish declares the queue (idempotent) and sends ev as a persistent
// JSON message.  Errors are logged and returned so the caller can choose
// to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev RundownEvent) error {
	log := p.log.WithFields(logrus.Fields{"event_id": ev.EventID, "type": ev.Type, "rundown_id": ev.RundownID})

	conn, err := amqp.DialConfig(p.url, dialConfig(ctx))
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(RundownQueueName, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	pub, err := encode(ev)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", RundownQueueName, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// dialConfig bounds connect and handshake by ctx's deadline.
func dialConfig(ctx context.Context) amqp.Config {
	return amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout(ctx)),
	}
}

func dialTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return maxDialTimeout
	}
	left := time.Until(deadline)
	if left <= 0 {
		return time.Millisecond
	}
	return min(left, maxDialTimeout)
}

func encode(ev RundownEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RundownEvent) error { return nil }
