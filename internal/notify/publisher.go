package notify

import (
    "context"
    "encoding/json"
    "errors"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// ErrNoRecipient is returned for a message without an address.
var ErrNoRecipient = errors.New("notify: message has no recipient")

// Publisher publishes messages to a durable RabbitMQ queue.  Each Send
// opens its own connection; failures are logged and returned so the caller
// can decide to ignore them.  Messages are marked as persistent.
type Publisher struct {
    url   string
    queue string
    log   *zap.Logger
    now   func() time.Time
}

// NewPublisher returns a Publisher for the broker at url.  An empty queue
// means QueueName.
func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
    if queue == "" {
        queue = QueueName
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, queue: queue, log: log.Named("notify"), now: func() time.Time { return time.Now().UTC() }}
}

// Send publishes msg.
func (p *Publisher) Send(ctx context.Context, msg Message) error {
    if strings.TrimSpace(msg.To) == "" {
        return ErrNoRecipient
    }
    if msg.QueuedAt.IsZero() {
        msg.QueuedAt = p.now()
    }
    body, err := json.Marshal(msg)
    if err != nil {
        return err
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("rabbitmq dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        p.log.Warn("rabbitmq queue declare failed", zap.String("queue", p.queue), zap.Error(err))
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    msg.QueuedAt,
        Body:         body,
    }
    // default exchange, routing key = queue name
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        p.log.Warn("rabbitmq publish failed", zap.String("queue", p.queue), zap.Error(err))
        return err
    }
    p.log.Debug("notification queued", zap.String("to", msg.To), zap.String("subject", msg.Subject))
    return nil
}
