package notify

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Consumer drains the notification queue into an append-only outbox file
// (logs/notifications.log by default) that the mail relay picks up.
type Consumer struct {
    url   string
    queue string
    dir   string
    log   *zap.Logger
}

// NewConsumer returns a Consumer writing into dir.
func NewConsumer(url, queue, dir string, log *zap.Logger) *Consumer {
    if queue == "" {
        queue = QueueName
    }
    if dir == "" {
        dir = "logs"
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{url: url, queue: queue, dir: dir, log: log.Named("notify-consumer")}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broken
// connections are re-dialled with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(d.Body); err != nil {
                c.log.Error("handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle appends one delivery to the outbox file.
func (c *Consumer) Handle(body []byte) error {
    var m Message
    if err := json.Unmarshal(body, &m); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if strings.TrimSpace(m.To) == "" {
        return ErrNoRecipient
    }
    if err := os.MkdirAll(c.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.dir, "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open outbox: %w", err)
    }
    defer f.Close()

    queued := m.QueuedAt
    if queued.IsZero() {
        queued = time.Now().UTC()
    }
    line := fmt.Sprintf("[%s] to=%q | subject=%q | body=%q\n", queued.Format(time.RFC3339), m.To, m.Subject, m.Body)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write outbox: %w", err)
    }
    return nil
}
