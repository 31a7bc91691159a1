// Package notify carries confirmation messages over RabbitMQ.  The
// publisher side is used by the reconciliation engine; the consumer drains
// the queue into a delivery sink.
package notify

import "time"

// QueueName is the durable queue confirmation messages are published to.
const QueueName = "notifications.email"

// Message is one confirmation addressed to a customer.
type Message struct {
    To       string    `json:"to"`
    Subject  string    `json:"subject"`
    Body     string    `json:"body"`
    QueuedAt time.Time `json:"queued_at,omitempty"`
}
