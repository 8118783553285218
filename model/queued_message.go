package model

import "time"

// QueuedMessage is a publish attempt parked in the offline queue.
// It is owned exclusively by the queue: created when a publish cannot be
// completed, destroyed on successful flush or drop-oldest eviction.
type QueuedMessage struct {
	Topic    string       `json:"topic"`
	Envelope SyncEnvelope `json:"envelope"`
	QoS      byte         `json:"qos"`
	Retain   bool         `json:"retain"`
	QueuedAt time.Time    `json:"queuedAt"`
}

// NewQueuedMessage creates a queued message for later delivery.
func NewQueuedMessage(topic string, envelope SyncEnvelope, qos byte, retain bool) QueuedMessage {
	return QueuedMessage{
		Topic:    topic,
		Envelope: envelope,
		QoS:      qos,
		Retain:   retain,
		QueuedAt: time.Now(),
	}
}

// Age returns how long the message has been waiting in the queue.
func (m QueuedMessage) Age() time.Duration {
	return time.Since(m.QueuedAt)
}
