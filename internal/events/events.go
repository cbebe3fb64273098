// Package events publishes workout lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/and161185/fittrack/internal/model"
)

// Event types.
const (
	WorkoutCreated = "workout.created"
	WorkoutUpdated = "workout.updated"
	WorkoutDeleted = "workout.deleted"
)

// Event is one workout change. Workout is nil for deletions.
type Event struct {
	Type       string         `json:"type"`
	UserID     int64          `json:"userId"`
	WorkoutID  int64          `json:"workoutId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Workout    *model.Workout `json:"workout,omitempty"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes events to a single topic keyed by user id, so one user's
// events stay ordered within a partition.
type Kafka struct {
	w messageWriter
}

// NewKafka creates a synchronous writer for topic.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}}
}

// Publish encodes e as JSON and writes it.
func (k *Kafka) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(strconv.FormatInt(e.UserID, 10)),
		Value:   value,
		Time:    e.OccurredAt,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(e.Type)}},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", e.Type, err)
	}
	return nil
}

// Close flushes and releases the writer.
func (k *Kafka) Close() error { return k.w.Close() }
