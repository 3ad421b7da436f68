package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	publishTimeout = 3 * time.Second
	// Writes are synchronous, so a batch is flushed as soon as the caller's
	// messages are queued instead of waiting for the default one second tick.
	batchTimeout = 5 * time.Millisecond
)

// KafkaPublisher writes events synchronously so a failed publish is reported
// to the request that caused it.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           publishTimeout,
			BatchTimeout:           batchTimeout,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Envelope) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		value, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(evt.Key),
			Value: value,
			Time:  evt.OccurredAt,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(evt.Type)},
			},
		})
	}

	writeCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.w.WriteMessages(writeCtx, msgs...)
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
