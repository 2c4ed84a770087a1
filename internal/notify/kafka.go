package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"registrationportal/internal/errdefs"
	"registrationportal/internal/model"

	"github.com/segmentio/kafka-go"
)

const (
	// WriteMessages blocks until its batch is flushed.
	producerBatchTimeout = 10 * time.Millisecond
	producerWriteTimeout = 5 * time.Second
	dispatchTimeout      = 3 * time.Second
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
}

func NewProducer(cfg KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           producerBatchTimeout,
		WriteTimeout:           producerWriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Send(ctx context.Context, topic, key string, message interface{}) error {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// KafkaPublisher is the Dispatcher used when notification delivery runs in a
// separate notifier process.
type KafkaPublisher struct {
	producer *Producer
	topic    string
	timeout  time.Duration
}

func NewKafkaPublisher(producer *Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, timeout: dispatchTimeout}
}

// Dispatch publishes sub, giving up after the dispatch timeout so a slow or
// unreachable broker cannot stall the submission response.
func (k *KafkaPublisher) Dispatch(ctx context.Context, sub *model.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	if err := k.producer.Send(ctx, k.topic, sub.ID, sub); err != nil {
		return &errdefs.NotificationError{Recipient: sub.Field("email"), Err: err}
	}
	return nil
}

func (k *KafkaPublisher) Close(_ context.Context) error {
	return k.producer.Close()
}

// DecodeSubmission parses a relayed submission.
func DecodeSubmission(msg kafka.Message) (*model.Submission, error) {
	var sub model.Submission
	if err := json.Unmarshal(msg.Value, &sub); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("decode submission: missing id")
	}
	return &sub, nil
}
