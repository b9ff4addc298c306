package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
)

const headerEventType = "event_type"

// Publisher hands domain events to the bus. Publish returns once the broker
// has acknowledged the message or the producer has given up retrying.
type Publisher interface {
	Publish(ctx context.Context, eventType EventType, key string, payload interface{}) error
	Close() error
}

type KafkaConfig struct {
	Brokers       []string
	ClientID      string
	InitialOffset string
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	source   string
	logger   *zap.Logger
	metrics  metrics.Recorder
}

func NewKafkaPublisher(cfg KafkaConfig, source string, logger *zap.Logger, m metrics.Recorder) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	if cfg.ClientID != "" {
		config.ClientID = cfg.ClientID
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return NewPublisherWithProducer(producer, source, logger, m), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, source string, logger *zap.Logger, m metrics.Recorder) *KafkaPublisher {
	if m == nil {
		m = metrics.Nop{}
	}
	return &KafkaPublisher{
		producer: producer,
		source:   source,
		logger:   logger,
		metrics:  m,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType EventType, key string, payload interface{}) error {
	env, err := NewEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}

	err = p.publish(ctx, env, key)
	p.metrics.EventPublished(eventType.Topic(), err)
	return err
}

func (p *KafkaPublisher) publish(ctx context.Context, env Envelope, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: env.EventType.Topic(),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(env.EventType)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debug("Event published",
		zap.String("event_id", env.EventID),
		zap.String("topic", msg.Topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
