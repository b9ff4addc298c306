package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
)

const rejoinBackoff = time.Second

// Handler processes one event. A returned error is logged; the message is
// still committed.
type Handler func(ctx context.Context, env Envelope) error

// GroupID names the consumer group a service uses for a topic, so every
// service gets its own copy of each event.
func GroupID(service, topic string) string {
	return service + "." + topic
}

// NewConsumerGroup connects a consumer group. InitialOffset "newest" starts
// a fresh group at the end of the topic; anything else starts at the oldest
// retained message.
func NewConsumerGroup(cfg KafkaConfig, groupID string) (sarama.ConsumerGroup, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = initialOffset(cfg.InitialOffset)
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRange(),
	}
	if cfg.ClientID != "" {
		config.ClientID = cfg.ClientID
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return group, nil
}

func initialOffset(s string) int64 {
	if strings.EqualFold(s, "newest") {
		return sarama.OffsetNewest
	}
	return sarama.OffsetOldest
}

// Subscriber feeds one topic to one handler for the life of the process.
type Subscriber struct {
	group   sarama.ConsumerGroup
	topic   string
	handler Handler
	logger  *zap.Logger
	metrics metrics.Recorder
}

func NewSubscriber(group sarama.ConsumerGroup, topic string, handler Handler, logger *zap.Logger, m metrics.Recorder) *Subscriber {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Subscriber{
		group:   group,
		topic:   topic,
		handler: handler,
		logger:  logger.With(zap.String("topic", topic)),
		metrics: m,
	}
}

// Run consumes until ctx is cancelled or the group is closed. Consume
// returns on every rebalance, so the loop re-joins.
func (s *Subscriber) Run(ctx context.Context) error {
	go s.logErrors(ctx)

	h := &claimHandler{
		topic:   s.topic,
		handler: s.handler,
		logger:  s.logger,
		metrics: s.metrics,
	}

	s.logger.Info("Subscriber started")
	for {
		err := s.group.Consume(ctx, []string{s.topic}, h)
		if ctx.Err() != nil {
			s.logger.Info("Subscriber stopped")
			return nil
		}
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				s.logger.Info("Consumer group closed")
				return nil
			}
			s.logger.Error("Consumer group session failed", zap.Error(err))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(rejoinBackoff):
			}
		}
	}
}

func (s *Subscriber) Close() error {
	return s.group.Close()
}

func (s *Subscriber) logErrors(ctx context.Context) {
	errs := s.group.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			s.logger.Error("Consumer error", zap.Error(err))
		}
	}
}

type claimHandler struct {
	topic   string
	handler Handler
	logger  *zap.Logger
	metrics metrics.Recorder
}

func (h *claimHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Debug("Consumer group session set up",
		zap.String("member_id", session.MemberID()),
		zap.Int32("generation", session.GenerationID()))
	return nil
}

func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			err := h.dispatch(session.Context(), msg)
			h.metrics.EventConsumed(h.topic, err)
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *claimHandler) dispatch(ctx context.Context, msg *sarama.ConsumerMessage) (err error) {
	log := h.logger.With(
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			log.Error("Event handler panicked", zap.Any("panic", r))
		}
	}()

	env, err := Decode(msg.Value)
	if err != nil {
		log.Error("Failed to decode event", zap.Error(err))
		return err
	}

	log = log.With(
		zap.String("event_id", env.EventID),
		zap.String("event_type", string(env.EventType)))

	if err := h.handler(ctx, env); err != nil {
		log.Error("Failed to handle event", zap.Error(err))
		return err
	}

	log.Debug("Event handled")
	return nil
}
