// Package publish emits story events to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/datagate/datagate/internal/models"
)

// EventStoryUpserted is the event type for inserted or updated stories.
const EventStoryUpserted = "story.upserted"

// StoryEvent is the message body published per story. Embeddings and raw
// metadata stay in the database.
type StoryEvent struct {
	Event         string               `json:"event"`
	ID            string               `json:"id"`
	SourceID      string               `json:"source_id"`
	ExternalID    string               `json:"external_id"`
	Title         string               `json:"title"`
	URL           string               `json:"url"`
	PublishedAt   time.Time            `json:"published_at"`
	Tags          []string             `json:"tags"`
	StoryCategory models.StoryCategory `json:"story_category,omitempty"`
	HasEmbedding  bool                 `json:"has_embedding"`
	EmittedAt     time.Time            `json:"emitted_at"`
}

// Config holds Kafka producer configuration.
type Config struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher publishes story events with a synchronous producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewProducerConfig returns the sarama configuration used for story events.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewKafkaPublisher connects a producer to the configured brokers.
func NewKafkaPublisher(cfg Config, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger, now: time.Now}
}

// PublishStories sends one message per story keyed by story id.
func (p *KafkaPublisher) PublishStories(ctx context.Context, stories []models.Story) error {
	if len(stories) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(stories))
	for _, s := range stories {
		body, err := json.Marshal(NewStoryEvent(s, p.now()))
		if err != nil {
			return fmt.Errorf("failed to encode story %s: %w", s.ID, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(s.ID),
			Value: sarama.ByteEncoder(body),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event"), Value: []byte(EventStoryUpserted)},
			},
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		var perrs sarama.ProducerErrors
		if errors.As(err, &perrs) {
			return fmt.Errorf("failed to publish %d of %d stories: %w", len(perrs), len(msgs), err)
		}
		return fmt.Errorf("failed to publish stories: %w", err)
	}
	p.logger.Debug("published story events", "topic", p.topic, "count", len(msgs))
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NewStoryEvent builds the event for s.
func NewStoryEvent(s models.Story, now time.Time) StoryEvent {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return StoryEvent{
		Event:         EventStoryUpserted,
		ID:            s.ID,
		SourceID:      s.SourceID,
		ExternalID:    s.ExternalID,
		Title:         s.Title,
		URL:           s.URL,
		PublishedAt:   s.PublishedAt,
		Tags:          tags,
		StoryCategory: s.StoryCategory,
		HasEmbedding:  s.HasEmbedding(),
		EmittedAt:     now,
	}
}
