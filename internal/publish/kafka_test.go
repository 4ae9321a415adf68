package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/datagate/datagate/internal/models"
)

func testStory(id string) models.Story {
	item := models.Item{
		Title:       "Story " + id,
		URL:         "https://example.com/" + id,
		Content:     "Body",
		PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ExternalID:  id,
		Tags:        []string{"python"},
	}
	return models.NewStory("source-1", item, "", time.Now())
}

func TestPublishStories(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	stories := []models.Story{testStory("a"), testStory("b")}
	for _, s := range stories {
		want := s
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var ev StoryEvent
			if err := json.Unmarshal(val, &ev); err != nil {
				return err
			}
			if ev.ExternalID != want.ExternalID || ev.Event != EventStoryUpserted {
				return errors.New("unexpected event " + ev.ExternalID)
			}
			return nil
		})
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := NewKafkaPublisherWithProducer(producer, "stories", logger)
	if err := pub.PublishStories(context.Background(), stories); err != nil {
		t.Fatalf("PublishStories: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublishStoriesFailure(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := NewKafkaPublisherWithProducer(producer, "stories", logger)
	if err := pub.PublishStories(context.Background(), []models.Story{testStory("a")}); err == nil {
		t.Fatal("expected publish error")
	}
	producer.Close()
}

func TestPublishNothing(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := NewKafkaPublisherWithProducer(producer, "stories", logger)
	if err := pub.PublishStories(context.Background(), nil); err != nil {
		t.Fatalf("empty publish: %v", err)
	}
	producer.Close()
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewKafkaPublisher(Config{Topic: "stories"}, logger); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaPublisher(Config{Brokers: []string{"localhost:9092"}}, logger); err == nil {
		t.Error("expected error without topic")
	}
}

func TestNewStoryEvent(t *testing.T) {
	s := testStory("a")
	s.Tags = nil
	s.Embedding = []float32{1, 2}
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	ev := NewStoryEvent(s, now)
	if ev.Tags == nil || !ev.HasEmbedding || !ev.EmittedAt.Equal(now) {
		t.Errorf("unexpected event: %+v", ev)
	}
}
