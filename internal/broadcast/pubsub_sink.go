package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"go.uber.org/zap"
)

// PubSubConfig configures the network EventSink.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// PubSubSink publishes events as JSON messages on a Google Cloud Pub/Sub
// topic, grounded on the teacher's pubsub wiring but carrying JSON payloads
// instead of the teacher's private protobuf event types.
type PubSubSink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPubSubSink(ctx context.Context, cfg PubSubConfig) (*PubSubSink, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("pubsub project id is required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	topic := client.Topic(cfg.TopicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check if topic exists: %w", err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, cfg.TopicName)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create topic %s: %w", cfg.TopicName, err)
		}
	}

	return &PubSubSink{client: client, topic: topic}, nil
}

// Publish is best-effort: a marshal or publish error is logged and
// swallowed, never surfaced to the caller (§5, §9 Design Notes).
func (s *PubSubSink) Publish(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		logger.Base().Error("failed to marshal broadcast event", zap.Error(err))
		return
	}

	result := s.topic.Publish(ctx, &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"tenant_id": event.TenantID, "kind": event.Kind},
	})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			logger.Base().Error("failed to publish broadcast event", zap.Error(err), zap.String("tenant_id", event.TenantID))
		}
	}()
}

func (s *PubSubSink) Close() error {
	s.topic.Stop()
	return s.client.Close()
}

var _ EventSink = (*PubSubSink)(nil)
