package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/valpamp/sfide-fire-map/internal/config"
	"github.com/valpamp/sfide-fire-map/internal/domain"
)

// Writer produces detection messages to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes and publishes newly aggregated detections to the
// sink topic in a single WriteMessages call for efficiency.
func (w *Writer) PublishBatch(ctx context.Context, detections []domain.Detection) error {
	if len(detections) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(detections))
	for i := range detections {
		msg, err := serializeToMessage(detections[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Detection into a Kafka message.
func serializeToMessage(d domain.Detection) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize detection: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(d.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "satellite", Value: []byte(d.Satellite)},
			{Key: "processed_at", Value: []byte(d.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
