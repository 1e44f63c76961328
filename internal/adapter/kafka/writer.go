package kafka

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/wx-graphics/internal/config"
	"github.com/couchcryptid/wx-graphics/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces plot results to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes results in a single WriteMessages call.
// Messages are keyed by request ID so results of one request share a partition.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.PlotResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("results published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PlotResult into a Kafka message.
func serializeToMessage(res domain.PlotResult) (kafkago.Message, error) {
	out, err := domain.SerializeResult(res)
	if err != nil {
		return kafkago.Message{}, err
	}
	headers := make([]kafkago.Header, 0, len(out.Headers))
	for _, k := range []string{"kind", "rendered_at"} {
		if v, ok := out.Headers[k]; ok {
			headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
	}
	return kafkago.Message{Key: out.Key, Value: out.Value, Headers: headers}, nil
}
