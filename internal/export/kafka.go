package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress/lz4"

	"github.com/nao1215/routecrawl/internal/model"
)

const (
	// DefaultKafkaBatchSize is how many messages are sent per write.
	DefaultKafkaBatchSize = 100

	// DefaultKafkaWriteTimeout bounds a single batch write.
	DefaultKafkaWriteTimeout = 10 * time.Second
)

// KafkaConfig configures a KafkaExporter.
type KafkaConfig struct {
	// Brokers is a comma separated list of host:port addresses.
	Brokers string
	Topic   string

	BatchSize    int
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafka.Writer the exporter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaExporter produces one message per stored result.
// Messages are keyed by URL and carry no page body, which keeps them well
// below the broker's default message size limit.
type KafkaExporter struct {
	writer       messageWriter
	topic        string
	batchSize    int
	writeTimeout time.Duration
	logger       *slog.Logger
}

var _ Exporter = (*KafkaExporter)(nil)

// NewKafkaExporter creates an exporter writing to cfg.Topic.
// Connections are opened lazily on the first write.
func NewKafkaExporter(cfg KafkaConfig, logger *slog.Logger) (*KafkaExporter, error) {
	brokers := splitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, ErrMissingBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrMissingTopic
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultKafkaWriteTimeout
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: time.Millisecond, // batching is done by Export
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Compression(new(lz4.Codec).Code()),
	}
	return newKafkaExporter(w, cfg, logger), nil
}

func newKafkaExporter(w messageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaExporter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultKafkaWriteTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &KafkaExporter{
		writer:       w,
		topic:        cfg.Topic,
		batchSize:    cfg.BatchSize,
		writeTimeout: cfg.WriteTimeout,
		logger:       logger,
	}
}

// Name returns "kafka".
func (e *KafkaExporter) Name() string {
	return "kafka"
}

// Export sends the results in batches, in store order.
func (e *KafkaExporter) Export(ctx context.Context, report *model.RunReport) error {
	e.logger.Info("exporting results to kafka", "topic", e.topic, "count", len(report.Results))

	batch := make([]kafka.Message, 0, e.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		wctx, cancel := context.WithTimeout(ctx, e.writeTimeout)
		defer cancel()
		if err := e.writer.WriteMessages(wctx, batch...); err != nil {
			return fmt.Errorf("failed to send %d messages to kafka: %w", len(batch), err)
		}
		e.logger.Debug("sent messages to kafka", "batch", len(batch))
		batch = batch[:0]
		return nil
	}

	for _, res := range report.Results {
		value, err := json.Marshal(newRecord(res, false))
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", res.URL, err)
		}
		batch = append(batch, kafka.Message{
			Key:   []byte(res.URL),
			Value: value,
		})
		if len(batch) >= e.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Close flushes and closes the underlying writer.
func (e *KafkaExporter) Close() error {
	return e.writer.Close()
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
