package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-energy-impact/internal/config"
	"github.com/couchcryptid/storm-energy-impact/internal/pipeline"
)

// Record types carried in the record_type header.
const (
	RecordFacility = "facility"
	RecordFleet    = "fleet"
	RecordRegion   = "region"
	RecordFailure  = "failure"
)

// messageWriter is the subset of kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes impact reports to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
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

// Publish writes one message per facility result, fleet result, regional
// rollup and failure in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, report *pipeline.Report) error {
	msgs, err := reportMessages(report)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d report messages: %w", len(msgs), err)
	}
	w.logger.Debug("report written to kafka", "run_id", report.RunID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// reportMessages flattens a report into keyed messages. Facility results are
// keyed by facility id so one facility's history lands on one partition.
func reportMessages(r *pipeline.Report) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, r.Records())
	add := func(key, recordType, metric string, v any) error {
		msg, err := serializeToMessage(r, key, recordType, metric, v)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return nil
	}

	for _, f := range r.Facilities {
		if err := add(f.FacilityID, RecordFacility, "", f); err != nil {
			return nil, err
		}
	}
	for _, f := range r.Fleet {
		if err := add("fleet:"+f.Metric, RecordFleet, f.Metric, f); err != nil {
			return nil, err
		}
	}
	for _, g := range r.Regions {
		if err := add("region:"+g.Region+":"+g.Metric, RecordRegion, g.Metric, g); err != nil {
			return nil, err
		}
	}
	for _, f := range r.Failures {
		if err := add("failure:"+f.FacilityID, RecordFailure, f.Metric, f); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// serializeToMessage marshals one report record into a Kafka message.
func serializeToMessage(r *pipeline.Report, key, recordType, metric string, v any) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record %s: %w", recordType, key, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordType)},
			{Key: "metric", Value: []byte(metric)},
			{Key: "run_id", Value: []byte(r.RunID.String())},
			{Key: "generated_at", Value: []byte(r.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
