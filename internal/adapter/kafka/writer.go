package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/fews-client/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces dataset messages to a Kafka topic.
// It implements exporter.DatasetLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a Kafka producer for the given sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, now: time.Now}
}

// VariableMessage is the JSON value of one published message: a single
// dataset variable aligned to the dataset's time axis.
type VariableMessage struct {
	ExportID string        `json:"export_id"`
	Name     string        `json:"name"`
	Attrs    domain.Attrs  `json:"attrs"`
	Time     []string      `json:"time"`
	Values   domain.Values `json:"values"`
	Flag     domain.Values `json:"flag,omitempty"`
}

// LoadDataset publishes every variable of ds as its own message in a single
// WriteMessages call. Empty datasets produce nothing.
func (w *Writer) LoadDataset(ctx context.Context, exportID string, ds *domain.Dataset) (int, error) {
	if ds == nil || ds.IsEmpty() {
		return 0, nil
	}
	msgs, err := datasetToMessages(exportID, ds, w.now())
	if err != nil {
		return 0, err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	w.logger.Debug("dataset published", "export_id", exportID, "messages", len(msgs))
	return len(msgs), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// datasetToMessages builds one Kafka message per variable.
func datasetToMessages(exportID string, ds *domain.Dataset, exportedAt time.Time) ([]kafkago.Message, error) {
	times := make([]string, len(ds.Time))
	for i, t := range ds.Time {
		times[i] = domain.FormatTime(t)
	}
	stamp := []byte(exportedAt.UTC().Format(time.RFC3339))

	msgs := make([]kafkago.Message, len(ds.Variables))
	for i, v := range ds.Variables {
		data, err := json.Marshal(VariableMessage{
			ExportID: exportID,
			Name:     v.Name,
			Attrs:    v.Attrs,
			Time:     times,
			Values:   v.Values,
			Flag:     v.Flag,
		})
		if err != nil {
			return nil, fmt.Errorf("serialize variable %s: %w", v.Name, err)
		}
		msgs[i] = kafkago.Message{
			Key:   []byte(messageKey(v)),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "parameter_id", Value: []byte(v.Name)},
				{Key: "export_id", Value: []byte(exportID)},
				{Key: "exported_at", Value: stamp},
			},
		}
	}
	return msgs, nil
}

// messageKey keeps every update of a parameter at a location on one partition.
func messageKey(v domain.Variable) string {
	return v.Name + "|" + v.Attrs.String(domain.AttrLocationID)
}
