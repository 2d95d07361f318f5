package repository

import (
	"context"
	"time"

	"VolScan/internal/domain/models"
	domrepo "VolScan/internal/domain/repository"
	pkgkafka "VolScan/pkg/kafka"
)

// ReportEventType tags report events on the wire.
const ReportEventType = "volscan.report.v1"

// ReportEvent is the Kafka payload announcing a finished run.
type ReportEvent struct {
	RunID       string                  `json:"run_id"`
	Date        string                  `json:"date"`
	GeneratedAt time.Time               `json:"generated_at"`
	Tickers     int                     `json:"tickers"`
	Columns     int                     `json:"columns"`
	Skips       int                     `json:"skips"`
	TopPositive []models.Triple         `json:"top_positive"`
	TopNegative []models.Triple         `json:"top_negative"`
	Thresholds  models.ThresholdSummary `json:"thresholds"`
}

// NewReportEvent summarizes a report.
func NewReportEvent(r *models.Report) ReportEvent {
	return ReportEvent{
		RunID:       r.RunID,
		Date:        r.Date.Format(time.DateOnly),
		GeneratedAt: r.GeneratedAt,
		Tickers:     len(r.Tickers),
		Columns:     len(r.CloseClose.Cols),
		Skips:       len(r.Skips),
		TopPositive: r.Comparison.TopPositive.Triples,
		TopNegative: r.Comparison.TopNegative.Triples,
		Thresholds:  r.Comparison.Thresholds,
	}
}

// KafkaReportPublisher implements ResultSink for Kafka.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaReportPublisher creates Kafka publisher.
func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

var _ domrepo.ResultSink = (*KafkaReportPublisher)(nil)

func (p *KafkaReportPublisher) Name() string { return "kafka" }

// Publish sends one event keyed by run id.
func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.Report) error {
	return p.producer.PublishMessage(ctx, p.topic, pkgkafka.Message{
		Key:   []byte(r.RunID),
		Value: NewReportEvent(r),
		Headers: map[string]string{
			"content-type": "application/json",
			"event-type":   ReportEventType,
			"run-date":     r.Date.Format(time.DateOnly),
		},
	})
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
