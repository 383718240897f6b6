package kafka

import (
	"context"
	"encoding/json"

	"settlement-service/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EnrollmentEventProducer publishes enrollment confirmations for the
// notification service. Delivery is best effort; the settlement transaction
// has already committed by the time this runs.
type EnrollmentEventProducer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewEnrollmentEventProducer(brokers []string, topic string, logger *zap.Logger) *EnrollmentEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	logger.Info("Enrollment event producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
	)
	return &EnrollmentEventProducer{writer: w, topic: topic, logger: logger}
}

// EnrollmentConfirmed publishes one event keyed by user id so all events for
// a user land on the same partition.
func (p *EnrollmentEventProducer) EnrollmentConfirmed(ctx context.Context, event models.EnrollmentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("Failed to publish enrollment event",
			zap.String("enrollment_id", event.EnrollmentID),
			zap.Error(err),
		)
		return err
	}

	p.logger.Info("Enrollment event published",
		zap.String("enrollment_id", event.EnrollmentID),
		zap.String("course_id", event.CourseID),
	)
	return nil
}

func (p *EnrollmentEventProducer) Close() {
	_ = p.writer.Close()
	p.logger.Info("Enrollment event producer closed")
}
