package email

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Publisher is the outbox the mail workers read from
type Publisher interface {
	Publish(ctx context.Context, msg interface{}) error
}

// QueueSender hands rendered emails to the notification outbox
type QueueSender struct {
	publisher Publisher
}

func NewQueueSender(publisher Publisher) *QueueSender {
	return &QueueSender{publisher: publisher}
}

func (s *QueueSender) Send(ctx context.Context, email *Email) error {
	return s.publisher.Publish(ctx, email)
}

// LogSender only logs emails. Used in development.
type LogSender struct {
	logger logrus.FieldLogger
}

func NewLogSender(logger logrus.FieldLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, email *Email) error {
	s.logger.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
		"type":    email.Type,
	}).Info("📧 Email not delivered (log provider)")
	return nil
}
