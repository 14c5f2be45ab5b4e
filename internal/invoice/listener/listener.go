package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-invoice-service/internal/invoice"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/metrics"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

const EventDocumentUploaded = "document.uploaded"

// MessageReader is the consuming half of broker.KafkaConsumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type UploadListener struct {
	consumer MessageReader
	uc       invoice.UseCase
	logger   logger.ZapLogger
	backoff  time.Duration
	timeout  time.Duration
}

func NewUploadListener(consumer MessageReader, uc invoice.UseCase, log logger.ZapLogger) *UploadListener {
	return &UploadListener{
		consumer: consumer,
		uc:       uc,
		logger:   log,
		backoff:  time.Second,
		timeout:  30 * time.Second,
	}
}

// Start consumes until ctx is cancelled. A message already fetched when that
// happens is still processed and committed before Start returns.
func (l *UploadListener) Start(ctx context.Context) {
	l.logger.Info("Starting upload Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping upload Kafka listener")
			return
		default:
			msg, err := l.consumer.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.backoff):
				}
				continue
			}
			l.handle(ctx, msg)
		}
	}
}

// handle processes msg and then commits its offset, so a crash in between
// redelivers the message instead of losing it.
func (l *UploadListener) handle(ctx context.Context, msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	l.processMessage(ctx, msg.Value)
	if err := l.consumer.CommitMessages(ctx, msg); err != nil {
		l.logger.Error("Failed to commit kafka message",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
	}
}

type DocumentUploadedEvent struct {
	EventID   string                  `json:"event_id"`
	EventType string                  `json:"event_type"`
	Payload   DocumentUploadedPayload `json:"payload"`
	Timestamp time.Time               `json:"timestamp"`
}

type DocumentUploadedPayload struct {
	CompanyID   string `json:"company_id"`
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
	UploadedBy  string `json:"uploaded_by"`
	FileName    string `json:"file_name"`
}

// processMessage never returns an error: a message that cannot be handled is
// logged and skipped so it does not block the partition.
func (l *UploadListener) processMessage(ctx context.Context, value []byte) {
	var event DocumentUploadedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		metrics.UploadsConsumed.WithLabelValues("malformed").Inc()
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventDocumentUploaded {
		metrics.UploadsConsumed.WithLabelValues("ignored").Inc()
		return
	}

	l.logger.Info("Processing document.uploaded event",
		zap.String("event_id", event.EventID),
		zap.String("company_id", event.Payload.CompanyID),
	)

	inv, err := l.uc.RegisterUpload(ctx, &dto.RegisterUploadInput{
		CompanyID:   event.Payload.CompanyID,
		Type:        model.InvoiceType(event.Payload.Type),
		DocumentURL: event.Payload.DocumentURL,
		UploadedBy:  event.Payload.UploadedBy,
		FileName:    event.Payload.FileName,
	})
	if err != nil {
		metrics.UploadsConsumed.WithLabelValues("failed").Inc()
		l.logger.Error("Failed to register uploaded document",
			zap.String("event_id", event.EventID),
			zap.String("document_url", event.Payload.DocumentURL),
			zap.Error(err),
		)
		return
	}

	metrics.UploadsConsumed.WithLabelValues("registered").Inc()
	l.logger.Info("Registered draft invoice for upload",
		zap.String("event_id", event.EventID),
		zap.String("invoice_id", inv.ID),
	)
}
