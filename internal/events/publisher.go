package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/models"
)

// Subjects published by the catalog service.
const (
	SubjectImportCompleted = "catalog.import.completed"
	SubjectProductCreated  = "catalog.product.created"
	SubjectProductUpdated  = "catalog.product.updated"
	SubjectProductDeleted  = "catalog.product.deleted"
)

// Publisher emits catalog change events over NATS. All publish methods are
// nil-receiver safe so callers can hold a nil Publisher when NATS_URL is not
// configured.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS at url.
func NewPublisher(url string, logger *logrus.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("catalog-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "events"),
	}, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// ImportCompletedEvent is the payload for SubjectImportCompleted.
type ImportCompletedEvent struct {
	SessionID  string    `json:"sessionId"`
	Imported   int       `json:"imported"`
	ErrorCount int       `json:"errorCount"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ProductEvent is the payload for product change subjects.
type ProductEvent struct {
	ProductID    string    `json:"productId"`
	Name         string    `json:"name"`
	ExternalCode string    `json:"externalCode,omitempty"`
	CategoryID   string    `json:"categoryId"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// PublishImportCompleted reports the final accounting of one import job.
func (p *Publisher) PublishImportCompleted(sessionID string, imported, errorCount int) {
	p.publish(SubjectImportCompleted, ImportCompletedEvent{
		SessionID:  sessionID,
		Imported:   imported,
		ErrorCount: errorCount,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishProductChanged reports a single product create/update/delete.
func (p *Publisher) PublishProductChanged(subject string, product *models.Product) {
	if product == nil {
		return
	}
	code := ""
	if product.ExternalCode != nil {
		code = *product.ExternalCode
	}
	p.publish(subject, ProductEvent{
		ProductID:    product.ID.String(),
		Name:         product.Name,
		ExternalCode: code,
		CategoryID:   product.CategoryID.String(),
		OccurredAt:   time.Now().UTC(),
	})
}

// publish is fire-and-forget: event delivery never fails a catalog write.
func (p *Publisher) publish(subject string, payload interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}
