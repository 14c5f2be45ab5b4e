package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-invoice-service/internal/broker"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/metrics"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

const (
	EventInvoiceCreated       = "invoice.created"
	EventInvoiceUpdated       = "invoice.updated"
	EventInvoiceStatusChanged = "invoice.status_changed"
	EventInvoiceDeleted       = "invoice.deleted"
)

// SearchMapping is the Elasticsearch mapping of the invoice index.
const SearchMapping = `{
	"mappings": {
		"properties": {
			"company_id": { "type": "keyword" },
			"type": { "type": "keyword" },
			"status": { "type": "keyword" },
			"number": { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"counterparty_name": { "type": "text" },
			"counterparty_vat": { "type": "keyword" },
			"notes": { "type": "text" },
			"issue_date": { "type": "date" },
			"gross_total": { "type": "double" },
			"created_at": { "type": "date" }
		}
	}
}`

// InvoiceEvent is the payload of every invoice.* event.
type InvoiceEvent struct {
	InvoiceID      string              `json:"invoice_id"`
	CompanyID      string              `json:"company_id"`
	Type           model.InvoiceType   `json:"type,omitempty"`
	Number         string              `json:"number,omitempty"`
	Status         model.InvoiceStatus `json:"status,omitempty"`
	PreviousStatus model.InvoiceStatus `json:"previous_status,omitempty"`
	GrossTotal     *decimal.Decimal    `json:"gross_total,omitempty"`
}

func eventFor(inv *model.Invoice) InvoiceEvent {
	gross := inv.GrossTotal
	return InvoiceEvent{
		InvoiceID:  inv.ID,
		CompanyID:  inv.CompanyID,
		Type:       inv.Type,
		Number:     inv.Number,
		Status:     inv.Status,
		GrossTotal: &gross,
	}
}

// afterWrite publishes eventType for inv and reindexes it. Both run in the
// background and only log failures.
func (uc *invoiceUseCase) afterWrite(inv *model.Invoice, eventType string) {
	snapshot := *inv
	snapshot.Lines = append([]model.InvoiceLine(nil), inv.Lines...)
	payload := eventFor(&snapshot)

	uc.async(func() {
		ctx := context.Background()
		uc.publish(ctx, eventType, snapshot.ID, payload)
		uc.syncToElastic(ctx, &snapshot)
	})
}

func (uc *invoiceUseCase) afterStatusChange(inv *model.Invoice, from model.InvoiceStatus) {
	snapshot := *inv
	snapshot.Lines = append([]model.InvoiceLine(nil), inv.Lines...)
	payload := eventFor(&snapshot)
	payload.PreviousStatus = from

	uc.async(func() {
		ctx := context.Background()
		uc.publish(ctx, EventInvoiceStatusChanged, snapshot.ID, payload)
		uc.syncToElastic(ctx, &snapshot)
	})
}

func (uc *invoiceUseCase) afterDelete(companyID, id string) {
	version := uc.bump(time.Time{}).UnixMicro()
	uc.async(func() {
		ctx := context.Background()
		uc.publish(ctx, EventInvoiceDeleted, id, InvoiceEvent{InvoiceID: id, CompanyID: companyID})
		if uc.es == nil {
			return
		}
		if err := uc.es.Delete(ctx, uc.indexName, id, version); err != nil {
			uc.logger.Error("failed to remove invoice from index", zap.String("invoice_id", id), zap.Error(err))
		}
	})
}

func (uc *invoiceUseCase) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if uc.producer == nil {
		return
	}
	ev, err := broker.NewEvent(eventType, payload)
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = uc.producer.Publish(ctx, key, ev)
		cancel()
	}
	if err != nil {
		metrics.EventsPublished.WithLabelValues(eventType, "error").Inc()
		uc.logger.Error("failed to publish invoice event",
			zap.String("event_type", eventType),
			zap.String("invoice_id", key),
			zap.Error(err),
		)
		return
	}
	metrics.EventsPublished.WithLabelValues(eventType, "ok").Inc()
}

func (uc *invoiceUseCase) syncToElastic(ctx context.Context, inv *model.Invoice) {
	if uc.es == nil {
		return
	}
	if err := uc.es.Index(ctx, uc.indexName, inv.ID, inv.UpdatedAt.UnixMicro(), inv); err != nil {
		uc.logger.Error("failed to index invoice", zap.String("invoice_id", inv.ID), zap.Error(err))
	}
}

// searchIndex runs a text query against the invoice index. Hits carry
// headers only, like a SQL page.
func (uc *invoiceUseCase) searchIndex(ctx context.Context, f *dto.InvoiceFilters) ([]model.Invoice, int, error) {
	filter := []map[string]interface{}{
		{"term": map[string]interface{}{"company_id": f.CompanyID}},
	}
	if f.Type != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"type": f.Type}})
	}
	if f.Status != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"status": f.Status}})
	}
	if f.IssuedFrom != nil || f.IssuedTo != nil {
		rng := map[string]interface{}{}
		if f.IssuedFrom != nil {
			rng["gte"] = f.IssuedFrom.Format(time.RFC3339)
		}
		if f.IssuedTo != nil {
			rng["lte"] = f.IssuedTo.Format(time.RFC3339)
		}
		filter = append(filter, map[string]interface{}{"range": map[string]interface{}{"issue_date": rng}})
	}

	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"multi_match": map[string]interface{}{
							"query":  f.SearchQuery,
							"fields": []string{"number^3", "counterparty_name^2", "counterparty_vat", "notes", "lines.description"},
							"type":   "bool_prefix",
						},
					},
				},
				"filter": filter,
			},
		},
		"sort": []interface{}{map[string]interface{}{"issue_date": "desc"}},
		"from": (f.Page - 1) * f.PageSize,
		"size": f.PageSize,
	}

	res, err := uc.es.Search(ctx, uc.indexName, q)
	if err != nil {
		return nil, 0, err
	}

	invoices := make([]model.Invoice, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var inv model.Invoice
		if err := json.Unmarshal(hit.Source, &inv); err != nil {
			uc.logger.Warn("skipping undecodable search hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		inv.Lines = nil
		invoices = append(invoices, inv)
	}
	return invoices, res.Hits.Total.Value, nil
}
