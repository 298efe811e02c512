package service

const (
	EventSaleCreated          = "sale_created"
	EventSaleDeleted          = "sale_deleted"
	EventSaleStatusUpdated    = "sale_status_updated"
	EventInvoiceCreated       = "invoice_created"
	EventInvoiceStatusUpdated = "invoice_status_updated"
	EventStockUpdated         = "stock_updated"
)

// EventPublisher fans committed changes out to live clients. Publish must not block.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

// NopPublisher discards events.
func NopPublisher() EventPublisher { return nopPublisher{} }

// StockEvent is published whenever a product's stock count changes.
type StockEvent struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       int    `json:"stock"`
}
