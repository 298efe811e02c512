package service

import (
	"context"
	"strings"
	"time"

	"posbackend/internal/metrics"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxInvoiceNumberAttempts bounds retries after an invoice number collides with an existing one.
const maxInvoiceNumberAttempts = 3

// --- DTOs ---

type InvoiceItemRequest struct {
	ProductID string          `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Discount  decimal.Decimal `json:"discount" swaggertype:"string"`
}

type CreateInvoiceRequest struct {
	SaleID         string               `json:"sale_id" binding:"required"`
	CustomerID     *string              `json:"customer_id"`
	Items          []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	TaxAmount      decimal.Decimal      `json:"tax_amount" swaggertype:"string"`
	DiscountAmount decimal.Decimal      `json:"discount_amount" swaggertype:"string"`
	PaymentMethod  *string              `json:"payment_method"`
	Notes          *string              `json:"notes"`
}

type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type InvoiceFilter struct {
	Status string
	SaleID string
	Skip   int
	Limit  int
}

type InvoiceItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Discount    string `json:"discount"`
	LineTotal   string `json:"line_total"`
}

type InvoiceResponse struct {
	ID             string                `json:"id"`
	InvoiceNumber  string                `json:"invoice_number"`
	SaleID         string                `json:"sale_id"`
	CustomerID     *string               `json:"customer_id"`
	CustomerName   *string               `json:"customer_name"`
	UserID         string                `json:"user_id"`
	Username       string                `json:"username"`
	TotalAmount    string                `json:"total_amount"`
	TaxAmount      string                `json:"tax_amount"`
	DiscountAmount string                `json:"discount_amount"`
	Status         string                `json:"status"`
	PaymentMethod  *string               `json:"payment_method"`
	Notes          *string               `json:"notes"`
	Items          []InvoiceItemResponse `json:"items"`
	CreatedAt      string                `json:"created_at"`
	UpdatedAt      string                `json:"updated_at"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	UpdateInvoiceStatus(ctx context.Context, id string, userID string, req UpdateInvoiceStatusRequest) (InvoiceResponse, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	saleRepo     repository.SaleRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventPublisher
	now          func() time.Time
	nextNumber   func(time.Time) string
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) InvoiceService {
	if events == nil {
		events = NopPublisher()
	}
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		saleRepo:     saleRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       events,
		now:          time.Now,
		nextNumber:   GenerateInvoiceNumber,
	}
}

// GenerateInvoiceNumber returns INV-YYYYMMDD-XXXXXXXX with an 8 hex digit random suffix.
func GenerateInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "INV-" + now.UTC().Format("20060102") + "-" + suffix
}

// InvoiceTotal is sum(unit_price*quantity - discount) + tax - discount_amount.
func InvoiceTotal(items []model.InvoiceItem, tax, discount decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(PriceLine(item.UnitPrice, item.Quantity)).Sub(item.Discount)
	}
	return total.Add(tax).Sub(discount)
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (InvoiceResponse, error) {
	actor, err := parseActor(userID)
	if err != nil {
		return InvoiceResponse{}, err
	}
	saleID, err := parseID(req.SaleID, "sale_id")
	if err != nil {
		return InvoiceResponse{}, err
	}
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return InvoiceResponse{}, err
	}
	if req.TaxAmount.IsNegative() {
		return InvoiceResponse{}, Validation("tax_amount must not be negative")
	}
	if req.DiscountAmount.IsNegative() {
		return InvoiceResponse{}, Validation("discount_amount must not be negative")
	}
	if len(req.Items) == 0 {
		return InvoiceResponse{}, Validation("an invoice needs at least one item")
	}

	items := make([]model.InvoiceItem, 0, len(req.Items))
	for i, line := range req.Items {
		productID, err := parseID(line.ProductID, "product_id")
		if err != nil {
			return InvoiceResponse{}, err
		}
		switch {
		case line.Quantity <= 0:
			return InvoiceResponse{}, Validation("item %d: quantity must be positive", i+1)
		case line.UnitPrice.IsNegative():
			return InvoiceResponse{}, Validation("item %d: unit_price must not be negative", i+1)
		case line.Discount.IsNegative():
			return InvoiceResponse{}, Validation("item %d: discount must not be negative", i+1)
		}
		items = append(items, model.InvoiceItem{
			ProductID: productID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
		})
	}

	exists, err := s.saleRepo.Exists(ctx, saleID)
	if err != nil {
		return InvoiceResponse{}, fail("create invoice", err)
	}
	if !exists {
		return InvoiceResponse{}, NotFound("sale %s not found", saleID)
	}
	if customerID != nil {
		if _, err := s.customerRepo.FindByID(ctx, *customerID); err != nil {
			return InvoiceResponse{}, fail("create invoice", notFoundOr(err, "customer %s not found", *customerID))
		}
	}
	for _, item := range items {
		if _, err := s.productRepo.FindByID(ctx, item.ProductID); err != nil {
			return InvoiceResponse{}, fail("create invoice", notFoundOr(err, "product %s not found", item.ProductID))
		}
	}

	total := InvoiceTotal(items, req.TaxAmount, req.DiscountAmount)

	var invoiceID uuid.UUID
	for attempt := 1; ; attempt++ {
		invoiceID, err = s.insertInvoice(ctx, actor, saleID, customerID, items, total, req)
		if err == nil {
			break
		}
		if !repository.IsDuplicateKey(err) {
			return InvoiceResponse{}, fail("create invoice", err)
		}
		if attempt >= maxInvoiceNumberAttempts {
			return InvoiceResponse{}, Conflict("could not allocate a unique invoice number, try again")
		}
		metrics.InvoiceNumberRetries.Inc()
		logrus.WithField("attempt", attempt).Warn("Invoice number collision, retrying")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fail("reload invoice", err)
	}
	resp := toInvoiceResponse(*invoice)

	metrics.InvoicesCreated.Inc()
	s.events.Publish(EventInvoiceCreated, resp)
	return resp, nil
}

// insertInvoice writes the header and lines in one transaction under a fresh invoice number.
func (s *invoiceService) insertInvoice(
	ctx context.Context,
	actor, saleID uuid.UUID,
	customerID *uuid.UUID,
	items []model.InvoiceItem,
	total decimal.Decimal,
	req CreateInvoiceRequest,
) (uuid.UUID, error) {
	invoice := model.Invoice{
		InvoiceNumber:  s.nextNumber(s.now()),
		SaleID:         saleID,
		CustomerID:     customerID,
		UserID:         actor,
		TotalAmount:    total,
		TaxAmount:      req.TaxAmount,
		DiscountAmount: req.DiscountAmount,
		Status:         model.InvoiceStatusPending,
		PaymentMethod:  req.PaymentMethod,
		Notes:          req.Notes,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return err
		}

		lines := make([]model.InvoiceItem, len(items))
		copy(lines, items)
		for i := range lines {
			lines[i].InvoiceID = invoice.ID
		}
		if err := s.invoiceRepo.CreateItems(txCtx, lines); err != nil {
			return err
		}

		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNumber,
			map[string]interface{}{
				"sale_id":      saleID.String(),
				"total_amount": total.StringFixed(2),
				"items":        len(lines),
			})
	})
	if err != nil {
		return uuid.Nil, err
	}
	return invoice.ID, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := parseID(id, "invoice id")
	if err != nil {
		return InvoiceResponse{}, err
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fail("get invoice", notFoundOr(err, "invoice %s not found", id))
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Status != "" && !model.ValidInvoiceStatus(filter.Status) {
		return nil, 0, Validation("invalid status filter %q", filter.Status)
	}
	saleID, err := parseOptionalID(&filter.SaleID, "sale_id")
	if err != nil {
		return nil, 0, err
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		Status: filter.Status,
		SaleID: saleID,
		Skip:   filter.Skip,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, 0, fail("list invoices", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, id string, userID string, req UpdateInvoiceStatusRequest) (InvoiceResponse, error) {
	invoiceID, err := parseID(id, "invoice id")
	if err != nil {
		return InvoiceResponse{}, err
	}
	actor, err := parseActor(userID)
	if err != nil {
		return InvoiceResponse{}, err
	}
	if !model.ValidInvoiceStatus(req.Status) {
		return InvoiceResponse{}, Validation("invalid status %q: must be pending, paid or cancelled", req.Status)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return notFoundOr(err, "invoice %s not found", id)
		}
		if err := s.invoiceRepo.UpdateStatus(txCtx, invoiceID, req.Status); err != nil {
			return err
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionUpdateInvoiceStatus, invoiceID.String(), invoice.InvoiceNumber,
			map[string]string{"from": invoice.Status, "to": req.Status})
	})
	if err != nil {
		return InvoiceResponse{}, fail("update invoice status", err)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fail("reload invoice", err)
	}
	resp := toInvoiceResponse(*invoice)
	s.events.Publish(EventInvoiceStatusUpdated, resp)
	return resp, nil
}

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID.String(),
		InvoiceNumber:  inv.InvoiceNumber,
		SaleID:         inv.SaleID.String(),
		UserID:         inv.UserID.String(),
		TotalAmount:    inv.TotalAmount.StringFixed(2),
		TaxAmount:      inv.TaxAmount.StringFixed(2),
		DiscountAmount: inv.DiscountAmount.StringFixed(2),
		Status:         inv.Status,
		PaymentMethod:  inv.PaymentMethod,
		Notes:          inv.Notes,
		Items:          make([]InvoiceItemResponse, 0, len(inv.Items)),
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      inv.UpdatedAt.Format(time.RFC3339),
	}
	if inv.CustomerID != nil {
		cid := inv.CustomerID.String()
		resp.CustomerID = &cid
	}
	if inv.Customer != nil {
		name := inv.Customer.Name
		resp.CustomerName = &name
	}
	if inv.User != nil {
		resp.Username = inv.User.Username
	}
	for _, item := range inv.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ID:          item.ID.String(),
			ProductID:   item.ProductID.String(),
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Discount:    item.Discount.StringFixed(2),
			LineTotal:   PriceLine(item.UnitPrice, item.Quantity).Sub(item.Discount).StringFixed(2),
		})
	}
	return resp
}
