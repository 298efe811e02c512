package service

import (
	"bytes"
	"context"
	"sort"
	"time"

	"posbackend/internal/metrics"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// --- DTOs ---

type SaleItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type CreateSaleRequest struct {
	CustomerID *string           `json:"customer_id"`
	Status     string            `json:"status" binding:"omitempty,oneof=completed pending cancelled"`
	Items      []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateSaleStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SaleFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CustomerID string
	ProductID  string
	Skip       int
	Limit      int
}

type SaleItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	LineTotal   string `json:"line_total"`
}

type SaleResponse struct {
	ID           string             `json:"id"`
	CustomerID   *string            `json:"customer_id"`
	CustomerName *string            `json:"customer_name"`
	UserID       string             `json:"user_id"`
	TotalAmount  string             `json:"total_amount"`
	Status       string             `json:"status"`
	Items        []SaleItemResponse `json:"items"`
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
}

// --- Interface ---

type SaleService interface {
	CreateSale(ctx context.Context, userID string, req CreateSaleRequest) (SaleResponse, error)
	GetSale(ctx context.Context, id string) (SaleResponse, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]SaleResponse, int64, error)
	DeleteSale(ctx context.Context, id string, userID string) error
	UpdateSaleStatus(ctx context.Context, id string, userID string, req UpdateSaleStatusRequest) (SaleResponse, error)
}

type saleService struct {
	saleRepo     repository.SaleRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	invoiceRepo  repository.InvoiceRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	stock        *StockEngine
	events       EventPublisher
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) SaleService {
	if events == nil {
		events = NopPublisher()
	}
	return &saleService{
		saleRepo:     saleRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		invoiceRepo:  invoiceRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		stock:        NewStockEngine(productRepo),
		events:       events,
	}
}

// --- Implementation ---

type saleLine struct {
	productID uuid.UUID
	quantity  int
}

// parseSaleLines validates request lines and returns them in order together with
// the combined demand per product.
func parseSaleLines(items []SaleItemRequest) ([]saleLine, map[uuid.UUID]int, error) {
	if len(items) == 0 {
		return nil, nil, Validation("a sale needs at least one item")
	}

	lines := make([]saleLine, 0, len(items))
	demand := make(map[uuid.UUID]int, len(items))
	for i, item := range items {
		productID, err := parseID(item.ProductID, "product_id")
		if err != nil {
			return nil, nil, err
		}
		if item.Quantity <= 0 {
			return nil, nil, Validation("item %d: quantity must be positive", i+1)
		}
		lines = append(lines, saleLine{productID: productID, quantity: item.Quantity})
		demand[productID] += item.Quantity
	}
	return lines, demand, nil
}

// sortedIDs orders ids so every transaction locks product rows in the same order.
func sortedIDs(demand map[uuid.UUID]int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

func (s *saleService) CreateSale(ctx context.Context, userID string, req CreateSaleRequest) (SaleResponse, error) {
	ownerID, err := parseActor(userID)
	if err != nil {
		return SaleResponse{}, err
	}
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return SaleResponse{}, err
	}
	status := req.Status
	if status == "" {
		status = model.SaleStatusCompleted
	}
	if !model.ValidSaleStatus(status) {
		return SaleResponse{}, Validation("invalid status %q: must be completed, pending or cancelled", status)
	}
	lines, demand, err := parseSaleLines(req.Items)
	if err != nil {
		return SaleResponse{}, err
	}

	var saleID uuid.UUID
	var touched []*model.Product

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if customerID != nil {
			if _, err := s.customerRepo.FindByID(txCtx, *customerID); err != nil {
				return notFoundOr(err, "customer %s not found", *customerID)
			}
		}

		// Lock and validate every product before the first write.
		ids := sortedIDs(demand)
		products := make(map[uuid.UUID]*model.Product, len(ids))
		for _, id := range ids {
			product, err := s.productRepo.FindByIDForUpdate(txCtx, id)
			if err != nil {
				return notFoundOr(err, "product %s not found", id)
			}
			if err := CheckStock(product, demand[id]); err != nil {
				return err
			}
			products[id] = product
		}

		total := decimal.Zero
		items := make([]model.SaleItem, 0, len(lines))
		for _, line := range lines {
			product := products[line.productID]
			total = total.Add(PriceLine(product.Price, line.quantity))
			items = append(items, model.SaleItem{
				ProductID: line.productID,
				Quantity:  line.quantity,
				Price:     product.Price,
			})
		}

		sale := model.Sale{
			CustomerID:  customerID,
			UserID:      ownerID,
			TotalAmount: total,
			Status:      status,
		}
		if err := s.saleRepo.Create(txCtx, &sale); err != nil {
			return err
		}
		for i := range items {
			items[i].SaleID = sale.ID
		}
		if err := s.saleRepo.CreateItems(txCtx, items); err != nil {
			return err
		}

		for _, id := range ids {
			if err := s.stock.Reserve(txCtx, products[id], demand[id]); err != nil {
				return err
			}
			touched = append(touched, products[id])
		}

		saleID = sale.ID
		return recordAudit(txCtx, s.auditRepo, ownerID, model.ActionCreateSale, sale.ID.String(), "",
			map[string]interface{}{
				"total_amount": total.StringFixed(2),
				"items":        len(items),
				"status":       status,
			})
	})
	if err != nil {
		if KindOf(err) == KindInsufficientStock {
			metrics.StockRejections.Inc()
		}
		return SaleResponse{}, fail("create sale", err)
	}

	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return SaleResponse{}, fail("reload sale", err)
	}
	resp := toSaleResponse(*sale)

	metrics.SalesCreated.Inc()
	metrics.SalesRevenue.Add(sale.TotalAmount.InexactFloat64())
	s.events.Publish(EventSaleCreated, resp)
	for _, p := range touched {
		s.events.Publish(EventStockUpdated, StockEvent{ProductID: p.ID.String(), ProductName: p.Name, Stock: p.Stock})
	}

	logrus.WithFields(logrus.Fields{
		"sale_id": resp.ID,
		"total":   resp.TotalAmount,
		"items":   len(resp.Items),
	}).Info("Sale created")

	return resp, nil
}

func (s *saleService) GetSale(ctx context.Context, id string) (SaleResponse, error) {
	saleID, err := parseID(id, "sale id")
	if err != nil {
		return SaleResponse{}, err
	}
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return SaleResponse{}, fail("get sale", notFoundOr(err, "sale %s not found", id))
	}
	return toSaleResponse(*sale), nil
}

func (s *saleService) ListSales(ctx context.Context, filter SaleFilter) ([]SaleResponse, int64, error) {
	repoFilter, err := toSaleListFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	sales, total, err := s.saleRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fail("list sales", err)
	}

	result := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		result = append(result, toSaleResponse(sale))
	}
	return result, total, nil
}

func toSaleListFilter(filter SaleFilter) (repository.SaleListFilter, error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return repository.SaleListFilter{}, Validation("end_date must not be before start_date")
	}
	customerID, err := parseOptionalID(&filter.CustomerID, "customer_id")
	if err != nil {
		return repository.SaleListFilter{}, err
	}
	productID, err := parseOptionalID(&filter.ProductID, "product_id")
	if err != nil {
		return repository.SaleListFilter{}, err
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	return repository.SaleListFilter{
		StartDate:  filter.StartDate,
		EndDate:    filter.EndDate,
		CustomerID: customerID,
		ProductID:  productID,
		Skip:       filter.Skip,
		Limit:      filter.Limit,
	}, nil
}

func (s *saleService) DeleteSale(ctx context.Context, id string, userID string) error {
	saleID, err := parseID(id, "sale id")
	if err != nil {
		return err
	}
	actor, err := parseActor(userID)
	if err != nil {
		return err
	}

	var restored []model.SaleItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByIDForUpdate(txCtx, saleID)
		if err != nil {
			return notFoundOr(err, "sale %s not found", id)
		}

		invoiced, err := s.invoiceRepo.ExistsForSale(txCtx, saleID)
		if err != nil {
			return err
		}
		if invoiced {
			return Conflict("sale %s has invoices and cannot be deleted", id)
		}

		items, err := s.saleRepo.ListItems(txCtx, saleID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := s.stock.Release(txCtx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := s.saleRepo.DeleteItems(txCtx, saleID); err != nil {
			return err
		}
		if err := s.saleRepo.Delete(txCtx, saleID); err != nil {
			return err
		}

		restored = items
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteSale, saleID.String(), "",
			map[string]interface{}{
				"total_amount": sale.TotalAmount.StringFixed(2),
				"items":        len(items),
			})
	})
	if err != nil {
		return fail("delete sale", err)
	}

	metrics.SalesDeleted.Inc()
	s.events.Publish(EventSaleDeleted, map[string]string{"id": saleID.String()})
	s.publishStock(ctx, restored)
	return nil
}

// publishStock announces the current stock of every product touched by items.
func (s *saleService) publishStock(ctx context.Context, items []model.SaleItem) {
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			continue
		}
		s.events.Publish(EventStockUpdated, StockEvent{ProductID: product.ID.String(), ProductName: product.Name, Stock: product.Stock})
	}
}

func (s *saleService) UpdateSaleStatus(ctx context.Context, id string, userID string, req UpdateSaleStatusRequest) (SaleResponse, error) {
	saleID, err := parseID(id, "sale id")
	if err != nil {
		return SaleResponse{}, err
	}
	actor, err := parseActor(userID)
	if err != nil {
		return SaleResponse{}, err
	}
	if !model.ValidSaleStatus(req.Status) {
		return SaleResponse{}, Validation("invalid status %q: must be completed, pending or cancelled", req.Status)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByIDForUpdate(txCtx, saleID)
		if err != nil {
			return notFoundOr(err, "sale %s not found", id)
		}
		if err := s.saleRepo.UpdateStatus(txCtx, saleID, req.Status); err != nil {
			return err
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionUpdateSaleStatus, saleID.String(), "",
			map[string]string{"from": sale.Status, "to": req.Status})
	})
	if err != nil {
		return SaleResponse{}, fail("update sale status", err)
	}

	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return SaleResponse{}, fail("reload sale", err)
	}
	resp := toSaleResponse(*sale)
	s.events.Publish(EventSaleStatusUpdated, resp)
	return resp, nil
}

func toSaleResponse(sale model.Sale) SaleResponse {
	resp := SaleResponse{
		ID:          sale.ID.String(),
		UserID:      sale.UserID.String(),
		TotalAmount: sale.TotalAmount.StringFixed(2),
		Status:      sale.Status,
		Items:       make([]SaleItemResponse, 0, len(sale.Items)),
		CreatedAt:   sale.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   sale.UpdatedAt.Format(time.RFC3339),
	}
	if sale.CustomerID != nil {
		cid := sale.CustomerID.String()
		resp.CustomerID = &cid
	}
	if sale.Customer != nil {
		name := sale.Customer.Name
		resp.CustomerName = &name
	}
	for _, item := range sale.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		resp.Items = append(resp.Items, SaleItemResponse{
			ID:          item.ID.String(),
			ProductID:   item.ProductID.String(),
			ProductName: name,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(2),
			LineTotal:   PriceLine(item.Price, item.Quantity).StringFixed(2),
		})
	}
	return resp
}
