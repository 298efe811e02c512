package service

import (
	"context"
	"strings"
	"time"

	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,max=255"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price" swaggertype:"string"`
	Stock       int             `json:"stock" binding:"gte=0"`
}

// UpdateProductRequest lists every updatable field; nil means unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string"`
	Stock       *int             `json:"stock" binding:"omitempty,gte=0"`
}

type ProductResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       string  `json:"price"`
	Stock       int     `json:"stock"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// --- Interface ---

type ProductService interface {
	CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	ListProducts(ctx context.Context, skip, limit int, search string) ([]ProductResponse, int64, error)
	UpdateProduct(ctx context.Context, id string, userID string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, id string, userID string) error
}

type productService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewProductService(
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) ProductService {
	if events == nil {
		events = NopPublisher()
	}
	return &productService{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      events,
	}
}

// --- Implementation ---

func validateProduct(p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return Validation("name is required")
	}
	if !p.Price.IsPositive() {
		return Validation("price must be greater than 0")
	}
	if p.Stock < 0 {
		return Validation("stock must not be negative")
	}
	return nil
}

func (s *productService) CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error) {
	actor, err := parseActor(userID)
	if err != nil {
		return ProductResponse{}, err
	}

	product := model.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if err := validateProduct(&product); err != nil {
		return ProductResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return err
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateProduct, product.ID.String(), product.Name,
			map[string]interface{}{"price": product.Price.StringFixed(2), "stock": product.Stock})
	})
	if err != nil {
		return ProductResponse{}, fail("create product", err)
	}
	return toProductResponse(product), nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := parseID(id, "product id")
	if err != nil {
		return ProductResponse{}, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, fail("get product", notFoundOr(err, "product %s not found", id))
	}
	return toProductResponse(*product), nil
}

func (s *productService) ListProducts(ctx context.Context, skip, limit int, search string) ([]ProductResponse, int64, error) {
	products, total, err := s.productRepo.List(ctx, skip, limit, strings.TrimSpace(search))
	if err != nil {
		return nil, 0, fail("list products", err)
	}
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, total, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, userID string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := parseID(id, "product id")
	if err != nil {
		return ProductResponse{}, err
	}
	actor, err := parseActor(userID)
	if err != nil {
		return ProductResponse{}, err
	}

	var updated model.Product
	var stockChanged bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.productRepo.FindByIDForUpdate(txCtx, productID)
		if err != nil {
			return notFoundOr(err, "product %s not found", id)
		}

		changes := map[string]interface{}{}
		if req.Name != nil {
			product.Name = strings.TrimSpace(*req.Name)
			changes["name"] = product.Name
		}
		if req.Description != nil {
			product.Description = req.Description
			changes["description"] = *req.Description
		}
		if req.Price != nil {
			product.Price = *req.Price
			changes["price"] = req.Price.StringFixed(2)
		}
		if req.Stock != nil {
			stockChanged = product.Stock != *req.Stock
			product.Stock = *req.Stock
			changes["stock"] = product.Stock
		}
		if err := validateProduct(product); err != nil {
			return err
		}

		if err := s.productRepo.Update(txCtx, product); err != nil {
			return err
		}
		updated = *product
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProduct, product.ID.String(), product.Name, changes)
	})
	if err != nil {
		return ProductResponse{}, fail("update product", err)
	}

	if stockChanged {
		s.events.Publish(EventStockUpdated, StockEvent{ProductID: updated.ID.String(), ProductName: updated.Name, Stock: updated.Stock})
	}
	return toProductResponse(updated), nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string, userID string) error {
	productID, err := parseID(id, "product id")
	if err != nil {
		return err
	}
	actor, err := parseActor(userID)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.productRepo.FindByIDForUpdate(txCtx, productID)
		if err != nil {
			return notFoundOr(err, "product %s not found", id)
		}
		used, err := s.productRepo.HasLineItems(txCtx, productID)
		if err != nil {
			return err
		}
		if used {
			return Conflict("product %s is referenced by sales or invoices and cannot be deleted", product.Name)
		}
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return err
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteProduct, productID.String(), product.Name, nil)
	})
	return fail("delete product", err)
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
