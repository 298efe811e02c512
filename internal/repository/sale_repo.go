package repository

import (
	"context"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleListFilter narrows sale listings. Zero values disable a filter; Limit 0 means no limit.
type SaleListFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CustomerID *uuid.UUID
	ProductID  *uuid.UUID
	Skip       int
	Limit      int
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	CreateItems(ctx context.Context, items []model.SaleItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListItems(ctx context.Context, saleID uuid.UUID) ([]model.SaleItem, error)
	List(ctx context.Context, filter SaleListFilter) ([]model.Sale, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteItems(ctx context.Context, saleID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Create inserts only the sale header; items are written with CreateItems.
func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(sale).Error
}

func (r *saleRepository) CreateItems(ctx context.Context, items []model.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(&items).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		Preload("Items.Product").
		Preload("Customer").
		Preload("User").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Sale{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *saleRepository) ListItems(ctx context.Context, saleID uuid.UUID) ([]model.SaleItem, error) {
	var items []model.SaleItem
	if err := GetDB(ctx, r.db).Where("sale_id = ?", saleID).Order("created_at asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *saleRepository) List(ctx context.Context, filter SaleListFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Sale{})
	if filter.StartDate != nil {
		db = db.Where("sales.created_at >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		db = db.Where("sales.created_at <= ?", filter.EndDate.UTC())
	}
	if filter.CustomerID != nil {
		db = db.Where("sales.customer_id = ?", *filter.CustomerID)
	}
	if filter.ProductID != nil {
		db = db.Where("EXISTS (SELECT 1 FROM sale_items WHERE sale_items.sale_id = sales.id AND sale_items.product_id = ?)", *filter.ProductID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		Preload("Items.Product").
		Preload("Customer").
		Order("sales.created_at desc").
		Offset(filter.Skip)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&sales).Error; err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

func (r *saleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Sale{}).Where("id = ?", id).Update("status", status).Error
}

func (r *saleRepository) DeleteItems(ctx context.Context, saleID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("sale_id = ?", saleID).Delete(&model.SaleItem{}).Error
}

func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Sale{}).Error
}
