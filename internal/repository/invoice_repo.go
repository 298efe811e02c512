package repository

import (
	"context"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceListFilter struct {
	Status string
	SaleID *uuid.UUID
	Skip   int
	Limit  int // 0 means no limit
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	CreateItems(ctx context.Context, items []model.InvoiceItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ExistsForSale(ctx context.Context, saleID uuid.UUID) (bool, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(invoice).Error
}

func (r *invoiceRepository) CreateItems(ctx context.Context, items []model.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(&items).Error
}

func (r *invoiceRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		Preload("Items.Product").
		Preload("Customer").
		Preload("User")
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := r.withRelations(GetDB(ctx, r.db)).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Invoice{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.SaleID != nil {
		db = db.Where("sale_id = ?", *filter.SaleID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.withRelations(db).Order("created_at desc").Offset(filter.Skip)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Invoice{}).Where("id = ?", id).Update("status", status).Error
}

func (r *invoiceRepository) ExistsForSale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("sale_id = ?", saleID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
