package repository

import (
	"context"
	"fmt"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleTotal is one sale's timestamp and amount, used to build daily series.
type SaleTotal struct {
	CreatedAt   time.Time
	TotalAmount decimal.Decimal
}

// SoldLine is one sale item joined with its product name.
type SoldLine struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int64
	Price     decimal.Decimal
}

// ReportRepository loads the raw rows behind sales reports. Money is summed by the
// caller: sqlite evaluates SUM over decimal columns in floating point.
// All windows are inclusive on both ends.
type ReportRepository interface {
	SaleTotals(ctx context.Context, start, end time.Time) ([]SaleTotal, error)
	SoldLines(ctx context.Context, start, end time.Time) ([]SoldLine, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) SaleTotals(ctx context.Context, start, end time.Time) ([]SaleTotal, error) {
	var totals []SaleTotal
	if err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("created_at, total_amount").
		Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC()).
		Order("created_at asc").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to query sale totals: %w", err)
	}
	return totals, nil
}

func (r *reportRepository) SoldLines(ctx context.Context, start, end time.Time) ([]SoldLine, error) {
	var lines []SoldLine
	if err := GetDB(ctx, r.db).Table("sale_items").
		Select("products.id AS product_id, products.name AS name, sale_items.quantity AS quantity, sale_items.price AS price").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Where("sales.created_at >= ? AND sales.created_at <= ?", start.UTC(), end.UTC()).
		Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to query sold lines: %w", err)
	}
	return lines, nil
}
