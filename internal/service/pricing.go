package service

import (
	"context"
	"fmt"

	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceLine multiplies a unit price by a quantity without rounding.
func PriceLine(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CheckStock fails when quantity exceeds the product's current stock.
func CheckStock(product *model.Product, quantity int) error {
	if quantity > product.Stock {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}
	return nil
}

// StockEngine mutates inventory counts. Callers run it inside their own transaction
// so stock moves commit or roll back together with the sale rows.
type StockEngine struct {
	products repository.ProductRepository
}

func NewStockEngine(products repository.ProductRepository) *StockEngine {
	return &StockEngine{products: products}
}

// Reserve decrements stock with a guarded update; the guard makes stock >= 0 hold
// even if the row was not locked beforehand.
func (e *StockEngine) Reserve(ctx context.Context, product *model.Product, quantity int) error {
	if err := CheckStock(product, quantity); err != nil {
		return err
	}
	affected, err := e.products.DecrementStock(ctx, product.ID, quantity)
	if err != nil {
		return fmt.Errorf("reserve stock for product %s: %w", product.ID, err)
	}
	if affected == 0 {
		current, findErr := e.products.FindByID(ctx, product.ID)
		available := 0
		if findErr == nil {
			available = current.Stock
		}
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   available,
		}
	}
	product.Stock -= quantity
	return nil
}

// Release returns quantity units to the product's stock.
func (e *StockEngine) Release(ctx context.Context, productID uuid.UUID, quantity int) error {
	if err := e.products.IncrementStock(ctx, productID, quantity); err != nil {
		return fmt.Errorf("release stock for product %s: %w", productID, err)
	}
	return nil
}
