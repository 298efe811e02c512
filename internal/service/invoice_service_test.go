package service

import (
	"regexp"
	"testing"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGenerateInvoiceNumberFormat(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	number := GenerateInvoiceNumber(at)
	assert.Regexp(t, regexp.MustCompile(`^INV-20240309-[0-9A-F]{8}$`), number)
	assert.NotEqual(t, number, GenerateInvoiceNumber(at))
}

func TestInvoiceTotal(t *testing.T) {
	items := []model.InvoiceItem{
		{Quantity: 2, UnitPrice: dec("10.00"), Discount: dec("1.50")},
		{Quantity: 1, UnitPrice: dec("5.25"), Discount: decimal.Zero},
	}
	// (20 - 1.50) + 5.25 + 2.00 - 3.00
	assert.Equal(t, "22.75", InvoiceTotal(items, dec("2.00"), dec("3.00")).StringFixed(2))
	assert.True(t, InvoiceTotal(nil, decimal.Zero, decimal.Zero).IsZero())
}

func invoiceRequest(sale SaleResponse, product *model.Product) CreateInvoiceRequest {
	return CreateInvoiceRequest{
		SaleID: sale.ID,
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 3, UnitPrice: dec("10.00"), Discount: dec("1.00")},
		},
		TaxAmount:      dec("2.40"),
		DiscountAmount: dec("0.40"),
		PaymentMethod:  strPtr("cash"),
	}
}

func TestCreateInvoice(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "Widget", "10.00", 5)
	sale := env.sell(t, line(product, 3))

	inv, err := env.invoices.CreateInvoice(env.ctx, env.actor(), invoiceRequest(sale, product))
	require.NoError(t, err)

	assert.Regexp(t, `^INV-\d{8}-[0-9A-F]{8}$`, inv.InvoiceNumber)
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "31.00", inv.TotalAmount)
	assert.Equal(t, "2.40", inv.TaxAmount)
	assert.Equal(t, "0.40", inv.DiscountAmount)
	assert.Equal(t, sale.ID, inv.SaleID)
	assert.Equal(t, "cashier", inv.Username)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "29.00", inv.Items[0].LineTotal)
	assert.Contains(t, env.events.types(), EventInvoiceCreated)

	// Invoices never move stock.
	assert.Equal(t, 2, env.stockOf(t, product))
}

func TestCreateInvoiceRetriesOnNumberCollision(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "Widget", "10.00", 5)
	sale := env.sell(t, line(product, 1))

	env.invoices.nextNumber = func(time.Time) string { return "INV-20240101-AAAAAAAA" }
	first, err := env.invoices.CreateInvoice(env.ctx, env.actor(), invoiceRequest(sale, product))
	require.NoError(t, err)
	assert.Equal(t, "INV-20240101-AAAAAAAA", first.InvoiceNumber)

	numbers := []string{"INV-20240101-AAAAAAAA", "INV-20240101-BBBBBBBB"}
	calls := 0
	env.invoices.nextNumber = func(time.Time) string {
		n := numbers[calls]
		calls++
		return n
	}
	second, err := env.invoices.CreateInvoice(env.ctx, env.actor(), invoiceRequest(sale, product))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "INV-20240101-BBBBBBBB", second.InvoiceNumber)

	// The failed attempt left no partial rows behind.
	_, total, err := env.invoices.ListInvoices(env.ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestCreateInvoiceGivesUpAfterRepeatedCollisions(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "Widget", "10.00", 5)
	sale := env.sell(t, line(product, 1))

	env.invoices.nextNumber = func(time.Time) string { return "INV-20240101-AAAAAAAA" }
	_, err := env.invoices.CreateInvoice(env.ctx, env.actor(), invoiceRequest(sale, product))
	require.NoError(t, err)

	calls := 0
	env.invoices.nextNumber = func(time.Time) string {
		calls++
		return "INV-20240101-AAAAAAAA"
	}
	_, err = env.invoices.CreateInvoice(env.ctx, env.actor(), invoiceRequest(sale, product))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, maxInvoiceNumberAttempts, calls)
}

func TestCreateInvoiceValidation(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "Widget", "10.00", 5)
	sale := env.sell(t, line(product, 1))

	mutate := func(fn func(*CreateInvoiceRequest)) CreateInvoiceRequest {
		req := invoiceRequest(sale, product)
		fn(&req)
		return req
	}
	tests := []struct {
		name string
		req  CreateInvoiceRequest
		kind ErrorKind
	}{
		{"unknown sale", mutate(func(r *CreateInvoiceRequest) { r.SaleID = uuid.NewString() }), KindNotFound},
		{"bad sale id", mutate(func(r *CreateInvoiceRequest) { r.SaleID = "x" }), KindValidation},
		{"no items", mutate(func(r *CreateInvoiceRequest) { r.Items = nil }), KindValidation},
		{"negative tax", mutate(func(r *CreateInvoiceRequest) { r.TaxAmount = dec("-1") }), KindValidation},
		{"negative discount", mutate(func(r *CreateInvoiceRequest) { r.DiscountAmount = dec("-1") }), KindValidation},
		{"zero quantity", mutate(func(r *CreateInvoiceRequest) { r.Items[0].Quantity = 0 }), KindValidation},
		{"negative unit price", mutate(func(r *CreateInvoiceRequest) { r.Items[0].UnitPrice = dec("-1") }), KindValidation},
		{"unknown product", mutate(func(r *CreateInvoiceRequest) { r.Items[0].ProductID = uuid.NewString() }), KindNotFound},
		{"unknown customer", mutate(func(r *CreateInvoiceRequest) { r.CustomerID = strPtr(uuid.NewString()) }), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.invoices.CreateInvoice(env.ctx, env.actor(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestUpdateInvoiceStatusAndListFilter(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "Widget", "10.00", 5)
	sale := env.sell(t, line(product, 1))

	inv, err := env.invoices.CreateInvoice(env.ctx, env.actor(), invoiceRequest(sale, product))
	require.NoError(t, err)
	_, err = env.invoices.CreateInvoice(env.ctx, env.actor(), invoiceRequest(sale, product))
	require.NoError(t, err)

	paid, err := env.invoices.UpdateInvoiceStatus(env.ctx, inv.ID, env.actor(), UpdateInvoiceStatusRequest{Status: model.InvoiceStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, paid.Status)

	_, err = env.invoices.UpdateInvoiceStatus(env.ctx, inv.ID, env.actor(), UpdateInvoiceStatusRequest{Status: "void"})
	assert.Equal(t, KindValidation, KindOf(err))

	list, total, err := env.invoices.ListInvoices(env.ctx, InvoiceFilter{Status: model.InvoiceStatusPaid})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, inv.ID, list[0].ID)

	_, _, err = env.invoices.ListInvoices(env.ctx, InvoiceFilter{Status: "void"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = env.invoices.GetInvoice(env.ctx, uuid.NewString())
	assert.Equal(t, KindNotFound, KindOf(err))
}
