package service

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportSalesCSV(t *testing.T) {
	env := newTestEnv(t)
	widget := env.createProduct(t, "Widget", "10.00", 10)
	gadget := env.createProduct(t, "Gadget", "2.50", 10)
	customer, err := env.customers.CreateCustomer(env.ctx, env.actor(), CreateCustomerRequest{Name: "Alice"})
	require.NoError(t, err)

	sale, err := env.sales.CreateSale(env.ctx, env.actor(), CreateSaleRequest{
		CustomerID: &customer.ID,
		Items:      []SaleItemRequest{line(widget, 2), line(gadget, 1)},
	})
	require.NoError(t, err)
	env.sell(t, line(gadget, 4))

	data, err := env.exports.ExportSalesCSV(env.ctx, SaleFilter{CustomerID: customer.ID})
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Sale ID", "Date", "Customer", "Total Amount", "Items"}, rows[0])
	assert.Equal(t, sale.ID, rows[1][0])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, rows[1][1])
	assert.Equal(t, "Alice", rows[1][2])
	assert.Equal(t, "$22.50", rows[1][3])
	assert.Equal(t, "Widget x2, Gadget x1", rows[1][4])

	all, err := env.exports.ExportSalesCSV(env.ctx, SaleFilter{})
	require.NoError(t, err)
	rows = readCSV(t, all)
	require.Len(t, rows, 3)
	assert.Equal(t, "N/A", rows[1][2])
}

func TestExportSalesXLSX(t *testing.T) {
	env := newTestEnv(t)
	widget := env.createProduct(t, "Widget", "10.00", 10)
	env.sell(t, line(widget, 3))

	data, err := env.exports.ExportSalesXLSX(env.ctx, SaleFilter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Total Amount", rows[0][3])
	assert.Equal(t, "$30.00", rows[1][3])
	assert.Equal(t, "Widget x3", rows[1][4])
}

func TestExportInvoicesCSV(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "Widget", "10.00", 5)
	sale := env.sell(t, line(product, 3))
	inv, err := env.invoices.CreateInvoice(env.ctx, env.actor(), invoiceRequest(sale, product))
	require.NoError(t, err)

	data, err := env.exports.ExportInvoicesCSV(env.ctx, InvoiceFilter{})
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, invoiceExportHeader, rows[0])
	assert.Equal(t, []string{inv.InvoiceNumber, rows[1][1], "N/A", "$31.00", "$2.40", "$0.40", "pending", "cash"}, rows[1])

	_, err = env.exports.ExportInvoicesCSV(env.ctx, InvoiceFilter{Status: "void"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestExportInventoryCSV(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "Widget", "10.00", 5)

	data, err := env.exports.ExportInventoryCSV(env.ctx)
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, inventoryExportHeader, rows[0])
	assert.Equal(t, "Widget", rows[1][1])
	assert.Equal(t, "N/A", rows[1][2])
	assert.Equal(t, "$10.00", rows[1][3])
	assert.Equal(t, "5", rows[1][4])
}
