package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "2006-01-02 15:04:05"

var (
	saleExportHeader      = []string{"Sale ID", "Date", "Customer", "Total Amount", "Items"}
	invoiceExportHeader   = []string{"Invoice Number", "Date", "Customer", "Total Amount", "Tax Amount", "Discount Amount", "Status", "Payment Method"}
	inventoryExportHeader = []string{"Product ID", "Name", "Description", "Price", "Stock", "Last Updated"}
)

// ExportService renders sales, invoices and inventory as downloadable files.
type ExportService interface {
	ExportSalesCSV(ctx context.Context, filter SaleFilter) ([]byte, error)
	ExportSalesXLSX(ctx context.Context, filter SaleFilter) ([]byte, error)
	ExportInvoicesCSV(ctx context.Context, filter InvoiceFilter) ([]byte, error)
	ExportInventoryCSV(ctx context.Context) ([]byte, error)
}

type exportService struct {
	saleRepo    repository.SaleRepository
	invoiceRepo repository.InvoiceRepository
	productRepo repository.ProductRepository
}

func NewExportService(
	saleRepo repository.SaleRepository,
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
) ExportService {
	return &exportService{
		saleRepo:    saleRepo,
		invoiceRepo: invoiceRepo,
		productRepo: productRepo,
	}
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func saleRow(sale model.Sale) []string {
	customer := "N/A"
	if sale.Customer != nil {
		customer = sale.Customer.Name
	}
	items := make([]string, 0, len(sale.Items))
	for _, item := range sale.Items {
		name := item.ProductID.String()
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, fmt.Sprintf("%s x%d", name, item.Quantity))
	}
	return []string{
		sale.ID.String(),
		sale.CreatedAt.UTC().Format(exportTimeLayout),
		customer,
		money(sale.TotalAmount),
		strings.Join(items, ", "),
	}
}

func (s *exportService) saleRows(ctx context.Context, filter SaleFilter) ([][]string, error) {
	// Exports ignore pagination.
	filter.Skip, filter.Limit = 0, 0
	listFilter, err := toSaleListFilter(filter)
	if err != nil {
		return nil, err
	}
	sales, _, err := s.saleRepo.List(ctx, listFilter)
	if err != nil {
		return nil, fail("export sales", err)
	}
	rows := make([][]string, 0, len(sales))
	for _, sale := range sales {
		rows = append(rows, saleRow(sale))
	}
	return rows, nil
}

func (s *exportService) ExportSalesCSV(ctx context.Context, filter SaleFilter) ([]byte, error) {
	rows, err := s.saleRows(ctx, filter)
	if err != nil {
		return nil, err
	}
	return writeCSV(saleExportHeader, rows)
}

func (s *exportService) ExportSalesXLSX(ctx context.Context, filter SaleFilter) ([]byte, error) {
	rows, err := s.saleRows(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sales"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fail("export sales xlsx", err)
	}
	if err := setRow(f, sheet, 1, saleExportHeader); err != nil {
		return nil, fail("export sales xlsx", err)
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return nil, fail("export sales xlsx", err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 38); err != nil {
		return nil, fail("export sales xlsx", err)
	}
	if err := f.SetColWidth(sheet, "B", "D", 20); err != nil {
		return nil, fail("export sales xlsx", err)
	}
	if err := f.SetColWidth(sheet, "E", "E", 60); err != nil {
		return nil, fail("export sales xlsx", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fail("export sales xlsx", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func (s *exportService) ExportInvoicesCSV(ctx context.Context, filter InvoiceFilter) ([]byte, error) {
	if filter.Status != "" && !model.ValidInvoiceStatus(filter.Status) {
		return nil, Validation("invalid status filter %q", filter.Status)
	}
	saleID, err := parseOptionalID(&filter.SaleID, "sale_id")
	if err != nil {
		return nil, err
	}
	invoices, _, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		Status: filter.Status,
		SaleID: saleID,
	})
	if err != nil {
		return nil, fail("export invoices", err)
	}

	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		customer := "N/A"
		if inv.Customer != nil {
			customer = inv.Customer.Name
		}
		rows = append(rows, []string{
			inv.InvoiceNumber,
			inv.CreatedAt.UTC().Format(exportTimeLayout),
			customer,
			money(inv.TotalAmount),
			money(inv.TaxAmount),
			money(inv.DiscountAmount),
			inv.Status,
			orNA(inv.PaymentMethod),
		})
	}
	return writeCSV(invoiceExportHeader, rows)
}

func (s *exportService) ExportInventoryCSV(ctx context.Context) ([]byte, error) {
	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, fail("export inventory", err)
	}

	rows := make([][]string, 0, len(products))
	for _, p := range products {
		updated := "N/A"
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.UTC().Format(exportTimeLayout)
		}
		rows = append(rows, []string{
			p.ID.String(),
			p.Name,
			orNA(p.Description),
			money(p.Price),
			strconv.Itoa(p.Stock),
			updated,
		})
	}
	return writeCSV(inventoryExportHeader, rows)
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fail("write csv", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fail("write csv", err)
	}
	return buf.Bytes(), nil
}
