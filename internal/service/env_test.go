package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"posbackend/internal/auth"
	"posbackend/internal/config"
	"posbackend/internal/database"
	"posbackend/internal/model"
	"posbackend/internal/reportstore"
	"posbackend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	ctx    context.Context
	db     *gorm.DB
	user   *model.User
	events *recordingPublisher
	store  *reportstore.MemoryStore

	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	saleRepo     repository.SaleRepository
	invoiceRepo  repository.InvoiceRepository
	auditRepo    repository.AuditRepository

	products  ProductService
	customers CustomerService
	sales     SaleService
	invoices  *invoiceService
	reports   *reportService
	exports   ExportService
	users     *userService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "pos.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{
		ctx:          context.Background(),
		db:           db,
		events:       &recordingPublisher{},
		store:        reportstore.NewMemoryStore(),
		productRepo:  repository.NewProductRepository(db),
		customerRepo: repository.NewCustomerRepository(db),
		saleRepo:     repository.NewSaleRepository(db),
		invoiceRepo:  repository.NewInvoiceRepository(db),
		auditRepo:    repository.NewAuditRepository(db),
	}
	txManager := repository.NewTransactionManager(db)

	env.products = NewProductService(env.productRepo, env.auditRepo, txManager, env.events)
	env.customers = NewCustomerService(env.customerRepo, env.auditRepo, txManager)
	env.sales = NewSaleService(env.saleRepo, env.productRepo, env.customerRepo, env.invoiceRepo, env.auditRepo, txManager, env.events)
	env.invoices = NewInvoiceService(env.invoiceRepo, env.saleRepo, env.productRepo, env.customerRepo, env.auditRepo, txManager, env.events).(*invoiceService)
	env.reports = NewReportService(repository.NewReportRepository(db), env.store).(*reportService)
	env.exports = NewExportService(env.saleRepo, env.invoiceRepo, env.productRepo)
	env.users = NewUserService(
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db),
		txManager,
		auth.NewTokenManager("test-secret", 15*time.Minute, time.Hour),
	).(*userService)

	env.user = &model.User{
		Username: "cashier",
		Email:    "cashier@example.com",
		Password: "not-a-real-hash",
		Role:     model.RoleCashier,
		IsActive: true,
	}
	require.NoError(t, repository.NewUserRepository(db).Create(env.ctx, env.user))
	return env
}

func (e *testEnv) actor() string {
	return e.user.ID.String()
}

func (e *testEnv) createProduct(t *testing.T, name, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, e.productRepo.Create(e.ctx, p))
	return p
}

func (e *testEnv) stockOf(t *testing.T, p *model.Product) int {
	t.Helper()
	current, err := e.productRepo.FindByID(e.ctx, p.ID)
	require.NoError(t, err)
	return current.Stock
}

func (e *testEnv) sell(t *testing.T, lines ...SaleItemRequest) SaleResponse {
	t.Helper()
	sale, err := e.sales.CreateSale(e.ctx, e.actor(), CreateSaleRequest{Items: lines})
	require.NoError(t, err)
	return sale
}

func line(p *model.Product, qty int) SaleItemRequest {
	return SaleItemRequest{ProductID: p.ID.String(), Quantity: qty}
}

func strPtr(s string) *string { return &s }
