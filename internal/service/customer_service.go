package service

import (
	"context"
	"strings"
	"time"

	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/internal/validation"
)

// --- DTOs ---

type CreateCustomerRequest struct {
	Name    string  `json:"name" binding:"required,max=255"`
	Email   *string `json:"email" binding:"omitempty,contact_email"`
	Phone   *string `json:"phone" binding:"omitempty,phone"`
	Address *string `json:"address"`
}

// UpdateCustomerRequest lists every updatable field; nil means unchanged.
type UpdateCustomerRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email   *string `json:"email" binding:"omitempty,contact_email"`
	Phone   *string `json:"phone" binding:"omitempty,phone"`
	Address *string `json:"address"`
}

type CustomerResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, userID string, req CreateCustomerRequest) (CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	ListCustomers(ctx context.Context, skip, limit int, search string) ([]CustomerResponse, int64, error)
	UpdateCustomer(ctx context.Context, id string, userID string, req UpdateCustomerRequest) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string, userID string) error
}

type customerService struct {
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

// trimOptional trims s and maps blank strings to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *customerService) CreateCustomer(ctx context.Context, userID string, req CreateCustomerRequest) (CustomerResponse, error) {
	actor, err := parseActor(userID)
	if err != nil {
		return CustomerResponse{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = trimOptional(req.Email)
	req.Phone = trimOptional(req.Phone)
	req.Address = trimOptional(req.Address)
	if err := validation.Struct(req); err != nil {
		return CustomerResponse{}, Validation("%s", validation.Message(err))
	}

	customer := model.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailFree(txCtx, customer.Email, nil); err != nil {
			return err
		}
		if err := s.customerRepo.Create(txCtx, &customer); err != nil {
			return err
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateCustomer, customer.ID.String(), customer.Name, nil)
	})
	if repository.IsDuplicateKey(err) {
		return CustomerResponse{}, Conflict("email already registered")
	}
	if err != nil {
		return CustomerResponse{}, fail("create customer", err)
	}
	return toCustomerResponse(customer), nil
}

// ensureEmailFree fails with Conflict when another customer already uses email.
func (s *customerService) ensureEmailFree(ctx context.Context, email *string, self *model.Customer) error {
	if email == nil {
		return nil
	}
	existing, err := s.customerRepo.FindByEmail(ctx, *email)
	if repository.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if self != nil && existing.ID == self.ID {
		return nil
	}
	return Conflict("email already registered")
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	customerID, err := parseID(id, "customer id")
	if err != nil {
		return CustomerResponse{}, err
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return CustomerResponse{}, fail("get customer", notFoundOr(err, "customer %s not found", id))
	}
	return toCustomerResponse(*customer), nil
}

func (s *customerService) ListCustomers(ctx context.Context, skip, limit int, search string) ([]CustomerResponse, int64, error) {
	customers, total, err := s.customerRepo.List(ctx, skip, limit, strings.TrimSpace(search))
	if err != nil {
		return nil, 0, fail("list customers", err)
	}
	res := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		res = append(res, toCustomerResponse(c))
	}
	return res, total, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, userID string, req UpdateCustomerRequest) (CustomerResponse, error) {
	customerID, err := parseID(id, "customer id")
	if err != nil {
		return CustomerResponse{}, err
	}
	actor, err := parseActor(userID)
	if err != nil {
		return CustomerResponse{}, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	check := req
	check.Email = trimOptional(req.Email)
	check.Phone = trimOptional(req.Phone)
	if err := validation.Struct(check); err != nil {
		return CustomerResponse{}, Validation("%s", validation.Message(err))
	}

	var updated model.Customer
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.customerRepo.FindByID(txCtx, customerID)
		if err != nil {
			return notFoundOr(err, "customer %s not found", id)
		}

		changed := []string{}
		if req.Name != nil {
			customer.Name = *req.Name
			changed = append(changed, "name")
		}
		// An explicit empty string clears an optional field.
		if req.Email != nil {
			customer.Email = trimOptional(req.Email)
			changed = append(changed, "email")
			if err := s.ensureEmailFree(txCtx, customer.Email, customer); err != nil {
				return err
			}
		}
		if req.Phone != nil {
			customer.Phone = trimOptional(req.Phone)
			changed = append(changed, "phone")
		}
		if req.Address != nil {
			customer.Address = trimOptional(req.Address)
			changed = append(changed, "address")
		}

		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return err
		}
		updated = *customer
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionUpdateCustomer, customer.ID.String(), customer.Name,
			map[string]interface{}{"fields": changed})
	})
	if repository.IsDuplicateKey(err) {
		return CustomerResponse{}, Conflict("email already registered")
	}
	if err != nil {
		return CustomerResponse{}, fail("update customer", err)
	}
	return toCustomerResponse(updated), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string, userID string) error {
	customerID, err := parseID(id, "customer id")
	if err != nil {
		return err
	}
	actor, err := parseActor(userID)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.customerRepo.FindByID(txCtx, customerID)
		if err != nil {
			return notFoundOr(err, "customer %s not found", id)
		}
		hasSales, err := s.customerRepo.HasSales(txCtx, customerID)
		if err != nil {
			return err
		}
		if hasSales {
			return Conflict("customer %s has sales and cannot be deleted", customer.Name)
		}
		if err := s.customerRepo.Delete(txCtx, customerID); err != nil {
			return err
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteCustomer, customerID.String(), customer.Name, nil)
	})
	return fail("delete customer", err)
}

func toCustomerResponse(c model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
