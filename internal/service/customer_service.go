package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opswindow/opswindow-api/internal/dto"
	"github.com/opswindow/opswindow-api/internal/models"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
)

type customerRepository interface {
	Create(ctx context.Context, customer *models.Customer, contacts []models.CustomerContact) error
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	List(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, int, error)
	Update(ctx context.Context, customer *models.Customer, contacts []models.CustomerContact) error
	Delete(ctx context.Context, id string) error
	ListContacts(ctx context.Context, customerID string) ([]models.CustomerContact, error)
}

// CustomerService manages the customer directory and push subscriptions.
type CustomerService struct {
	repo      customerRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCustomerService constructs the service.
func NewCustomerService(repo customerRepository, validate *validator.Validate, logger *zap.Logger) *CustomerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{repo: repo, validator: validate, logger: logger}
}

// Create registers a customer with its push contacts.
func (s *CustomerService) Create(ctx context.Context, req dto.CreateCustomerRequest) (*models.Customer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid customer payload")
	}
	customer := &models.Customer{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Active:       true,
	}
	if err := s.repo.Create(ctx, customer, contactModels(req.Contacts)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create customer")
	}
	return customer, nil
}

// Get returns one customer with its contacts.
func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, []models.CustomerContact, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "customer not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load customer")
	}
	contacts, err := s.repo.ListContacts(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contacts")
	}
	return customer, contacts, nil
}

// List returns customers with pagination.
func (s *CustomerService) List(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list customers")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Update replaces customer fields and the full contact set.
func (s *CustomerService) Update(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*models.Customer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid customer payload")
	}
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "customer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load customer")
	}
	customer.Name = req.Name
	customer.ContactEmail = req.ContactEmail
	customer.Active = req.Active
	if err := s.repo.Update(ctx, customer, contactModels(req.Contacts)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update customer")
	}
	return customer, nil
}

// Delete removes a customer. Recipient rows referencing it cascade away.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "customer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete customer")
	}
	return nil
}

func contactModels(payloads []dto.ContactPayload) []models.CustomerContact {
	contacts := make([]models.CustomerContact, 0, len(payloads))
	for _, p := range payloads {
		contacts = append(contacts, models.CustomerContact{
			Label:    p.Label,
			Endpoint: p.Endpoint,
			P256dh:   p.P256dh,
			Auth:     p.Auth,
		})
	}
	return contacts
}
