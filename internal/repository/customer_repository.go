package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opswindow/opswindow-api/internal/models"
)

// CustomerRepository provides persistence for customers and their push contacts.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates the repository.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a customer and its contacts in one transaction.
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer, contacts []models.CustomerContact) (err error) {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin customer create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO customers (id, name, contact_email, active, created_at, updated_at)
VALUES (:id, :name, :contact_email, :active, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, customer); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	if err = insertContacts(ctx, tx, customer.ID, contacts, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit customer create: %w", err)
	}
	return nil
}

// GetByID returns a customer by identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	const query = `SELECT id, name, contact_email, active, created_at, updated_at FROM customers WHERE id = $1`
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		return nil, err
	}
	return &customer, nil
}

// List returns customers matching the filter.
func (r *CustomerRepository) List(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR contact_email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, contact_email, active, created_at, updated_at
FROM customers WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`, whereClause, size, offset)
	var customers []models.Customer
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM customers WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	return customers, total, nil
}

// Update replaces customer fields and the full contact set in one transaction.
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer, contacts []models.CustomerContact) (err error) {
	now := time.Now().UTC()
	customer.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin customer update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const updateQuery = `UPDATE customers SET name = :name, contact_email = :contact_email, active = :active, updated_at = :updated_at
WHERE id = :id`
	if _, err = sqlx.NamedExecContext(ctx, tx, updateQuery, customer); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM customer_contacts WHERE customer_id = $1", customer.ID); err != nil {
		return fmt.Errorf("clear customer contacts: %w", err)
	}
	if err = insertContacts(ctx, tx, customer.ID, contacts, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit customer update: %w", err)
	}
	return nil
}

// Delete removes a customer. Fails when announcements still reference it.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM customers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListContacts returns the push subscriptions registered for a customer.
func (r *CustomerRepository) ListContacts(ctx context.Context, customerID string) ([]models.CustomerContact, error) {
	const query = `SELECT id, customer_id, label, endpoint, p256dh, auth, created_at
FROM customer_contacts WHERE customer_id = $1 ORDER BY created_at ASC`
	var contacts []models.CustomerContact
	if err := r.db.SelectContext(ctx, &contacts, query, customerID); err != nil {
		return nil, fmt.Errorf("list customer contacts: %w", err)
	}
	return contacts, nil
}

func insertContacts(ctx context.Context, tx *sqlx.Tx, customerID string, contacts []models.CustomerContact, now time.Time) error {
	const query = `INSERT INTO customer_contacts (id, customer_id, label, endpoint, p256dh, auth, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, contact := range contacts {
		id := contact.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query, id, customerID, contact.Label, contact.Endpoint, contact.P256dh, contact.Auth, now); err != nil {
			return fmt.Errorf("insert customer contact: %w", err)
		}
	}
	return nil
}
