package models

import "time"

// Customer represents a company receiving maintenance announcements.
type Customer struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CustomerContact is one push subscription registered by a customer.
type CustomerContact struct {
	ID         string    `db:"id" json:"id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	Label      string    `db:"label" json:"label"`
	Endpoint   string    `db:"endpoint" json:"endpoint"`
	P256dh     string    `db:"p256dh" json:"p256dh"`
	Auth       string    `db:"auth" json:"auth"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CustomerFilter narrows customer listings.
type CustomerFilter struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
