package dto

// ContactPayload is a single push subscription in customer payloads.
type ContactPayload struct {
	Label    string `json:"label"`
	Endpoint string `json:"endpoint" validate:"required,url"`
	P256dh   string `json:"p256dh" validate:"required"`
	Auth     string `json:"auth" validate:"required"`
}

// CreateCustomerRequest describes the customer creation payload.
type CreateCustomerRequest struct {
	Name         string           `json:"name" validate:"required"`
	ContactEmail string           `json:"contact_email" validate:"omitempty,email"`
	Contacts     []ContactPayload `json:"contacts" validate:"dive"`
}

// UpdateCustomerRequest replaces customer fields and contacts.
type UpdateCustomerRequest struct {
	Name         string           `json:"name" validate:"required"`
	ContactEmail string           `json:"contact_email" validate:"omitempty,email"`
	Active       bool             `json:"active"`
	Contacts     []ContactPayload `json:"contacts" validate:"dive"`
}
