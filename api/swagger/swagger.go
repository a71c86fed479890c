package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OpsWindow API",
        "description": "Maintenance announcement and customer approval service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Operator authentication"},
        {"name": "Announcements", "description": "Maintenance announcement lifecycle"},
        {"name": "Customers", "description": "Customer directory and push contacts"},
        {"name": "Approvals", "description": "Customer approval links"},
        {"name": "Reports", "description": "Archived approval report downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Operator login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/announcements": {
            "get": {
                "tags": ["Announcements"],
                "summary": "List announcements",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated status filter"},
                    {"name": "customer_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Announcements"],
                "summary": "Create a maintenance announcement",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAnnouncementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/api/v1/announcements/{id}": {
            "get": {
                "tags": ["Announcements"],
                "summary": "Get one announcement with recipients and activity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Announcements"],
                "summary": "Update a mutable announcement",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAnnouncementRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Announcement no longer editable"}
                }
            },
            "delete": {
                "tags": ["Announcements"],
                "summary": "Delete a draft announcement",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Only drafts can be deleted"}
                }
            }
        },
        "/api/v1/announcements/{id}/status": {
            "patch": {
                "tags": ["Announcements"],
                "summary": "Move an announcement through its lifecycle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal lifecycle transition"}
                }
            }
        },
        "/api/v1/announcements/{id}/notifications": {
            "post": {
                "tags": ["Announcements"],
                "summary": "Dispatch notifications to recipients",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SendNotificationsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Dispatch tally", "schema": {"$ref": "#/definitions/DispatchResult"}},
                    "502": {"description": "Notification channel not configured"}
                }
            }
        },
        "/api/v1/announcements/{id}/reminders": {
            "post": {
                "tags": ["Announcements"],
                "summary": "Remind recipients that have not responded",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Dispatch tally", "schema": {"$ref": "#/definitions/DispatchResult"}}
                }
            }
        },
        "/api/v1/announcements/{id}/report": {
            "get": {
                "tags": ["Announcements"],
                "summary": "Export the approval report",
                "produces": ["application/pdf", "text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "csv"]}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        },
        "/api/v1/customers": {
            "get": {
                "tags": ["Customers"],
                "summary": "List customers",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Customers"],
                "summary": "Create a customer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCustomerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/customers/{id}": {
            "get": {
                "tags": ["Customers"],
                "summary": "Get a customer with its push contacts",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Customers"],
                "summary": "Update a customer and replace its contacts",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCustomerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Customers"],
                "summary": "Delete a customer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/approvals/{token}": {
            "get": {
                "tags": ["Approvals"],
                "summary": "View the maintenance window behind an approval link",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Link invalid or expired"}
                }
            }
        },
        "/approvals/{token}/approve": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Approve a maintenance window",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Recorded"},
                    "409": {"description": "Already decided or announcement closed"}
                }
            }
        },
        "/approvals/{token}/reject": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Reject a maintenance window with a reason",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "Recorded"},
                    "400": {"description": "Reason missing"},
                    "409": {"description": "Already decided or announcement closed"}
                }
            }
        },
        "/reports/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download an archived approval report via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "401": {"description": "Link invalid or expired"},
                    "404": {"description": "Report no longer available"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateAnnouncementRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "maintenance_type": {"type": "string", "enum": ["PATCH", "REBOOT", "SECURITY_UPDATE", "FIRMWARE", "GENERAL"]},
                "affected_systems": {"type": "string"},
                "start_at": {"type": "string", "format": "date-time"},
                "end_at": {"type": "string", "format": "date-time"},
                "require_approval": {"type": "boolean"},
                "approval_deadline": {"type": "string", "format": "date-time"},
                "auto_proceed": {"type": "boolean"},
                "internal_notes": {"type": "string"},
                "customer_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["title", "maintenance_type", "start_at"]
        },
        "UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["SCHEDULED", "SENT", "IN_PROGRESS", "COMPLETED", "CANCELLED"]}
            },
            "required": ["status"]
        },
        "SendNotificationsRequest": {
            "type": "object",
            "properties": {
                "customer_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "DispatchResult": {
            "type": "object",
            "properties": {
                "sent": {"type": "integer"},
                "failed": {"type": "integer"}
            }
        },
        "CreateCustomerRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "contact_email": {"type": "string"},
                "contacts": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ContactPayload"}
                }
            },
            "required": ["name"]
        },
        "ContactPayload": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "endpoint": {"type": "string"},
                "p256dh": {"type": "string"},
                "auth": {"type": "string"}
            },
            "required": ["endpoint", "p256dh", "auth"]
        },
        "RejectRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"},
                "actor": {"type": "string"}
            },
            "required": ["reason"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
