package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// Contact is one deliverable push subscription belonging to a customer.
type Contact struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Summary is the notification payload describing a maintenance window.
type Summary struct {
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	MaintenanceType string    `json:"maintenance_type"`
	AffectedSystems string    `json:"affected_systems,omitempty"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at,omitempty"`
	ApprovalURL     string    `json:"approval_url,omitempty"`
	Reminder        bool      `json:"reminder,omitempty"`
}

// Dispatcher is the delivery boundary the core depends on. Implementations
// must treat each Send independently; the caller owns batch semantics.
type Dispatcher interface {
	Send(ctx context.Context, contact Contact, summary Summary) error
	IsConfigured() bool
}

// VAPIDConfig carries web push credentials. It is injected at construction
// time; there is no package-level key state.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        int
}

// WebPushDispatcher delivers summaries over the Web Push protocol.
type WebPushDispatcher struct {
	cfg    VAPIDConfig
	logger *zap.Logger
}

// NewWebPushDispatcher constructs a dispatcher from explicit VAPID configuration.
func NewWebPushDispatcher(cfg VAPIDConfig, logger *zap.Logger) *WebPushDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 86400
	}
	return &WebPushDispatcher{cfg: cfg, logger: logger}
}

// IsConfigured reports whether VAPID keys are present.
func (d *WebPushDispatcher) IsConfigured() bool {
	return d.cfg.PublicKey != "" && d.cfg.PrivateKey != ""
}

// Send pushes the summary to a single subscription endpoint.
func (d *WebPushDispatcher) Send(ctx context.Context, contact Contact, summary Summary) error {
	if !d.IsConfigured() {
		return fmt.Errorf("webpush dispatcher is not configured")
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	sub := &webpush.Subscription{
		Endpoint: contact.Endpoint,
		Keys: webpush.Keys{
			P256dh: contact.P256dh,
			Auth:   contact.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      d.cfg.Subject,
		VAPIDPublicKey:  d.cfg.PublicKey,
		VAPIDPrivateKey: d.cfg.PrivateKey,
		TTL:             d.cfg.TTL,
	})
	if err != nil {
		return fmt.Errorf("send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		d.logger.Warn("push endpoint rejected notification",
			zap.String("endpoint", contact.Endpoint),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
