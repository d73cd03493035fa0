// Package notify delivers one-time verification codes to account holders.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"familyvault/internal/logger"
)

// Message is one code delivery.
type Message struct {
	AccountID string    `json:"accountId"`
	Email     string    `json:"email"`
	Phone     string    `json:"phoneNumber"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifier sends verification codes.
type Notifier interface {
	SendOTP(ctx context.Context, msg Message) error
}

// GatewayNotifier posts codes as JSON to an SMS/e-mail gateway.
type GatewayNotifier struct {
	client *resty.Client
	log    *zap.Logger
}

var _ Notifier = (*GatewayNotifier)(nil)

// NewGatewayNotifier returns a notifier posting to baseURL. token, when set,
// is sent as a bearer credential.
func NewGatewayNotifier(baseURL, token string, log *zap.Logger) *GatewayNotifier {
	client := resty.New().
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &GatewayNotifier{client: client, log: log}
}

func (n *GatewayNotifier) SendOTP(ctx context.Context, msg Message) error {
	log := logger.FromContext(ctx, n.log)

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("/otp")
	if err != nil {
		log.Error("otp_delivery_failed", zap.String("account_id", msg.AccountID), zap.Error(err))
		return fmt.Errorf("send otp: %w", err)
	}
	if resp.IsError() {
		log.Error("otp_delivery_rejected",
			zap.String("account_id", msg.AccountID),
			zap.Int("status", resp.StatusCode()),
		)
		return fmt.Errorf("send otp: gateway returned %d", resp.StatusCode())
	}

	log.Info("otp_delivered", zap.String("account_id", msg.AccountID))
	return nil
}

// LogNotifier records that a code was issued without revealing it. It is
// used when no gateway is configured.
type LogNotifier struct {
	log *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendOTP(ctx context.Context, msg Message) error {
	logger.FromContext(ctx, n.log).Info("otp_issued",
		zap.String("account_id", msg.AccountID),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}
