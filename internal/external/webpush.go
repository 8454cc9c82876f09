package external

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"fleetcare/internal/types"
)

// WebPushConfig holds VAPID credentials and delivery options.
type WebPushConfig struct {
	// VAPIDPublicKey is the base64url uncompressed P-256 point.
	VAPIDPublicKey string
	// VAPIDPrivateKey is the base64url 32-byte P-256 scalar.
	VAPIDPrivateKey types.SecretString
	// Subject is the VAPID "sub" claim, a mailto: or https: URL.
	Subject string
	TTL     time.Duration
	Logger  *slog.Logger
}

// WebPushClient implements PushProvider on top of webpush-go. Requests are
// sent through the BaseClient so retries and the circuit breaker apply.
type WebPushClient struct {
	base    *BaseClient
	options webpush.Options
	logger  *slog.Logger
}

// NewWebPushClient validates the VAPID key pair and returns a client sending
// through base.
func NewWebPushClient(base *BaseClient, cfg WebPushConfig) (*WebPushClient, error) {
	if err := checkVAPIDKeys(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey.Unmask()); err != nil {
		return nil, err
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("webpush: VAPID subject is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebPushClient{
		base: base,
		options: webpush.Options{
			HTTPClient: base,
			// webpush-go adds the mailto: scheme itself for non-https subjects.
			Subscriber:      strings.TrimPrefix(cfg.Subject, "mailto:"),
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey.Unmask(),
			TTL:             int(ttl.Seconds()),
			Urgency:         webpush.UrgencyNormal,
		},
		logger: logger,
	}, nil
}

// checkVAPIDKeys fails fast at startup when the configured public key does
// not belong to the private key.
func checkVAPIDKeys(publicKey, privateKey string) error {
	d, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(privateKey, "="))
	if err != nil {
		return fmt.Errorf("webpush: decoding VAPID private key: %w", err)
	}
	priv, err := ecdh.P256().NewPrivateKey(d)
	if err != nil {
		return fmt.Errorf("webpush: invalid VAPID private key: %w", err)
	}
	if got := base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()); got != strings.TrimRight(publicKey, "=") {
		return fmt.Errorf("webpush: VAPID public key does not match private key")
	}
	return nil
}

// Push encrypts payload for reg and posts it to the subscription endpoint.
// 404 and 410 mean the subscription expired; other non-2xx responses are
// rejections. Transport failures and exhausted retries return an error.
func (c *WebPushClient) Push(ctx context.Context, reg types.PushRegistration, payload []byte) (PushOutcome, error) {
	endpoint, err := url.Parse(reg.Endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return PushRejected, types.NewAppError(types.ErrCodeUpstreamPushProvider, "invalid push endpoint", err)
	}

	opts := c.options
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: reg.Endpoint,
		Keys:     webpush.Keys{P256dh: reg.P256DH, Auth: reg.Auth},
	}, &opts)
	if err != nil {
		return PushRejected, mapPushError(len(payload), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return PushDelivered, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return PushExpired, nil
	default:
		c.logger.WarnContext(ctx, "push service rejected message",
			"status", resp.StatusCode,
			"push_host", endpoint.Host,
		)
		return PushRejected, nil
	}
}

// mapPushError keeps BaseClient errors as they are and classifies the
// encryption and signing failures webpush-go returns.
func mapPushError(payloadLen int, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, webpush.ErrMaxPadExceeded) {
		return types.NewAppError(types.ErrCodeUpstreamPushProvider,
			fmt.Sprintf("push payload of %d bytes exceeds limit", payloadLen), err)
	}
	return types.NewAppError(types.ErrCodeUpstreamPushProvider, "failed to prepare push message", err)
}

var _ PushProvider = (*WebPushClient)(nil)
