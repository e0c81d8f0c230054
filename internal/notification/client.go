// Package notification posts laptop request events to an outbound webhook.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	source    = "travel-admin-api"
	userAgent = "travel-admin-api/1.0"
)

// NotificationLevel represents the severity level of a notification
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
)

// errPermanent marks failures that retrying cannot fix
var errPermanent = errors.New("permanent notification failure")

// Notifier is an interface for sending notifications with context support
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
	IsHealthy(ctx context.Context) bool
}

// NotificationConfig holds configuration for the notification client
type NotificationConfig struct {
	URL            string
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	MaxPayloadSize int64
}

// DefaultConfig returns a default configuration for the notification client
func DefaultConfig(url string) NotificationConfig {
	return NotificationConfig{
		URL:            url,
		Timeout:        10 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Second,
		MaxPayloadSize: 1024 * 1024,
	}
}

type notificationClient struct {
	config   NotificationConfig
	client   *http.Client
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewNotifier creates a Notifier posting to cfg.URL. Zero timeout, delay and
// payload limit take the DefaultConfig values.
func NewNotifier(cfg NotificationConfig, logger zerolog.Logger) Notifier {
	defaults := DefaultConfig(cfg.URL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = defaults.MaxPayloadSize
	}

	return &notificationClient{
		config:   cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With().Str("component", "notifier").Logger(),
		validate: validator.New(),
	}
}

// Notification represents the payload for the webhook
type Notification struct {
	Level         NotificationLevel `json:"level" validate:"required,oneof=info warning"`
	Event         string            `json:"event" validate:"required,max=64"`
	DestinationID string            `json:"destinationId,omitempty" validate:"max=32"`
	Message       string            `json:"message" validate:"required,max=1000"`
	Timestamp     time.Time         `json:"timestamp,omitempty"`
	Source        string            `json:"source,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Send posts notification, retrying transient failures with a linear backoff.
func (c *notificationClient) Send(ctx context.Context, notification Notification) error {
	if err := c.validate.Struct(notification); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid notification"), errPermanent)
	}

	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now().UTC()
	}
	if notification.Source == "" {
		notification.Source = source
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}
	if int64(len(payload)) > c.config.MaxPayloadSize {
		return errors.Mark(
			errors.Newf("notification payload too large: %d bytes (max %d)", len(payload), c.config.MaxPayloadSize),
			errPermanent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
			c.logger.Debug().Int("attempt", attempt+1).Int("max_attempts", c.config.RetryAttempts+1).Msg("retrying notification")
		}

		lastErr = c.sendAttempt(ctx, payload)
		if lastErr == nil {
			return nil
		}
		c.logger.Warn().Err(lastErr).Int("attempt", attempt+1).Str("event", notification.Event).Msg("notification attempt failed")
		if errors.Is(lastErr, errPermanent) {
			return lastErr
		}
	}

	return errors.Wrapf(lastErr, "failed to send notification after %d attempts", c.config.RetryAttempts+1)
}

func (c *notificationClient) sendAttempt(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to create request"), errPermanent)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return errors.Newf("webhook returned status %d: %s", resp.StatusCode, body)
	case resp.StatusCode >= 400:
		return errors.Mark(errors.Newf("webhook returned status %d: %s", resp.StatusCode, body), errPermanent)
	}
	return nil
}

// IsHealthy reports whether the webhook host answers a HEAD request without a
// server error.
func (c *notificationClient) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.config.URL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}
