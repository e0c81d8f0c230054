package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"travel-admin-api/internal/model"
)

// NotificationService interface for sending notifications
type NotificationService interface {
	SendLaptopRequestNotification(ctx context.Context, notification LaptopRequestNotification) error
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeLaptopRequestCreated NotificationType = "laptop_request_created"
	NotificationTypeLaptopRequestDeleted NotificationType = "laptop_request_deleted"
)

// LaptopRequestNotification represents a notification about a laptop request
type LaptopRequestNotification struct {
	Type          NotificationType
	RequestID     string
	DestinationID string
	CustomerName  string
	Message       string
	Metadata      map[string]string
}

// Option customizes a LaptopRequestService.
type Option func(*LaptopRequestService)

// WithInlineNotifications makes notifications complete before the operation
// returns, each bounded by timeout. Use it where work left running after the
// response may be frozen, as in a function runtime.
func WithInlineNotifications(timeout time.Duration) Option {
	return func(s *LaptopRequestService) {
		s.inlineNotifyTimeout = timeout
	}
}

// notify sends n in the background, or inline when configured. Failures are
// logged and never reach the caller.
func (s *LaptopRequestService) notify(ctx context.Context, n LaptopRequestNotification) {
	if s.notifier == nil {
		return
	}

	send := func(ctx context.Context) {
		if err := s.notifier.SendLaptopRequestNotification(ctx, n); err != nil {
			s.logger.Warn().Err(err).
				Str("event", string(n.Type)).
				Str("laptop_request_id", n.RequestID).
				Msg("failed to send notification")
		}
	}

	if s.inlineNotifyTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.inlineNotifyTimeout)
		defer cancel()
		send(ctx)
		return
	}
	go send(context.Background())
}

func creationNotification(row model.Row) LaptopRequestNotification {
	customer := stringValue(row[model.ColumnCustomerName])
	destination := stringValue(row[model.ColumnDestinationID])

	return LaptopRequestNotification{
		Type:          NotificationTypeLaptopRequestCreated,
		RequestID:     stringValue(row[model.ColumnID]),
		DestinationID: destination,
		CustomerName:  customer,
		Message:       fmt.Sprintf("New laptop request from %s for destination %s", customer, destination),
		Metadata: map[string]string{
			"laptop_model":   stringValue(row[model.ColumnLaptopModel]),
			"customer_phone": stringValue(row[model.ColumnCustomerPhone]),
		},
	}
}

func deletionNotification(id int64) LaptopRequestNotification {
	return LaptopRequestNotification{
		Type:      NotificationTypeLaptopRequestDeleted,
		RequestID: strconv.FormatInt(id, 10),
		Message:   fmt.Sprintf("Laptop request %d was deleted", id),
	}
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
