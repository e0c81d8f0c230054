package notification

import (
	"context"

	"travel-admin-api/internal/notification"
	"travel-admin-api/internal/service"
)

// ServiceAdapter adapts the webhook client to service.NotificationService
type ServiceAdapter struct {
	client notification.Notifier
}

// NewServiceAdapter creates a new notification service adapter
func NewServiceAdapter(client notification.Notifier) *ServiceAdapter {
	return &ServiceAdapter{
		client: client,
	}
}

// SendLaptopRequestNotification converts n and hands it to the webhook client.
func (a *ServiceAdapter) SendLaptopRequestNotification(ctx context.Context, n service.LaptopRequestNotification) error {
	metadata := make(map[string]string, len(n.Metadata)+2)
	for k, v := range n.Metadata {
		if v != "" {
			metadata[k] = v
		}
	}
	if n.RequestID != "" {
		metadata["laptop_request_id"] = n.RequestID
	}
	if n.CustomerName != "" {
		metadata["customer_name"] = n.CustomerName
	}

	return a.client.Send(ctx, notification.Notification{
		Level:         mapNotificationLevel(n.Type),
		Event:         string(n.Type),
		DestinationID: n.DestinationID,
		Message:       n.Message,
		Metadata:      metadata,
	})
}

// mapNotificationLevel maps service notification types to webhook levels
func mapNotificationLevel(notificationType service.NotificationType) notification.NotificationLevel {
	switch notificationType {
	case service.NotificationTypeLaptopRequestDeleted:
		return notification.LevelWarning
	default:
		return notification.LevelInfo
	}
}
