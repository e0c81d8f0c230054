package notification

import (
	"context"
	"testing"

	"travel-admin-api/internal/notification"
	"travel-admin-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	got notification.Notification
}

func (c *captureNotifier) Send(_ context.Context, n notification.Notification) error {
	c.got = n
	return nil
}

func (c *captureNotifier) IsHealthy(context.Context) bool { return true }

func TestServiceAdapter_SendLaptopRequestNotification(t *testing.T) {
	client := &captureNotifier{}
	adapter := NewServiceAdapter(client)

	err := adapter.SendLaptopRequestNotification(context.Background(), service.LaptopRequestNotification{
		Type:          service.NotificationTypeLaptopRequestCreated,
		RequestID:     "12",
		DestinationID: "3",
		CustomerName:  "Ann",
		Message:       "New laptop request from Ann for destination 3",
		Metadata:      map[string]string{"laptop_model": "X1", "customer_phone": ""},
	})
	require.NoError(t, err)

	assert.Equal(t, notification.LevelInfo, client.got.Level)
	assert.Equal(t, "laptop_request_created", client.got.Event)
	assert.Equal(t, "3", client.got.DestinationID)
	assert.Equal(t, map[string]string{
		"laptop_model":      "X1",
		"laptop_request_id": "12",
		"customer_name":     "Ann",
	}, client.got.Metadata)
}

func TestServiceAdapter_DeletionIsWarning(t *testing.T) {
	client := &captureNotifier{}
	adapter := NewServiceAdapter(client)

	err := adapter.SendLaptopRequestNotification(context.Background(), service.LaptopRequestNotification{
		Type:      service.NotificationTypeLaptopRequestDeleted,
		RequestID: "5",
		Message:   "Laptop request 5 was deleted",
	})
	require.NoError(t, err)

	assert.Equal(t, notification.LevelWarning, client.got.Level)
	assert.Equal(t, "laptop_request_deleted", client.got.Event)
	assert.Empty(t, client.got.DestinationID)
	assert.Equal(t, map[string]string{"laptop_request_id": "5"}, client.got.Metadata)
}
