package client

import (
	"context"
	"fmt"
	"net/http"
)

// Notice is one outbound notification. Delivery is fire-and-forget from the
// booking core's perspective; the notification service owns channels and
// retries past acceptance.
type Notice struct {
	Recipient string         `json:"recipient"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

type NotificationClient struct {
	httpClient *HttpClient
}

func NewNotificationClient(baseURL string) *NotificationClient {
	return &NotificationClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *NotificationClient) Send(ctx context.Context, notice Notice) error {
	resp, err := c.httpClient.POST(ctx, "/api/v1/notifications", notice)
	if err != nil {
		return fmt.Errorf("send %s notice to %s: %w", notice.Type, notice.Recipient, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("send %s notice to %s: unexpected status %d: %s", notice.Type, notice.Recipient, resp.StatusCode, GetErrorMessage(resp))
	}

	return nil
}
