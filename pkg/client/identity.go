package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"slotwise/pkg/model"
)

// ErrUserNotFound is returned when the identity service does not know the id.
var ErrUserNotFound = errors.New("user not found")

// IdentityClient talks to the identity service. The booking core only reads
// from it: user resolution plus the provider's weekly availability windows.
type IdentityClient struct {
	httpClient *HttpClient
}

func NewIdentityClient(baseURL string) *IdentityClient {
	return &IdentityClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *IdentityClient) ResolveUser(ctx context.Context, id string) (*model.UserProfile, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/users/"+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", id, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("resolve user %s: unexpected status %d: %s", id, resp.StatusCode, GetErrorMessage(resp))
	}

	var wrapper struct {
		Data model.UserProfile `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("resolve user %s: decode response: %w", id, err)
	}

	return &wrapper.Data, nil
}

// GetAvailability fetches the provider's fixed weekly availability windows.
func (c *IdentityClient) GetAvailability(ctx context.Context, providerID string) ([]model.AvailabilityWindow, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/users/"+url.PathEscape(providerID)+"/availability")
	if err != nil {
		return nil, fmt.Errorf("get availability for %s: %w", providerID, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("get availability for %s: unexpected status %d: %s", providerID, resp.StatusCode, GetErrorMessage(resp))
	}

	var wrapper struct {
		Data []model.AvailabilityWindow `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("get availability for %s: decode response: %w", providerID, err)
	}

	return wrapper.Data, nil
}
