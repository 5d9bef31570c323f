package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Payment is the payment service's view of a completed payment for a booking.
type Payment struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	PaidAt    time.Time `json:"paid_at"`
}

type RefundResult struct {
	RefundID string  `json:"refund_id"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

type PaymentClient struct {
	httpClient *HttpClient
}

func NewPaymentClient(baseURL string) *PaymentClient {
	return &PaymentClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// FindCompletedPayment returns the completed payment for a booking, or nil
// when the booking was never paid. Only transport and server errors are
// reported as errors.
func (c *PaymentClient) FindCompletedPayment(ctx context.Context, bookingID string) (*Payment, error) {
	path := "/api/v1/payments/completed?booking_id=" + url.QueryEscape(bookingID)
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("find completed payment for booking %s: %w", bookingID, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("find completed payment for booking %s: unexpected status %d: %s", bookingID, resp.StatusCode, GetErrorMessage(resp))
	}

	var wrapper struct {
		Data Payment `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("find completed payment for booking %s: decode response: %w", bookingID, err)
	}

	return &wrapper.Data, nil
}

func (c *PaymentClient) Refund(ctx context.Context, paymentID string, amount float64, reason string) (*RefundResult, error) {
	body := map[string]any{
		"amount": amount,
		"reason": reason,
	}
	resp, err := c.httpClient.POST(ctx, "/api/v1/payments/"+url.PathEscape(paymentID)+"/refund", body)
	if err != nil {
		return nil, fmt.Errorf("refund payment %s: %w", paymentID, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("refund payment %s: unexpected status %d: %s", paymentID, resp.StatusCode, GetErrorMessage(resp))
	}

	var wrapper struct {
		Data RefundResult `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("refund payment %s: decode response: %w", paymentID, err)
	}

	return &wrapper.Data, nil
}
