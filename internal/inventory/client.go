package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnexpectedResponse = errors.New("inventory: unexpected response")

// Device is what the inventory service knows about an IMEI.
type Device struct {
	Brand  string          `json:"brand"`
	Model  string          `json:"model"`
	Price  decimal.Decimal `json:"price"`
	Status string          `json:"status"`
}

// Lookup resolves an IMEI against inventory. A nil device with a nil error
// means inventory has no record, which is a normal outcome.
type Lookup interface {
	Lookup(ctx context.Context, imei string) (*Device, error)
}

// Client calls GET {baseURL}/devices/{imei}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Lookup(ctx context.Context, imei string) (*Device, error) {
	if c.baseURL == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/devices/"+url.PathEscape(imei), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w (status=%d)", ErrUnexpectedResponse, res.StatusCode)
	}

	var d Device
	if err := json.NewDecoder(res.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &d, nil
}
