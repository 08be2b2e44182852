package taxclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// Client calls an external withholding service over HTTP.
// POST {baseURL}/withholding computes taxes, GET {baseURL}/health reports liveness.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// APIError represents a non-2xx reply from the provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tax provider error [%d]: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match every HTTP failure as an unavailable provider
func (e *APIError) Unwrap() error {
	return tax.ErrProviderUnavailable
}

// withholdingResponse uses pointers so a missing component is told apart from zero
type withholdingResponse struct {
	Federal  *decimal.Decimal `json:"federal"`
	State    *decimal.Decimal `json:"state"`
	Local    *decimal.Decimal `json:"local"`
	FICA     *decimal.Decimal `json:"fica"`
	Medicare *decimal.Decimal `json:"medicare"`
	FUTA     *decimal.Decimal `json:"futa"`
	SUTA     *decimal.Decimal `json:"suta"`
}

func (r withholdingResponse) toWithholding() (tax.Withholding, error) {
	fields := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"federal", r.Federal}, {"state", r.State}, {"local", r.Local},
		{"fica", r.FICA}, {"medicare", r.Medicare}, {"futa", r.FUTA}, {"suta", r.SUTA},
	}

	var missing []string
	for _, f := range fields {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return tax.Withholding{}, fmt.Errorf("%w: missing %s", tax.ErrMalformedResult, strings.Join(missing, ", "))
	}

	return tax.Withholding{
		Federal:  *r.Federal,
		State:    *r.State,
		Local:    *r.Local,
		FICA:     *r.FICA,
		Medicare: *r.Medicare,
		FUTA:     *r.FUTA,
		SUTA:     *r.SUTA,
	}, nil
}

func (c *Client) Calculate(ctx context.Context, req tax.Request) (tax.Withholding, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return tax.Withholding{}, fmt.Errorf("failed to encode withholding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/withholding", bytes.NewReader(body))
	if err != nil {
		return tax.Withholding{}, fmt.Errorf("failed to build withholding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tax.Withholding{}, ctxErr
		}
		return tax.Withholding{}, fmt.Errorf("%w: %v", tax.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tax.Withholding{}, newAPIError(resp)
	}

	var payload withholdingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return tax.Withholding{}, fmt.Errorf("%w: %v", tax.ErrMalformedResult, err)
	}

	return payload.toWithholding()
}

// Ping reports whether the provider's health endpoint answers 2xx
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", tax.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func newAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
