package identverify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Registry validates a registry number against the external business
// registry. Implementations must be safe for concurrent use.
type Registry interface {
	Validate(ctx context.Context, registryNumber string) (*ValidationResult, error)
}

// HTTPRegistry talks to the business registry's lookup API.
type HTTPRegistry struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPRegistry constructs a registry client. The timeout bounds the whole
// round trip; validation is the only blocking step in the comparison
// pipeline.
func NewHTTPRegistry(baseURL, apiKey string, timeout time.Duration) *HTTPRegistry {
	return &HTTPRegistry{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRegistry) Validate(ctx context.Context, registryNumber string) (*ValidationResult, error) {
	endpoint := fmt.Sprintf("%s/v1/companies/%s/validate", r.baseURL, url.PathEscape(registryNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result ValidationResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode registry response: %w", err)
		}
		return &result, nil
	case http.StatusNotFound:
		return &ValidationResult{IsValid: false, Flags: []string{"not_found"}}, nil
	default:
		return nil, fmt.Errorf("registry lookup: unexpected status %d", resp.StatusCode)
	}
}

// MockRegistry returns deterministic verdicts with a configurable latency to
// mimic real-world calls. Used for local development wiring.
type MockRegistry struct {
	Latency time.Duration
}

func (m MockRegistry) Validate(_ context.Context, registryNumber string) (*ValidationResult, error) {
	time.Sleep(m.Latency)
	if registryNumber == "" {
		return &ValidationResult{IsValid: false, Flags: []string{"not_found"}}, nil
	}
	return &ValidationResult{IsValid: true, CanonicalName: "Sample Company B.V."}, nil
}
