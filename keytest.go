package byok

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxTestErrLen truncates provider error text surfaced from a key test. The
// request that was sent is never echoed.
const maxTestErrLen = 200

// ProviderTester performs one minimal live call against an upstream provider
// to check that a credential is accepted.
type ProviderTester interface {
	Test(ctx context.Context, apiKey string) error
}

// TestResult is the caller-facing outcome of a key test. Error holds only a
// redacted, truncated provider message.
type TestResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AuthStyle selects how an HTTPTester attaches the credential.
type AuthStyle int

const (
	AuthBearer AuthStyle = iota
	AuthAPIKeyHeader
	AuthQueryParam
)

// HTTPTester checks a credential with a single GET against a provider's
// cheapest authenticated endpoint, typically the model listing.
type HTTPTester struct {
	URL    string
	Style  AuthStyle
	Client *http.Client
	// Extra headers some providers require alongside the credential.
	Headers map[string]string
}

func (t *HTTPTester) Test(ctx context.Context, apiKey string) error {
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	endpoint := t.URL
	if t.Style == AuthQueryParam {
		endpoint += "?key=" + url.QueryEscape(apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid request", ErrUpstreamTestFailed)
	}
	switch t.Style {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+apiKey)
	case AuthAPIKeyHeader:
		req.Header.Set("x-api-key", apiKey)
	}
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		// A transport error embeds the full request URL, credential query
		// included; surface only the underlying cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%w: network: %v", ErrUpstreamTestFailed, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused; the body content is discarded,
	// only the status matters.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: 401 unauthorized: key rejected", ErrUpstreamTestFailed)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: 403 forbidden", ErrUpstreamTestFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: 429 rate limited", ErrUpstreamTestFailed)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUpstreamTestFailed, resp.StatusCode)
	}
}

// defaultTesters wires the built-in HTTP testers for every provider. SDK-based
// testers (providers/upstream) can replace these via WithTester.
func defaultTesters() map[Provider]ProviderTester {
	return map[Provider]ProviderTester{
		ProviderOpenAI: &HTTPTester{
			URL:   "https://api.openai.com/v1/models",
			Style: AuthBearer,
		},
		ProviderAnthropic: &HTTPTester{
			URL:     "https://api.anthropic.com/v1/models",
			Style:   AuthAPIKeyHeader,
			Headers: map[string]string{"anthropic-version": "2023-06-01"},
		},
		ProviderGoogle: &HTTPTester{
			URL:   "https://generativelanguage.googleapis.com/v1beta/models",
			Style: AuthQueryParam,
		},
		ProviderMistral: &HTTPTester{
			URL:   "https://api.mistral.ai/v1/models",
			Style: AuthBearer,
		},
		ProviderOpenRouter: &HTTPTester{
			URL:   "https://openrouter.ai/api/v1/models",
			Style: AuthBearer,
		},
	}
}

// truncate caps error text surfaced to callers.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
