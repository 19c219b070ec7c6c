package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// httpBackend is the transport shared by the JSON-over-HTTP providers.
type httpBackend struct {
	name   string
	client *http.Client
	retry  retrypolicy.RetryPolicy[[]byte]
}

// postJSON marshals body, POSTs it to url with the given headers and
// returns the raw response body of a 200 answer. The request is rebuilt on
// every attempt.
func (b *httpBackend) postJSON(ctx context.Context, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s marshal: %w", b.name, err)
	}

	return withRetry(ctx, b.retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, permanent(fmt.Errorf("%s request: %w", b.name, err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := b.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s http: %w", b.name, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%s read body: %w", b.name, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Provider: b.name, StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		return respBody, nil
	})
}

// decode unmarshals a provider response; decoding failures are not retried.
func decode(name string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s unmarshal: %w", name, err)
	}
	return nil
}
