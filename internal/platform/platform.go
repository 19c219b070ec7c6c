// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package platform holds the clients for the social platforms posts are
// published to and the timeline sources the historical corpus is read from.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"socialpilot/internal/models"
)

// Publisher delivers a post and returns the platform's id for it.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, text string) (string, error)
}

// TimelineSource fetches an account's recent publications.
type TimelineSource interface {
	FetchRecent(ctx context.Context, account string, limit int) ([]models.HistoricalDraft, error)
}

// APIError is a non-2xx answer from a platform API.
type APIError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Platform, e.StatusCode, e.Body)
}

func (e *APIError) temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// readRetryPolicy retries timeline reads on network errors, 429 and 5xx.
// Publishing never goes through it.
func readRetryPolicy() retrypolicy.RetryPolicy[[]byte] {
	return retrypolicy.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool {
			if err == nil {
				return false
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.temporary()
			}
			return true
		}).
		WithBackoff(200*time.Millisecond, 3*time.Second).
		WithMaxRetries(2).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		Build()
}

// do sends req and returns the body of a 2xx response.
func do(client *http.Client, name string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s http: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Platform: name, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// getJSON performs a retried GET and decodes the response into out.
func getJSON(ctx context.Context, client *http.Client, policy retrypolicy.RetryPolicy[[]byte], name, url string, headers map[string]string, out any) error {
	body, err := failsafe.With(policy).WithContext(ctx).Get(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("%s request: %w", name, err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return do(client, name, req)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s unmarshal: %w", name, err)
	}
	return nil
}

// postJSON performs a single POST attempt and decodes the response into out.
func postJSON(ctx context.Context, client *http.Client, name, url string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s marshal: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	body, err := do(client, name, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s unmarshal: %w", name, err)
	}
	return nil
}
