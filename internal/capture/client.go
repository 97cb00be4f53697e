// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flytrap/internal/models"
)

// telemetryPayload mirrors the server's telemetry wire shape. The session
// token is an optional correlation hint; an unregistered client omits it.
type telemetryPayload struct {
	SessionToken string           `json:"sessionToken,omitempty"`
	Frame        *string          `json:"frame,omitempty"`
	AudioLevel   *float64         `json:"audioLevel,omitempty"`
	Location     *models.GeoPoint `json:"location,omitempty"`
	Grants       models.Grants    `json:"grants"`
	CapturedAt   time.Time        `json:"capturedAt"`
}

// Client talks to the Flytrap server's capture endpoints.
type Client struct {
	baseURL      string
	sessionToken string
	httpClient   *http.Client
}

// NewClient creates an agent client. The session token is set by
// RegisterSession.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SessionToken returns the token assigned at registration.
func (c *Client) SessionToken() string {
	return c.sessionToken
}

// RegisterSession submits the session descriptor bundle and stores the
// assigned session token for subsequent telemetry.
func (c *Client) RegisterSession(ctx context.Context, submission interface{}) error {
	body, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	var resp models.SubmissionResponse
	if err := c.post(ctx, "/api/v1/sessions", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("session rejected: %s", resp.Error)
	}

	c.sessionToken = resp.SessionToken
	return nil
}

// Submit implements Submitter, delivering one telemetry sample. Submission
// does not require a registered session; the token only correlates samples
// with a profile for monitors.
func (c *Client) Submit(ctx context.Context, sample *models.TelemetrySample) error {
	body, err := json.Marshal(&telemetryPayload{
		SessionToken: c.sessionToken,
		Frame:        sample.Frame,
		AudioLevel:   sample.AudioLevel,
		Location:     sample.Location,
		Grants:       sample.Grants,
		CapturedAt:   sample.CapturedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry: %w", err)
	}

	var resp models.TelemetryResponse
	if err := c.post(ctx, "/api/v1/telemetry", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("telemetry rejected: %s", resp.Error)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
