// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flytrap/internal/models"
)

func TestClientRegisterAndSubmit(t *testing.T) {
	var gotTelemetry telemetryPayload

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&models.SubmissionResponse{
			Success:      true,
			ProfileID:    7,
			SessionToken: "0f61d9a2-94df-4efc-8f3c-0d05b9f4a21d",
		})
	})
	mux.HandleFunc("POST /api/v1/telemetry", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotTelemetry); err != nil {
			t.Errorf("decode telemetry: %v", err)
		}
		_ = json.NewEncoder(w).Encode(&models.TelemetryResponse{Success: true})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if err := client.RegisterSession(context.Background(), map[string]string{"userAgent": "test-agent"}); err != nil {
		t.Fatalf("RegisterSession: %v", err)
	}
	if client.SessionToken() != "0f61d9a2-94df-4efc-8f3c-0d05b9f4a21d" {
		t.Fatalf("token = %q", client.SessionToken())
	}

	level := 12.5
	sample := &models.TelemetrySample{
		AudioLevel: &level,
		Grants:     models.Grants{Microphone: true},
		CapturedAt: time.Now().UTC(),
	}
	if err := client.Submit(context.Background(), sample); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotTelemetry.SessionToken != client.SessionToken() {
		t.Error("telemetry missing session token")
	}
	if gotTelemetry.AudioLevel == nil || *gotTelemetry.AudioLevel != 12.5 {
		t.Error("audio level not forwarded")
	}
}

func TestClientSubmitWithoutSessionOmitsToken(t *testing.T) {
	var raw map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode telemetry: %v", err)
		}
		_ = json.NewEncoder(w).Encode(&models.TelemetryResponse{Success: true})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	sample := &models.TelemetrySample{
		Grants:     models.Grants{Microphone: true},
		CapturedAt: time.Now().UTC(),
	}
	if err := client.Submit(context.Background(), sample); err != nil {
		t.Fatalf("Submit before registration: %v", err)
	}
	if _, present := raw["sessionToken"]; present {
		t.Error("sessionToken should be omitted for an unregistered client")
	}
}

func TestClientSurfacesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(&models.SubmissionResponse{Success: false, Error: "invalid request body"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	err := client.RegisterSession(context.Background(), map[string]string{})
	if err == nil {
		t.Fatal("expected rejection error")
	}
}
