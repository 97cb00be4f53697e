// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/metrics"
	"github.com/tomtom215/flytrap/internal/models"
	"github.com/tomtom215/flytrap/internal/validation"
)

// telemetryRequest is the wire shape for telemetry submission. Only grants
// and the capture time are required. The optional modality fields decode as
// raw JSON so a wrong-typed value drops just that field instead of rejecting
// the whole sample. The session token is an optional correlation hint for
// monitors; telemetry is accepted whether or not it matches a retained
// session.
type telemetryRequest struct {
	SessionToken string          `json:"sessionToken" validate:"omitempty,uuid4"`
	Frame        json.RawMessage `json:"frame"`
	AudioLevel   json.RawMessage `json:"audioLevel"`
	Location     json.RawMessage `json:"location"`
	Grants       *models.Grants  `json:"grants" validate:"required"`
	CapturedAt   *time.Time      `json:"capturedAt" validate:"required"`
}

// SubmitTelemetry replaces the live telemetry slot and broadcasts the new
// sample. Rejections never mutate the registry.
func (h *Handler) SubmitTelemetry(w http.ResponseWriter, r *http.Request) {
	var req telemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			metrics.RecordTelemetryRejected("oversized_body")
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		metrics.RecordTelemetryRejected("malformed_body")
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if msg := validateRequest(&req); msg != "" {
		metrics.RecordTelemetryRejected("validation")
		respondError(w, http.StatusBadRequest, msg, nil)
		return
	}

	sample := buildSample(&req)
	h.registry.SetTelemetry(sample)

	frameBytes := 0
	if sample.Frame != nil {
		frameBytes = len(*sample.Frame)
	}
	metrics.RecordTelemetryIngested(frameBytes)

	h.broker.PublishTelemetry(req.SessionToken, sample)

	respondJSON(w, http.StatusOK, &models.TelemetryResponse{Success: true})
}

// TelemetryAck answers capture-page liveness probes.
func (h *Handler) TelemetryAck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// buildSample converts a validated request into a sample, decoding each
// optional modality independently. A field that fails its own decode or
// validation is dropped; the others still land.
func buildSample(req *telemetryRequest) *models.TelemetrySample {
	sample := &models.TelemetrySample{
		Grants:     *req.Grants,
		CapturedAt: req.CapturedAt.UTC(),
	}

	if frame := decodeFrame(req.Frame); frame != nil {
		sample.Frame = frame
	}
	if level := decodeAudioLevel(req.AudioLevel); level != nil {
		sample.AudioLevel = level
	}
	if loc := decodeLocation(req.Location); loc != nil {
		sample.Location = loc
	}

	return sample
}

// isAbsent treats both a missing key and an explicit null as "not sent".
func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func decodeFrame(raw json.RawMessage) *string {
	if isAbsent(raw) {
		return nil
	}
	var frame string
	if err := json.Unmarshal(raw, &frame); err != nil {
		logging.Debug().Msg("Dropping wrong-typed frame field")
		return nil
	}
	if frame == "" {
		return nil
	}
	if err := validation.GetValidator().Var(frame, "framedata"); err != nil {
		logging.Debug().Msg("Dropping frame with invalid encoding")
		return nil
	}
	return &frame
}

func decodeAudioLevel(raw json.RawMessage) *float64 {
	if isAbsent(raw) {
		return nil
	}
	var level float64
	if err := json.Unmarshal(raw, &level); err != nil {
		logging.Debug().Msg("Dropping wrong-typed audioLevel field")
		return nil
	}
	if level < 0 || level > 100 {
		logging.Debug().Float64("audio_level", level).Msg("Dropping out-of-range audioLevel")
		return nil
	}
	return &level
}

func decodeLocation(raw json.RawMessage) *models.GeoPoint {
	if isAbsent(raw) {
		return nil
	}
	var loc models.GeoPoint
	if err := json.Unmarshal(raw, &loc); err != nil {
		logging.Debug().Msg("Dropping wrong-typed location field")
		return nil
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		logging.Debug().Msg("Dropping out-of-range location")
		return nil
	}
	return &loc
}
