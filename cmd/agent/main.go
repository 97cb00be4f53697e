// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

// Package main is the Flytrap capture agent: a headless client that
// registers a session with a Flytrap server and streams simulated
// telemetry through the same capture loop the instrumented pages use.
// Intended for load testing, dashboard demos, and end-to-end checks of a
// deployment.
//
// Usage:
//
//	flytrap-agent -server http://localhost:8080 -name "Alice Example"
//	flytrap-agent -server http://localhost:8080 -frame-file snapshot.jpg -lat 39.95 -lon -75.16
//	flytrap-agent -hash-password 'secret'   # print a bcrypt hash for ADMIN_PASSWORD_HASH
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/flytrap/internal/auth"
	"github.com/tomtom215/flytrap/internal/capture"
	"github.com/tomtom215/flytrap/internal/config"
	"github.com/tomtom215/flytrap/internal/logging"
)

const agentUserAgent = "Flytrap-Agent/1.0 (Linux; headless)"

func main() {
	var (
		serverURL    = flag.String("server", "", "Flytrap server URL (overrides CAPTURE_SERVER_URL)")
		name         = flag.String("name", "", "identity name to submit")
		phone        = flag.String("phone", "", "identity phone to submit")
		email        = flag.String("email", "", "identity email to submit")
		frameFile    = flag.String("frame-file", "", "image file replayed as camera frames")
		lat          = flag.Float64("lat", 0, "simulated latitude")
		lon          = flag.Float64("lon", 0, "simulated longitude")
		hashPassword = flag.String("hash-password", "", "print a bcrypt hash for the given password and exit")
	)
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	target := cfg.Capture.ServerURL
	if *serverURL != "" {
		target = *serverURL
	}
	if target == "" {
		logging.Fatal().Msg("No server URL: set -server or CAPTURE_SERVER_URL")
	}

	client := capture.NewClient(target, cfg.Capture.SubmitTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submission := map[string]string{
		"name":      *name,
		"phone":     *phone,
		"email":     *email,
		"userAgent": agentUserAgent,
	}
	if err := client.RegisterSession(ctx, submission); err != nil {
		logging.Fatal().Err(err).Str("server", target).Msg("Session registration failed")
	}
	logging.Info().
		Str("server", target).
		Str("session_token", client.SessionToken()).
		Msg("Session registered")

	provider := capture.NewSimulatedProvider(capture.SimulatedOptions{
		FramePath: *frameFile,
		Latitude:  *lat,
		Longitude: *lon,
	})
	controller := capture.NewController(provider, client, cfg.Capture)

	if err := controller.Start(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Capture start failed")
	}
	if controller.State() == capture.StateDenied {
		logging.Fatal().Msg("Capture denied")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info().Str("signal", sig.String()).Msg("Stopping capture")

	controller.Stop()
	logging.Info().Msg("Agent stopped")
}
