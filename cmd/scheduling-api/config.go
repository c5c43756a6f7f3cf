// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/groupcal/scheduling-service/internal/infrastructure/email"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// flags are the command line flags for the scheduling service.
type flags struct {
	Debug bool
}

// environment are the environment variables for the scheduling service.
type environment struct {
	NatsURL            string
	ServedDomains      []string
	QueueWorkers       int
	SuppressNewInvites bool
	RelayInterval      time.Duration
	SMTP               email.SMTPConfig
	SMTPEnabled        bool
}

// parseFlags parses command line flags for the scheduling service
func parseFlags() flags {
	var debug = flag.Bool("d", false, "enable debug logging")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
	}
}

// parseEnv parses environment variables for the scheduling service
func parseEnv() environment {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	var servedDomains []string
	for _, domain := range strings.Split(os.Getenv("SCHEDULING_SERVED_DOMAINS"), ",") {
		domain = strings.TrimSpace(domain)
		if domain != "" {
			servedDomains = append(servedDomains, domain)
		}
	}
	if len(servedDomains) == 0 {
		slog.Warn("SCHEDULING_SERVED_DOMAINS is not set, every recipient is treated as external")
	}

	queueWorkers := 10
	if raw := os.Getenv("SCHEDULING_QUEUE_WORKERS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			slog.With("value", raw).Warn("invalid SCHEDULING_QUEUE_WORKERS, using default")
		} else {
			queueWorkers = parsed
		}
	}

	relayInterval := time.Minute
	if raw := os.Getenv("SCHEDULING_RELAY_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			slog.With("value", raw).Warn("invalid SCHEDULING_RELAY_INTERVAL, using default")
		} else {
			relayInterval = parsed
		}
	}

	return environment{
		NatsURL:            natsURL,
		ServedDomains:      servedDomains,
		QueueWorkers:       queueWorkers,
		SuppressNewInvites: os.Getenv("SCHEDULING_SUPPRESS_NEW_INVITES") == "true",
		RelayInterval:      relayInterval,
		SMTP:               parseSMTPConfig(),
		SMTPEnabled:        os.Getenv("SMTP_HOST") != "",
	}
}

// parseSMTPConfig parses SMTP relay configuration from environment variables
func parseSMTPConfig() email.SMTPConfig {
	port := 587
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			slog.With("value", raw).Warn("invalid SMTP_PORT, using default")
		} else {
			port = parsed
		}
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "scheduling@localhost"
	}

	return email.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		From:     from,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
}
