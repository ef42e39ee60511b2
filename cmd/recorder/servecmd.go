package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/domreplay/recorder/internal/config"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/telemetry"
	"github.com/domreplay/recorder/pkg/transport"
)

func serveCmd() *cobra.Command {
	var (
		addr        string
		idleTimeout time.Duration
		trace       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo HTTP/websocket server that hosts live recording sessions",
		Long: `serve starts pkg/transport's Server: POST /record opens a new
session against a synthetic document, GET /record/{id}/events streams
its event log to a websocket viewer, and DELETE /record/{id} stops it.
It is the one command that actually drives pkg/transport end to end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(addr, idleTimeout, trace)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8090", "address to listen on")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 10*time.Minute, "how long an unread session is kept before it is reaped")
	cmd.Flags().BoolVar(&trace, "trace", false, "wrap every session's sink in an OpenTelemetry span per event")

	return cmd
}

func serve(addr string, idleTimeout time.Duration, trace bool) error {
	logger := slog.Default()

	registry := transport.NewRegistry(transport.RegistryOptions{
		IdleTimeout: idleTimeout,
		Logger:      logger,
	})

	newOptions := func() config.RecordOptions {
		opts := config.RecordOptions{
			CheckoutEveryNth: 200,
			CheckoutEveryNms: 30 * time.Second,
		}
		if trace {
			// Composes telemetry.WrapSink ahead of Registry.Start's own
			// broadcast-to-viewers sink, so every event is spanned
			// regardless of whether any viewer is currently attached.
			opts.Emit = telemetry.WrapSink(func(e event.Event, isCheckout bool) error { return nil })
		}
		return opts
	}

	srv := transport.NewServer(registry, newOptions, logger)

	info("listening on %s", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
