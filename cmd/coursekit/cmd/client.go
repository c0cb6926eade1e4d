package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xu2799/it-platform-frontend/internal/config"
	"github.com/xu2799/it-platform-frontend/internal/service"
	"github.com/xu2799/it-platform-frontend/internal/telemetry"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// openRuntime loads the configuration and assembles a bootstrapped runtime
// for one command. The returned function releases it.
func openRuntime(cmd *cobra.Command) (*service.Runtime, func(), error) {
	if err := checkOutputFormat(); err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, nil, err
	}
	if traceFlag {
		cfg.Tracing.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	level := parseLogLevel(cfg.LogLevel)
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if used := config.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tracing, err := telemetry.NewTracing(cfg.Tracing.Enabled, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}
	reg := prometheus.NewRegistry()

	rt, err := service.NewRuntime(ctx, cfg,
		service.WithLogger(logger),
		service.WithRegistry(reg),
		service.WithTracer(tracing.Tracer()),
	)
	if err != nil {
		_ = tracing.Shutdown(ctx)
		return nil, nil, err
	}
	if err := rt.Bootstrap(ctx); err != nil {
		_ = rt.Close()
		_ = tracing.Shutdown(ctx)
		return nil, nil, err
	}

	cleanup := func() {
		if metricsFlag {
			if err := writeMetrics(cmd.ErrOrStderr(), reg); err != nil {
				logger.Warn("failed to write metrics", "error", err)
			}
		}
		if err := rt.Close(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
		if err := tracing.Shutdown(ctx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}
	return rt, cleanup, nil
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func checkOutputFormat() error {
	switch outputFormat {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", outputFormat)
}

// render writes v in the selected output format. text is used for the text
// format.
func render(w io.Writer, v any, text func(io.Writer)) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		// Round-trip through JSON so the json tags and custom marshalers
		// decide the field names; the yaml node keeps their order.
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return err
		}
		clearStyle(&node)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

// clearStyle drops the flow and quoting styles the JSON input carried so
// the encoder emits block YAML.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return err
		}
	}
	_, err = w.Write(buf.Bytes())
	return err
}
