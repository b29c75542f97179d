// Command feedquery reads Chainlink price feeds: latest answers, historical
// rounds and the aggregator phases behind a proxy. Several reads are batched
// into one Multicall3 round trip.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/archon-research/feedquery/internal/adapters/outbound/telemetry"
	"github.com/archon-research/feedquery/internal/config"
	"github.com/archon-research/feedquery/internal/pkg/env"
	"github.com/archon-research/feedquery/internal/services/feeds"
)

// CLI is the command tree.
type CLI struct {
	Config   string `help:"Path to a YAML config file." name:"config" type:"path"`
	Verbose  bool   `help:"Enable debug logs." short:"v"`
	RPCURL   string `help:"RPC endpoint, overrides the chain's configured URL." name:"rpc-url" env:"RPC_URL"`
	RPCURLID string `help:"Credential substituted into RPC URL templates." name:"rpc-url-id" env:"RPC_URL_ID"`

	Oracle          OracleCmd          `cmd:"" help:"Show the registry entry of a pair."`
	LatestAnswer    LatestAnswerCmd    `cmd:"" name:"latest-answer" help:"Read latestAnswer() of one or more pairs."`
	LatestRoundData LatestRoundDataCmd `cmd:"" name:"latest-round-data" help:"Read latestRoundData() of one or more pairs."`
	RoundData       RoundDataCmd       `cmd:"" name:"round-data" help:"Read getRoundData() for one or more round ids."`
	Description     DescriptionCmd     `cmd:"" help:"Read description() of one or more pairs."`
	Phases          PhasesCmd          `cmd:"" help:"List the aggregator phases behind a proxy."`
	History         HistoryCmd         `cmd:"" help:"Read the last rounds of a pair."`
	Feeds           FeedsCmd           `cmd:"" help:"List the feeds known for a chain."`
	Chains          ChainsCmd          `cmd:"" help:"List the configured chains."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	code := exitCode(run(ctx, os.Args[1:], os.Stdout, os.Stderr), os.Stdout)
	cancel()
	os.Exit(code)
}

// commandError wraps a failure returned by a command's Run.
type commandError struct{ err error }

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

// exitCode maps the result of run to the process status. Only misconfiguration
// and correlation mismatches are fatal; other command failures are printed to
// out and the process exits 0.
func exitCode(err error, out io.Writer) int {
	if err == nil {
		return 0
	}

	var (
		cfgErr   *config.Error
		corrErr  *feeds.CorrelationError
		parseErr *kong.ParseError
		cmdErr   *commandError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &corrErr), errors.As(err, &parseErr):
		slog.Error("fatal", "error", err)
		return 1
	case errors.As(err, &cmdErr):
		fmt.Fprintf(out, "Error: %v\n", cmdErr.err)
		return 0
	default:
		slog.Error("fatal", "error", err)
		return 1
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// .env must be loaded before parsing so env-backed flags see it.
	if err := env.LoadDotEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("feedquery"),
		kong.Description("Query Chainlink price feeds with batched eth_calls."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := env.ParseLogLevel(slog.LevelInfo)
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	shutdown, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if cfg.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RPCTimeout)
		defer cancel()
	}

	a, err := newApp(ctx, cfg, logger, stdout, cli.RPCURL, cli.RPCURLID)
	if err != nil {
		return err
	}
	defer a.close()

	if err := kctx.Run(a); err != nil {
		return &commandError{err: err}
	}
	return nil
}

func initTelemetry(ctx context.Context, tc config.TelemetryConfig) (func(context.Context) error, error) {
	endpoint := env.Get("OTEL_EXPORTER_OTLP_ENDPOINT", tc.OTLPEndpoint)

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		OTLPEndpoint: endpoint,
		Insecure:     tc.Insecure,
		Console:      tc.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}

	shutdownMetrics, err := telemetry.InitMetrics(ctx, telemetry.MetricConfig{
		OTLPEndpoint: endpoint,
		Insecure:     tc.Insecure,
	})
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}

	return func(ctx context.Context) error {
		metricsErr := shutdownMetrics(ctx)
		if err := shutdownTracer(ctx); err != nil {
			return err
		}
		return metricsErr
	}, nil
}
