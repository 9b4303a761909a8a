package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	ot "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/msg"
	"github.com/huangjunwen/rowpub/pipe"
)

// CLI is the command line of rowpub. Every flag can also be set by env
// ROWPUB_<FLAG> or by the json config file.
type CLI struct {
	InputQuery  string `name:"input-query" required:"" help:"Query whose result rows are published."`
	OutputTopic string `name:"output-topic" required:"" help:"Destination topic: projects/<PROJECT>/topics/<TOPIC>."`

	Source     string            `name:"source" enum:"bigquery,mysql,postgres,sqlite" default:"bigquery" help:"Query service (${enum})."`
	DSN        string            `name:"dsn" help:"Data source name for mysql/postgres/sqlite."`
	BQProject  string            `name:"bq-project" help:"Project running bigquery jobs, default to the topic's project."`
	BQLocation string            `name:"bq-location" help:"Location of bigquery jobs."`
	BQLabels   map[string]string `name:"bq-labels" help:"Labels of bigquery jobs, e.g. team=data;env=prod."`
	BQNoCache  bool              `name:"bq-disable-query-cache" help:"Disable bigquery query cache."`

	Sink        string `name:"sink" enum:"pubsub,stan,redis" default:"pubsub" help:"Publish service (${enum})."`
	NatsURL     string `name:"nats-url" default:"nats://localhost:4222" help:"Nats server url for stan sink."`
	StanCluster string `name:"stan-cluster" default:"test-cluster" help:"Nats streaming cluster id for stan sink."`
	RedisAddr   string `name:"redis-addr" default:"localhost:6379" help:"Redis address for redis sink."`
	RedisMaxLen int64  `name:"redis-max-len" default:"0" help:"Approximate max length of redis streams, 0 for unlimited."`

	MaxInflight      int     `name:"max-inflight" default:"1024" help:"Max number of messages being published."`
	Rate             float64 `name:"rate" default:"0" help:"Max messages per second, 0 for unlimited."`
	SkipEncodeErrors bool    `name:"skip-encode-errors" help:"Log and skip rows failed to encode instead of failing."`

	LogLevel       string          `name:"log-level" enum:"trace,debug,info,warn,error" default:"info" help:"Log level (${enum})."`
	JaegerEndpoint string          `name:"jaeger-endpoint" help:"Jaeger collector endpoint, tracing is disabled if empty."`
	Config         kong.ConfigFlag `name:"config" help:"Json config file."`

	topic msg.Topic `kong:"-"`
}

func cliOptions() []kong.Option {
	return []kong.Option{
		kong.Name("rowpub"),
		kong.Description("Run a query and publish each result row as a json message."),
		kong.UsageOnError(),
		kong.DefaultEnvars("ROWPUB"),
		kong.Configuration(kong.JSON),
	}
}

// Validate is called by kong after parsing, before any processing.
func (cli *CLI) Validate() error {
	topic, err := msg.ParseTopic(cli.OutputTopic)
	if err != nil {
		return err
	}
	cli.topic = topic

	if cli.Source != "bigquery" && cli.DSN == "" {
		return rowpub.Errorf(rowpub.ConfigError, "--dsn is required for source %s", cli.Source)
	}
	if cli.MaxInflight < 1 {
		return rowpub.Errorf(rowpub.ConfigError, "--max-inflight should be at least 1")
	}
	if cli.Rate < 0 {
		return rowpub.Errorf(rowpub.ConfigError, "--rate should not be negative")
	}
	if cli.RedisMaxLen < 0 {
		return rowpub.Errorf(rowpub.ConfigError, "--redis-max-len should not be negative")
	}
	return nil
}

// Run is called by kong.
func (cli *CLI) Run() error {
	logger := newLogger(cli.LogLevel, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stats, err := cli.run(ctx, &logger)
	if err != nil {
		return err
	}
	logger.Info().
		Int64("rows", stats.Rows).
		Int64("published", stats.Published).
		Int64("encodeErrors", stats.EncodeErrors).
		Msg("done")
	return nil
}

func (cli *CLI) run(ctx context.Context, logger *zerolog.Logger) (stats pipe.Stats, err error) {
	src, err := cli.openSource(ctx, logger)
	if err != nil {
		return stats, errors.WithMessage(err, "open source")
	}
	defer src.Close()
	logger.Info().Str("source", cli.Source).Msg("open source ok")

	publisher, err := cli.openSink(ctx, logger)
	if err != nil {
		return stats, errors.WithMessage(err, "open sink")
	}
	defer publisher.Close()
	logger.Info().Str("sink", cli.Sink).Msg("open sink ok")

	var downstream sinkPublisher = publisher
	if cli.JaegerEndpoint != "" {
		tracer, closer, err := newTracer(cli.JaegerEndpoint, logger)
		if err != nil {
			return stats, errors.WithMessage(err, "new tracer")
		}
		defer closer.Close()
		logger.Info().Str("endpoint", cli.JaegerEndpoint).Msg("new tracer ok")

		downstream = traceSink(publisher, tracer)
		span := tracer.StartSpan("rowpub " + cli.topic.String())
		defer span.Finish()
		ctx = ot.ContextWithSpan(ctx, span)
	}

	p, err := pipe.NewRowPipe(src, cli.InputQuery, cli.OutputTopic, downstream,
		pipe.PipeOptLogger(logger),
		pipe.PipeOptMaxInflight(cli.MaxInflight),
		pipe.PipeOptRate(cli.Rate, int64(cli.MaxInflight)),
		pipe.PipeOptSkipEncodeErrors(cli.SkipEncodeErrors),
	)
	if err != nil {
		return stats, err
	}
	return p.Run(ctx)
}
