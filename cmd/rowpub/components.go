package main

import (
	"context"
	"io"

	"github.com/nats-io/nats.go"
	ot "github.com/opentracing/opentracing-go"
	"github.com/rs/zerolog"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/huangjunwen/rowpub/msg"
	"github.com/huangjunwen/rowpub/pubsubmsg"
	"github.com/huangjunwen/rowpub/redismsg"
	"github.com/huangjunwen/rowpub/source"
	"github.com/huangjunwen/rowpub/source/bqsrc"
	"github.com/huangjunwen/rowpub/source/sqlsrc"
	"github.com/huangjunwen/rowpub/stanmsg"
	msgtracing "github.com/huangjunwen/rowpub/tracing/msg"
)

type sinkPublisher interface {
	msg.MsgAsyncPublisher
	msg.TopicValidator
}

type sink interface {
	sinkPublisher
	Close() error
}

func (cli *CLI) openSource(ctx context.Context, logger *zerolog.Logger) (source.Source, error) {
	switch cli.Source {
	case "bigquery":
		project := cli.BQProject
		if project == "" {
			project = cli.topic.Project
		}
		return bqsrc.Open(ctx, project, cli.bqOptions(logger))

	default:
		return sqlsrc.Open(cli.Source, cli.DSN, sqlsrc.SrcOptLogger(logger))
	}
}

func (cli *CLI) bqOptions(logger *zerolog.Logger) []bqsrc.Option {
	opts := []bqsrc.Option{bqsrc.SrcOptLogger(logger)}
	if cli.BQLocation != "" {
		opts = append(opts, bqsrc.SrcOptLocation(cli.BQLocation))
	}
	if len(cli.BQLabels) != 0 {
		opts = append(opts, bqsrc.SrcOptLabels(cli.BQLabels))
	}
	if cli.BQNoCache {
		opts = append(opts, bqsrc.SrcOptDisableQueryCache())
	}
	return opts
}

func (cli *CLI) openSink(ctx context.Context, logger *zerolog.Logger) (sink, error) {
	switch cli.Sink {
	case "stan":
		opts := nats.GetDefaultOptions()
		opts.Url = cli.NatsURL
		opts.MaxReconnect = -1 // Never give up reconnect.
		nc, err := opts.Connect()
		if err != nil {
			return nil, err
		}
		dc, err := stanmsg.NewDurConn(nc, cli.StanCluster, stanmsg.DCOptLogger(logger))
		if err != nil {
			nc.Close()
			return nil, err
		}
		return &stanSink{DurConn: dc, nc: nc}, nil

	case "redis":
		return redismsg.Open(cli.RedisAddr,
			redismsg.PubOptLogger(logger),
			redismsg.PubOptMaxLenApprox(cli.RedisMaxLen),
		)

	default:
		return pubsubmsg.Open(ctx, cli.topic.Project, []pubsubmsg.Option{pubsubmsg.PubOptLogger(logger)})
	}
}

type stanSink struct {
	*stanmsg.DurConn
	nc *nats.Conn
}

func (s *stanSink) Close() error {
	s.DurConn.Close()
	s.nc.Close()
	return nil
}

type tracedSink struct {
	msg.MsgAsyncPublisherFunc
	msg.TopicValidator
}

func traceSink(s sinkPublisher, tracer ot.Tracer) sinkPublisher {
	return tracedSink{
		MsgAsyncPublisherFunc: msg.NewMsgAsyncPublisherWithMWs(s, msgtracing.WrapMsgAsyncPublisher(tracer)),
		TopicValidator:        s,
	}
}

func newTracer(endpoint string, logger *zerolog.Logger) (ot.Tracer, io.Closer, error) {
	config := &jaegercfg.Configuration{
		ServiceName: "rowpub",
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			CollectorEndpoint: endpoint,
		},
	}
	return config.NewTracer(jaegercfg.Logger(jaegerLogger{logger}))
}

// jaegerLogger adapts zerolog to jaeger.Logger.
type jaegerLogger struct {
	logger *zerolog.Logger
}

func (l jaegerLogger) Error(msg string) {
	l.logger.Error().Str("comp", "jaeger").Msg(msg)
}

func (l jaegerLogger) Infof(msg string, args ...interface{}) {
	l.logger.Debug().Str("comp", "jaeger").Msgf(msg, args...)
}
