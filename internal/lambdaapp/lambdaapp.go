// Package lambdaapp provides the fx wiring shared by the custom resource
// Lambda functions.
package lambdaapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Config configures logging and the AWS SDK.
type Config struct {
	// LogLevel is the minimum level that is logged.
	LogLevel zapcore.Level `env:"LAMBDA_LOG_LEVEL" envDefault:"info"`
	// LogOutputs are opened with zap.Open.
	LogOutputs []string `env:"LAMBDA_LOG_OUTPUTS" envDefault:"stderr"`
	// LoadConfigTimeout bounds loading the AWS SDK configuration.
	LoadConfigTimeout time.Duration `env:"LAMBDA_LOAD_CONFIG_TIMEOUT" envDefault:"1s"`
}

// EnvConfigurer returns a function that parses environment variables into a
// configuration struct T.
func EnvConfigurer[T any]() func(o env.Options) (T, error) {
	return func(envo env.Options) (T, error) {
		var cfg T
		if err := env.ParseWithOptions(&cfg, envo); err != nil {
			return cfg, fmt.Errorf("failed to parse environment: %w", err)
		}

		return cfg, nil
	}
}

// ProvideConfig provides configuration T parsed from the environment. Tests
// can supply env.Options to replace the process environment.
func ProvideConfig[T any]() fx.Option {
	return fx.Provide(fx.Annotate(
		EnvConfigurer[T](),
		fx.ParamTags(`optional:"true"`)))
}

// Logging provides a JSON zap logger.
func Logging() fx.Option {
	return fx.Module("logging",
		fx.Provide(func(cfg Config) zapcore.LevelEnabler { return cfg.LogLevel }),
		fx.Provide(fx.Annotate(zap.New, fx.OnStop(func(_ context.Context, l *zap.Logger) error {
			_ = l.Sync()

			return nil
		}))),
		fx.Provide(zapcore.NewCore, zapcore.NewJSONEncoder, zap.NewProductionEncoderConfig),
		fx.Provide(func(cfg Config) (zapcore.WriteSyncer, error) {
			sync, _, err := zap.Open(cfg.LogOutputs...)
			if err != nil {
				return nil, fmt.Errorf("failed to zap-open: %w", err)
			}

			return sync, nil
		}),
	)
}

// newObservedAndConsole tees an observed core and console output to w.
func newObservedAndConsole(lvl zapcore.LevelEnabler, w io.Writer) (zapcore.Core, *observer.ObservedLogs) {
	core, obs := observer.New(lvl)
	core = zapcore.NewTee(core, zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		lvl,
	))

	return core, obs
}

// ObservedLogging provides a logger whose entries can be inspected with
// *observer.ObservedLogs. Console output goes to the supplied io.Writer.
func ObservedLogging() fx.Option {
	return fx.Module("logging-observed",
		fx.Provide(func(cfg Config) zapcore.LevelEnabler { return cfg.LogLevel }),
		fx.Provide(newObservedAndConsole),
		fx.Provide(zap.New),
	)
}

// NewAWSConfig loads the default AWS SDK configuration.
func NewAWSConfig(cfg Config, logs *zap.Logger) (aws.Config, error) {
	logs.Info("loading aws config", zap.Duration("timeout", cfg.LoadConfigTimeout))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LoadConfigTimeout)
	defer cancel()

	acfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return acfg, fmt.Errorf("failed to load default config: %w", err)
	}

	return acfg, nil
}

// Invoke starts serving the custom resource function after the 'start'
// lifecycle event. It only starts when AWS_LAMBDA_RUNTIME_API is present,
// which is the case in a deployed function but not in tests.
func Invoke() fx.Option {
	return fx.Invoke(func(fxlc fx.Lifecycle, logs *zap.Logger, fn cfn.CustomResourceFunction) {
		logs = logs.Named("lambda")

		if os.Getenv("AWS_LAMBDA_RUNTIME_API") == "" {
			return
		}

		fxlc.Append(fx.Hook{OnStart: func(context.Context) error {
			go lambda.StartWithOptions(cfn.LambdaWrap(fn),
				lambda.WithEnableSIGTERM(func() {
					logs.Info("received SIGTERM, shutting down")
				}))

			return nil
		}})
	})
}

func shared() fx.Option {
	return fx.Options(
		ProvideConfig[Config](),
		fx.Provide(validator.New),
		fx.Provide(NewAWSConfig),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)
}

// Lambda provides the production dependencies around the options of one
// function and starts serving it. The options must provide a
// cfn.CustomResourceFunction.
func Lambda(o ...fx.Option) fx.Option {
	return fx.Options(append(o, shared(), Logging(), Invoke())...)
}

// Test provides the same dependencies as Lambda with observed logging and
// without serving.
func Test(o ...fx.Option) fx.Option {
	return fx.Options(append(o, shared(), ObservedLogging(), fx.Provide(func() io.Writer { return io.Discard }))...)
}
