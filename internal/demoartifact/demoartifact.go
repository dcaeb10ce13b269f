// Package demoartifact implements the custom resource that seeds the source
// artifact bucket of a deploy pipeline with a demo codebase.
package demoartifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-playground/validator/v10"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/plexusone/patterns-aws-cdk/internal/customresource"
	"github.com/plexusone/patterns-aws-cdk/internal/lambdaapp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ResourceType served by the handler.
const ResourceType = "Custom::InitializeDemo"

// Config is read from the function environment set by the pipeline construct.
type Config struct {
	DemoSourceURL           string `env:"DemoSourceUrl,required"`
	SourceArtifactBucket    string `env:"SourceArtifactBucket,required"`
	SourceArtifactObjectKey string `env:"SourceArtifactObjectKey,required"`
	StackName               string `env:"StackName"`

	DownloadTimeout time.Duration `env:"DEMO_DOWNLOAD_TIMEOUT" envDefault:"30s"`
}

// S3 is the part of the S3 API the handler uses.
type S3 interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type (
	// Input is empty, the function is configured through its environment.
	Input struct{}
	// Output describes the seeded object.
	Output struct {
		Bucket string `mapstructure:"bucket"`
		Key    string `mapstructure:"key"`
	}
)

// Handler copies the demo artifact.
type Handler struct {
	cfg  Config
	logs *zap.Logger
	s3c  S3
	http heimdall.Doer
}

// New inits the handler.
func New(cfg Config, logs *zap.Logger, s3c S3, doer heimdall.Doer) *Handler {
	return &Handler{cfg: cfg, logs: logs, s3c: s3c, http: doer}
}

// NewHTTPClient returns the client for the download. A failed download is
// retried by CloudFormation, not here.
func NewHTTPClient(cfg Config) heimdall.Doer {
	return httpclient.NewClient(httpclient.WithHTTPTimeout(cfg.DownloadTimeout))
}

// Type implements customresource.Handler.
func (h *Handler) Type() string { return ResourceType }

func (h *Handler) physicalID() string {
	return fmt.Sprintf("s3://%s/%s", h.cfg.SourceArtifactBucket, h.cfg.SourceArtifactObjectKey)
}

func (h *Handler) output() Output {
	return Output{Bucket: h.cfg.SourceArtifactBucket, Key: h.cfg.SourceArtifactObjectKey}
}

// Create copies the demo artifact unless the source object already exists.
func (h *Handler) Create(ctx context.Context, _ cfn.Event, _ Input) (string, Output, error) {
	exists, err := h.exists(ctx)
	if err != nil {
		return "", Output{}, err
	}

	if exists {
		h.logs.Info("source artifact exists, not initializing demo",
			zap.String("bucket", h.cfg.SourceArtifactBucket), zap.String("key", h.cfg.SourceArtifactObjectKey))
		return h.physicalID(), h.output(), nil
	}

	body, err := h.download(ctx)
	if err != nil {
		return "", Output{}, err
	}

	if _, err := h.s3c.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(h.cfg.SourceArtifactBucket),
		Key:    aws.String(h.cfg.SourceArtifactObjectKey),
		Body:   bytes.NewReader(body),
	}); err != nil {
		return "", Output{}, fmt.Errorf("failed to put source artifact: %w", err)
	}

	h.logs.Info("initialized demo source artifact",
		zap.String("stack_name", h.cfg.StackName),
		zap.String("url", h.cfg.DemoSourceURL),
		zap.Int("size", len(body)))

	return h.physicalID(), h.output(), nil
}

// Update does nothing, the demo is only copied once.
func (h *Handler) Update(_ context.Context, ev cfn.Event, _, _ Input) (string, Output, error) {
	return ev.PhysicalResourceID, h.output(), nil
}

// Delete keeps the artifact.
func (h *Handler) Delete(context.Context, cfn.Event, Input) (Output, error) {
	return Output{}, nil
}

func (h *Handler) exists(ctx context.Context) (bool, error) {
	_, err := h.s3c.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.cfg.SourceArtifactBucket),
		Key:    aws.String(h.cfg.SourceArtifactObjectKey),
	})

	var notFound *types.NotFound
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &notFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to head source artifact: %w", err)
	}
}

func (h *Handler) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.DemoSourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", h.cfg.DemoSourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %s", h.cfg.DemoSourceURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", h.cfg.DemoSourceURL, err)
	}

	return body, nil
}

func newFunction(logs *zap.Logger, val *validator.Validate, h *Handler) cfn.CustomResourceFunction {
	return customresource.Function[Input, Output](logs, val, h)
}

// Provide the handler and its function.
func Provide() fx.Option {
	return fx.Module("demoartifact",
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named("demoartifact") }),
		lambdaapp.ProvideConfig[Config](),
		fx.Provide(New, NewHTTPClient, newFunction),
		fx.Provide(fx.Annotate(s3.NewFromConfig, fx.As(new(S3)))),
	)
}
