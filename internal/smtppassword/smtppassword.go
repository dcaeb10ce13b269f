// Package smtppassword implements the custom resource that turns an IAM
// access key into SES SMTP credentials stored in Secrets Manager.
package smtppassword

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/go-playground/validator/v10"
	"github.com/plexusone/patterns-aws-cdk/internal/customresource"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ResourceType served by the handler.
const ResourceType = "Custom::GenerateSmtpPassword"

const (
	signingDate     = "11111111"
	signingService  = "ses"
	signingTerminal = "aws4_request"
	signingMessage  = "SendRawEmail"
	signingVersion  = 0x04
)

func sign(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

// SMTPPassword derives the SES SMTP password of a secret access key for a
// region.
func SMTPPassword(secretAccessKey, region string) string {
	sig := sign([]byte("AWS4"+secretAccessKey), signingDate)
	sig = sign(sig, region)
	sig = sign(sig, signingService)
	sig = sign(sig, signingTerminal)
	sig = sign(sig, signingMessage)

	return base64.StdEncoding.EncodeToString(append([]byte{signingVersion}, sig...))
}

// SecretName is the name of the credentials secret of a stack.
func SecretName(stackName string) string {
	return stackName + "/instance/credentials"
}

// SecretsManager is the part of the Secrets Manager API the handler uses.
type SecretsManager interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
}

type (
	// Input are the resource properties.
	Input struct {
		AccessKeyID     string `mapstructure:"access_key_id" validate:"required"`
		SecretAccessKey string `mapstructure:"secret_access_key" validate:"required"`
		AWSRegion       string `mapstructure:"aws_region" validate:"required"`
		StackName       string `mapstructure:"stack_name" validate:"required"`
	}
	// Output is available as Fn::GetAtt [resource, "arn"].
	Output struct {
		Arn string `mapstructure:"arn"`
	}
)

// credentials is the JSON document stored in the secret.
type credentials map[string]string

func newCredentials(in Input) credentials {
	return credentials{
		"access_key_id":     in.AccessKeyID,
		"smtp_password":     SMTPPassword(in.SecretAccessKey, in.AWSRegion),
		"secret_access_key": in.SecretAccessKey,
	}
}

// Handler stores SMTP credentials.
type Handler struct {
	logs *zap.Logger
	smc  SecretsManager
}

// New inits the handler.
func New(logs *zap.Logger, smc SecretsManager) *Handler {
	return &Handler{logs: logs, smc: smc}
}

// Type implements customresource.Handler.
func (h *Handler) Type() string { return ResourceType }

// Create stores the credentials.
func (h *Handler) Create(ctx context.Context, _ cfn.Event, in Input) (string, Output, error) {
	arn, err := h.upsert(ctx, in)
	return arn, Output{Arn: arn}, err
}

// Update stores the credentials of a rotated access key.
func (h *Handler) Update(ctx context.Context, _ cfn.Event, in, _ Input) (string, Output, error) {
	arn, err := h.upsert(ctx, in)
	return arn, Output{Arn: arn}, err
}

// Delete keeps the secret.
func (h *Handler) Delete(context.Context, cfn.Event, Input) (Output, error) {
	return Output{}, nil
}

func (h *Handler) upsert(ctx context.Context, in Input) (string, error) {
	name := SecretName(in.StackName)
	creds := newCredentials(in)

	value, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	created, err := h.smc.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(string(value)),
	})
	if err == nil {
		h.logs.Info("created secret", zap.String("name", name))
		return aws.ToString(created.ARN), nil
	}

	var exists *types.ResourceExistsException
	if !errors.As(err, &exists) {
		return "", fmt.Errorf("failed to create secret %s: %w", name, err)
	}

	arn, err := h.findSecret(ctx, name)
	if err != nil {
		return "", err
	}

	current, err := h.smc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(arn)})
	if err != nil {
		return "", fmt.Errorf("failed to get secret value: %w", err)
	}

	var currentCreds credentials
	if err := json.Unmarshal([]byte(aws.ToString(current.SecretString)), &currentCreds); err == nil && maps.Equal(currentCreds, creds) {
		h.logs.Info("secret is up to date", zap.String("name", name))
		return arn, nil
	}

	if _, err := h.smc.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(arn),
		SecretString: aws.String(string(value)),
	}); err != nil {
		return "", fmt.Errorf("failed to update secret: %w", err)
	}

	h.logs.Info("updated secret", zap.String("name", name))

	return arn, nil
}

func (h *Handler) findSecret(ctx context.Context, name string) (string, error) {
	out, err := h.smc.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		Filters: []types.Filter{{Key: types.FilterNameStringTypeName, Values: []string{name}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to list secrets: %w", err)
	}

	// the name filter matches prefixes
	entry, ok := lo.Find(out.SecretList, func(e types.SecretListEntry) bool {
		return aws.ToString(e.Name) == name
	})
	if !ok {
		return "", fmt.Errorf("secret %s exists but is not listed", name)
	}

	return aws.ToString(entry.ARN), nil
}

func newFunction(logs *zap.Logger, val *validator.Validate, h *Handler) cfn.CustomResourceFunction {
	return customresource.Function[Input, Output](logs, val, h)
}

// Provide the handler and its function.
func Provide() fx.Option {
	return fx.Module("smtppassword",
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named("smtppassword") }),
		fx.Provide(New, newFunction),
		fx.Provide(fx.Annotate(secretsmanager.NewFromConfig, fx.As(new(SecretsManager)))),
	)
}
