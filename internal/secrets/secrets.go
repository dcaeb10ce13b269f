// Package secrets pushes credentials from .env files into the Secrets Manager
// secrets that the stack constructs accept as existing secrets.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// DefaultConfigDir is searched in the home directory for shared .env files.
const DefaultConfigDir = ".plexusone"

// StackIDTag is set by CloudFormation on every secret a stack creates.
const StackIDTag = "aws:cloudformation:stack-id"

const (
	usernameSuffix = "_USERNAME"
	passwordSuffix = "_PASSWORD"
)

// Group is one credential secret, named after the construct that reads it.
type Group struct {
	// Name is the lower case construct id, e.g. "db" or "rabbitmq".
	Name     string
	Username string
	Password string
}

// SecretName is the name the constructs give a created secret.
func SecretName(stackName, group string) string {
	return fmt.Sprintf("%s/%s/secret", stackName, group)
}

// ParameterName is the SSM parameter a deployed stack writes with the ARN of
// the secret it uses. That is either the secret passed as the {id}Arn
// parameter or the one the stack generated.
func ParameterName(stackName, group string) string {
	return fmt.Sprintf("%s-%s-secret-arn", stackName, group)
}

// Value is the secret JSON.
func (g Group) Value() (string, error) {
	b, err := json.Marshal(map[string]string{"username": g.Username, "password": g.Password})
	if err != nil {
		return "", fmt.Errorf("failed to encode secret: %w", err)
	}

	return string(b), nil
}

// Masked is the secret JSON with the password hidden.
func (g Group) Masked() string {
	masked := strings.Repeat("*", 8)
	if len(g.Password) > 12 {
		masked = g.Password[:2] + masked
	}

	b, _ := json.Marshal(map[string]string{"username": g.Username, "password": masked})

	return string(b)
}

// ReadEnvFile reads KEY=VALUE pairs.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return env, nil
}

func placeholder(v string) bool {
	return v == "" || strings.HasPrefix(v, "your-")
}

// GroupEnv collects <NAME>_USERNAME and <NAME>_PASSWORD pairs into groups,
// sorted by name. Groups without a password are dropped. A missing username
// defaults to the lower case name.
func GroupEnv(env map[string]string) []Group {
	byName := map[string]*Group{}
	group := func(prefix string) *Group {
		name := strings.ToLower(prefix)
		if byName[name] == nil {
			byName[name] = &Group{Name: name}
		}

		return byName[name]
	}

	for key, value := range env {
		if placeholder(value) {
			continue
		}

		switch {
		case strings.HasSuffix(key, usernameSuffix) && len(key) > len(usernameSuffix):
			group(strings.TrimSuffix(key, usernameSuffix)).Username = value
		case strings.HasSuffix(key, passwordSuffix) && len(key) > len(passwordSuffix):
			group(strings.TrimSuffix(key, passwordSuffix)).Password = value
		}
	}

	groups := lo.FilterMap(lo.Values(byName), func(g *Group, _ int) (Group, bool) {
		if g.Password == "" {
			return Group{}, false
		}
		if g.Username == "" {
			g.Username = g.Name
		}

		return *g, true
	})
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	return groups
}

// FindEnvFile returns the first .env file in the current directory, its
// parent, the project directory or the global config directory.
func FindEnvFile(projectName string) (string, error) {
	candidates := []string{".env", filepath.Join("..", ".env")}
	if home, err := os.UserHomeDir(); err == nil {
		if projectName != "" {
			candidates = append(candidates, filepath.Join(home, DefaultConfigDir, "projects", projectName, ".env"))
		}
		candidates = append(candidates, filepath.Join(home, DefaultConfigDir, ".env"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no .env file found in: %s", strings.Join(candidates, ", "))
}

// SecretsManager is the part of the Secrets Manager API the pusher uses.
type SecretsManager interface {
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

// SSM is the part of the SSM API the pusher uses.
type SSM interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Result of pushing one group.
type Result struct {
	Group      Group
	SecretName string
	// Arn is empty on a dry run or when the stack manages the secret.
	Arn     string
	Created bool
	// ManagedArn is set when the stack uses a secret it generated or one
	// other than SecretName. That secret holds the credentials the data
	// store was created with and is never overwritten.
	ManagedArn string
}

// Pusher upserts groups.
type Pusher struct {
	smc    SecretsManager
	ssmc   SSM
	dryRun bool
}

// NewPusher inits the pusher. The clients are not used on a dry run and may
// be nil.
func NewPusher(smc SecretsManager, ssmc SSM, dryRun bool) *Pusher {
	return &Pusher{smc: smc, ssmc: ssmc, dryRun: dryRun}
}

// Push upserts the secret of a group.
func (p *Pusher) Push(ctx context.Context, stackName string, g Group) (Result, error) {
	res := Result{Group: g, SecretName: SecretName(stackName, g.Name)}
	if p.dryRun {
		return res, nil
	}

	managed, err := p.managedArn(ctx, stackName, g.Name)
	if err != nil {
		return res, err
	}
	if managed != "" {
		own, generated, err := p.describe(ctx, res.SecretName)
		if err != nil {
			return res, err
		}
		if own != managed || generated {
			res.ManagedArn = managed
			return res, nil
		}
	}

	value, err := g.Value()
	if err != nil {
		return res, err
	}

	put, err := p.smc.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(res.SecretName),
		SecretString: aws.String(value),
	})
	if err == nil {
		res.Arn = aws.ToString(put.ARN)
		return res, nil
	}

	var notFound *smtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return res, fmt.Errorf("failed to update secret %s: %w", res.SecretName, err)
	}

	created, err := p.smc.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(res.SecretName),
		Description:  aws.String(fmt.Sprintf("%s credentials for stack %s", g.Name, stackName)),
		SecretString: aws.String(value),
	})
	if err != nil {
		return res, fmt.Errorf("failed to create secret %s: %w", res.SecretName, err)
	}

	res.Arn, res.Created = aws.ToString(created.ARN), true

	return res, nil
}

func (p *Pusher) managedArn(ctx context.Context, stackName, group string) (string, error) {
	out, err := p.ssmc.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(ParameterName(stackName, group))})

	var notFound *ssmtypes.ParameterNotFound
	switch {
	case errors.As(err, &notFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to get parameter %s: %w", ParameterName(stackName, group), err)
	case out.Parameter == nil:
		return "", nil
	}

	return aws.ToString(out.Parameter.Value), nil
}

// describe returns the ARN of the secret named secretName, empty when it does
// not exist, and whether CloudFormation created it.
func (p *Pusher) describe(ctx context.Context, secretName string) (string, bool, error) {
	out, err := p.smc.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(secretName)})

	var notFound *smtypes.ResourceNotFoundException
	switch {
	case errors.As(err, &notFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to describe secret %s: %w", secretName, err)
	}

	generated := lo.ContainsBy(out.Tags, func(t smtypes.Tag) bool {
		return aws.ToString(t.Key) == StackIDTag
	})

	return aws.ToString(out.ARN), generated, nil
}
