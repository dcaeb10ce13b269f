// Package stackinfo holds what the operator CLIs know about a deployed stack.
package stackinfo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/plexusone/patterns-aws-cdk/patterns"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// DefaultRegion is used when neither a flag nor the environment names one.
const DefaultRegion = "us-east-1"

// ConfigFiles are searched for the stack name, in order.
var ConfigFiles = []string{
	"config.json", "config.yaml", "config.yml",
	filepath.Join("..", "config.json"), filepath.Join("..", "config.yaml"), filepath.Join("..", "config.yml"),
}

// Region returns the flag value, AWS_REGION, AWS_DEFAULT_REGION or
// DefaultRegion.
func Region(flag string) string {
	for _, r := range []string{flag, os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION")} {
		if r != "" {
			return r
		}
	}

	return DefaultRegion
}

// DetectStackName reads the stack name from the first stack config file
// and falls back to the name of the working directory.
func DetectStackName() string {
	for _, path := range ConfigFiles {
		if cfg, err := patterns.LoadStackConfigFromFile(path); err == nil && cfg.StackName != "" {
			return cfg.StackName
		}
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Base(wd)
	}

	return ""
}

// LoadParameters reads CloudFormation parameter values from a YAML mapping.
func LoadParameters(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters file: %w", err)
	}

	params := map[string]string{}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse parameters file %s: %w", path, err)
	}

	return params, nil
}

// ParameterArgs turns parameters into sorted "cdk deploy" arguments. With a
// stack name the parameters are scoped to that stack.
func ParameterArgs(stackName string, params map[string]string) []string {
	keys := lo.Keys(params)
	sort.Strings(keys)

	return lo.FlatMap(keys, func(k string, _ int) []string {
		name := k
		if stackName != "" {
			name = stackName + ":" + k
		}

		return []string{"--parameters", fmt.Sprintf("%s=%s", name, params[k])}
	})
}

// CloudFormation is the part of the CloudFormation API the CLIs use.
type CloudFormation interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// Output of a deployed stack.
type Output struct {
	Key         string
	Value       string
	Description string
}

// Outputs returns the outputs of a stack, sorted by key.
func Outputs(ctx context.Context, cfn CloudFormation, stackName string) ([]Output, error) {
	out, err := cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stackName)})
	if err != nil {
		return nil, fmt.Errorf("failed to describe stack %s: %w", stackName, err)
	}

	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("stack %s not found", stackName)
	}

	outputs := lo.Map(out.Stacks[0].Outputs, func(o cfntypes.Output, _ int) Output {
		return Output{Key: aws.ToString(o.OutputKey), Value: aws.ToString(o.OutputValue), Description: aws.ToString(o.Description)}
	})
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Key < outputs[j].Key })

	return outputs, nil
}
