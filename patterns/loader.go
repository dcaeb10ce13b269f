// Package patterns provides AWS CDK constructs for common application
// infrastructure: a VPC, an Auto Scaling Group behind a load balancer, and
// the data stores, messaging and delivery pipeline around it. Every
// construct is built from L1 resources with CloudFormation parameters, so
// the synthesized template can be deployed from the console.
package patterns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"gopkg.in/yaml.v3"
)

// LoadStackConfigFromFile loads a StackConfig from a JSON or YAML file. The
// format is chosen by extension.
func LoadStackConfigFromFile(path string) (*StackConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadStackConfigFromJSON(data)
	case ".yaml", ".yml":
		return LoadStackConfigFromYAML(data)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// LoadStackConfigFromJSON parses a StackConfig from JSON data.
func LoadStackConfigFromJSON(data []byte) (*StackConfig, error) {
	var config StackConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	return &config, nil
}

// LoadStackConfigFromYAML parses a StackConfig from YAML data.
func LoadStackConfigFromYAML(data []byte) (*StackConfig, error) {
	var config StackConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return &config, nil
}

// NewStackFromFile creates a PatternStack from a JSON or YAML config file.
func NewStackFromFile(scope constructs.Construct, configPath string) (*PatternStack, error) {
	config, err := LoadStackConfigFromFile(configPath)
	if err != nil {
		return nil, err
	}
	return newCheckedStack(scope, *config)
}

// MustNewStackFromFile is like NewStackFromFile but panics on error.
func MustNewStackFromFile(scope constructs.Construct, configPath string) *PatternStack {
	stack, err := NewStackFromFile(scope, configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to create stack from %s: %v", configPath, err))
	}
	return stack
}

// NewStackFromJSON creates a PatternStack from JSON data.
func NewStackFromJSON(scope constructs.Construct, jsonData []byte) (*PatternStack, error) {
	config, err := LoadStackConfigFromJSON(jsonData)
	if err != nil {
		return nil, err
	}
	return newCheckedStack(scope, *config)
}

// NewStackFromYAML creates a PatternStack from YAML data.
func NewStackFromYAML(scope constructs.Construct, yamlData []byte) (*PatternStack, error) {
	config, err := LoadStackConfigFromYAML(yamlData)
	if err != nil {
		return nil, err
	}
	return newCheckedStack(scope, *config)
}

// newCheckedStack returns validation errors instead of panicking.
func newCheckedStack(scope constructs.Construct, config StackConfig) (*PatternStack, error) {
	checked := config.Copy()
	checked.ApplyDefaults()
	if err := checked.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stack configuration: %w", err)
	}
	return NewPatternStack(scope, config.StackName, config), nil
}

// SynthTemplateYAML synthesizes the stage of stack and returns the stack's
// CloudFormation template as YAML.
func SynthTemplateYAML(stack awscdk.Stack) (string, error) {
	assembly := awscdk.Stage_Of(stack).Synth(nil)
	template := assembly.GetStackArtifact(stack.ArtifactId()).Template()

	out, err := yaml.Marshal(template)
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return string(out), nil
}
