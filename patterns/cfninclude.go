package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/cloudformationinclude"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/samber/lo"
)

// CfnIncludeStack wraps an existing CloudFormation template with CDK, so
// constructs of this package can be added next to hand-written resources.
type CfnIncludeStack struct {
	awscdk.Stack

	// Template is the included CloudFormation template.
	Template cloudformationinclude.CfnInclude
}

// CfnIncludeConfig configures the CfnInclude stack.
type CfnIncludeConfig struct {
	StackName string

	// TemplateFile is the path to a JSON or YAML template.
	TemplateFile string

	// Parameters replace template parameters with fixed values. Replaced
	// parameters are removed from the synthesized template.
	Parameters map[string]string

	// PreserveLogicalIds keeps the logical ids of the template.
	PreserveLogicalIds bool

	Tags map[string]string
}

// NewCfnIncludeStack creates a CDK stack that wraps an existing
// CloudFormation template.
//
// Example:
//
//	app := patterns.NewApp()
//	stack := patterns.NewCfnIncludeStack(app, patterns.CfnIncludeConfig{
//	    StackName:          "legacy-app",
//	    TemplateFile:       "template.yaml",
//	    PreserveLogicalIds: true,
//	    Parameters:         map[string]string{"Environment": "production"},
//	})
//	appSg := stack.GetResource("AppSg").(awsec2.CfnSecurityGroup)
//	redis := patterns.NewElasticacheRedis(stack, "Cache", patterns.ElasticacheClusterProps{Vpc: vpc})
//	patterns.AddSgIngress(redis, appSg)
//	patterns.Synth(app)
func NewCfnIncludeStack(scope constructs.Construct, config CfnIncludeConfig) *CfnIncludeStack {
	stack := awscdk.NewStack(scope, jsii.String(config.StackName), &awscdk.StackProps{
		StackName: jsii.String(config.StackName),
		Tags:      convertTags(config.Tags),
	})

	props := &cloudformationinclude.CfnIncludeProps{
		TemplateFile:       jsii.String(config.TemplateFile),
		PreserveLogicalIds: jsii.Bool(config.PreserveLogicalIds),
	}
	if len(config.Parameters) > 0 {
		props.Parameters = lo.ToPtr(lo.MapValues(config.Parameters, func(v string, _ string) interface{} { return v }))
	}

	return &CfnIncludeStack{
		Stack:    stack,
		Template: cloudformationinclude.NewCfnInclude(stack, jsii.String("Template"), props),
	}
}

// GetResource retrieves a resource from the included template by logical ID.
func (s *CfnIncludeStack) GetResource(logicalID string) awscdk.CfnResource {
	return s.Template.GetResource(jsii.String(logicalID))
}

// GetParameter retrieves a parameter that was not replaced.
func (s *CfnIncludeStack) GetParameter(logicalID string) awscdk.CfnParameter {
	return s.Template.GetParameter(jsii.String(logicalID))
}

// CfnIncludeBuilder provides a fluent interface for building CfnInclude stacks.
type CfnIncludeBuilder struct {
	config CfnIncludeConfig
}

// NewCfnIncludeBuilder creates a new CfnInclude builder that preserves
// logical ids.
func NewCfnIncludeBuilder(stackName, templateFile string) *CfnIncludeBuilder {
	return &CfnIncludeBuilder{
		config: CfnIncludeConfig{
			StackName:          stackName,
			TemplateFile:       templateFile,
			Parameters:         make(map[string]string),
			PreserveLogicalIds: true,
			Tags:               make(map[string]string),
		},
	}
}

// WithParameter adds a parameter override.
func (b *CfnIncludeBuilder) WithParameter(name, value string) *CfnIncludeBuilder {
	b.config.Parameters[name] = value
	return b
}

// WithTag adds a tag.
func (b *CfnIncludeBuilder) WithTag(key, value string) *CfnIncludeBuilder {
	b.config.Tags[key] = value
	return b
}

// WithPreserveLogicalIds sets whether to preserve logical IDs.
func (b *CfnIncludeBuilder) WithPreserveLogicalIds(preserve bool) *CfnIncludeBuilder {
	b.config.PreserveLogicalIds = preserve
	return b
}

// Build creates the CfnInclude stack.
func (b *CfnIncludeBuilder) Build(scope constructs.Construct) *CfnIncludeStack {
	return NewCfnIncludeStack(scope, b.config)
}
