package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/samber/lo"
)

// ParameterGroup is one entry of the ParameterGroups list in the
// AWS::CloudFormation::Interface template metadata.
type ParameterGroup struct {
	Label      string
	Parameters []string
}

// ParameterLabel is the console label of a single parameter.
type ParameterLabel struct {
	Default string
}

// MetadataProvider is implemented by every construct in this package.
type MetadataProvider interface {
	ParameterGroups() []ParameterGroup
	ParameterLabels() map[string]ParameterLabel
}

// AddInterfaceMetadata writes the parameter groups and labels of all providers
// into the AWS::CloudFormation::Interface metadata of the stack. Groups keep
// the order of the providers.
func AddInterfaceMetadata(stack awscdk.Stack, providers ...MetadataProvider) {
	groups := []interface{}{}
	labels := map[string]interface{}{}

	for _, p := range providers {
		for _, g := range p.ParameterGroups() {
			groups = append(groups, map[string]interface{}{
				"Label":      map[string]interface{}{"default": g.Label},
				"Parameters": g.Parameters,
			})
		}
		for name, l := range p.ParameterLabels() {
			labels[name] = map[string]interface{}{"default": l.Default}
		}
	}

	stack.TemplateOptions().SetMetadata(&map[string]interface{}{
		"AWS::CloudFormation::Interface": map[string]interface{}{
			"ParameterGroups": groups,
			"ParameterLabels": labels,
		},
	})
}

// group is a shorthand for a ParameterGroup built from parameters.
func group(label string, params ...awscdk.CfnParameter) ParameterGroup {
	return ParameterGroup{
		Label:      label,
		Parameters: lo.Map(params, func(p awscdk.CfnParameter, _ int) string { return lid(p) }),
	}
}

// lid is the logical id of a parameter created with newParam. The construct
// id equals the logical id, so no token resolution is needed.
func lid(p awscdk.CfnParameter) string {
	return *p.Node().Id()
}
