package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/samber/lo"
)

// allow is an Allow statement over actions and resources.
func allow(actions []string, resources ...*string) awsiam.PolicyStatement {
	return awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings(actions...),
		Resources: &resources,
	})
}

// policyDocument wraps statements into a document.
func policyDocument(statements ...awsiam.PolicyStatement) awsiam.PolicyDocument {
	return awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
		Statements: &statements,
	})
}

// inlinePolicy is a named inline policy for CfnRole.Policies.
func inlinePolicy(name string, statements ...awsiam.PolicyStatement) *awsiam.CfnRole_PolicyProperty {
	return &awsiam.CfnRole_PolicyProperty{
		PolicyName:     jsii.String(name),
		PolicyDocument: policyDocument(statements...),
	}
}

// assumeRoleDocument lets the given service principal assume a role.
func assumeRoleDocument(service string) awsiam.PolicyDocument {
	return trustDocument(awsiam.NewServicePrincipal(jsii.String(service), nil))
}

// trustDocument lets principal assume a role.
func trustDocument(principal awsiam.IPrincipal) awsiam.PolicyDocument {
	return policyDocument(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:     awsiam.Effect_ALLOW,
		Actions:    jsii.Strings("sts:AssumeRole"),
		Principals: &[]awsiam.IPrincipal{principal},
	}))
}

// newRole creates a CfnRole whose logical id is exactly logicalID.
func newRole(scope constructs.Construct, id, logicalID string, trust awsiam.PolicyDocument, inline ...*awsiam.CfnRole_PolicyProperty) awsiam.CfnRole {
	role := awsiam.NewCfnRole(scope, jsii.String(id), &awsiam.CfnRoleProps{
		AssumeRolePolicyDocument: trust,
		Policies:                 policies(inline),
	})
	role.OverrideLogicalId(jsii.String(logicalID))
	return role
}

// policies converts inline policy properties into the CfnRole property shape.
func policies(props []*awsiam.CfnRole_PolicyProperty) *[]interface{} {
	if len(props) == 0 {
		return nil
	}
	out := lo.Map(props, func(p *awsiam.CfnRole_PolicyProperty, _ int) interface{} { return p })
	return &out
}

var anyResource = jsii.String("*")
