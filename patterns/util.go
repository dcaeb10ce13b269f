package patterns

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// CidrPattern is the AllowedPattern for IPv4 CIDR blocks between /16 and /28.
const CidrPattern = `^(([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])\.){3}([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])(\/(1[6-9]|2[0-8]))$`

// AnyCidrPattern is the AllowedPattern for any IPv4 CIDR block.
const AnyCidrPattern = `^(([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])\.){3}([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])(\/([0-9]|[1-2][0-9]|3[0-2]))$`

// AppendStackUUID joins name with the unique segment of the stack id, e.g.
// "my-name-4a3f0c10-...". The result is resolved by CloudFormation, so it is
// stable for the lifetime of the stack and short enough for resource names.
func AppendStackUUID(name *string) *string {
	return awscdk.Fn_Join(jsii.String("-"), &[]*string{
		name,
		awscdk.Fn_Select(jsii.Number(2), awscdk.Fn_Split(jsii.String("/"), awscdk.Aws_STACK_ID(), nil)),
	})
}

// SgIngressTarget is a construct that owns a security group and listens on a
// single TCP port, such as a database or cache cluster.
type SgIngressTarget interface {
	constructs.Construct
	ConstructID() string
	Port() float64
	SecurityGroup() awsec2.CfnSecurityGroup
}

// AddSgIngress allows TCP traffic from the source security group to the
// target's security group on the target's port.
func AddSgIngress(target SgIngressTarget, source awsec2.CfnSecurityGroup) awsec2.CfnSecurityGroupIngress {
	ingress := awsec2.NewCfnSecurityGroupIngress(target, jsii.String("SgIngress"), &awsec2.CfnSecurityGroupIngressProps{
		SourceSecurityGroupId: source.Ref(),
		FromPort:              jsii.Number(target.Port()),
		GroupId:               target.SecurityGroup().Ref(),
		IpProtocol:            jsii.String("tcp"),
		ToPort:                jsii.Number(target.Port()),
	})
	ingress.OverrideLogicalId(jsii.String(target.ConstructID() + "SgIngress"))
	return ingress
}

// paramOpts are the optional settings of a template parameter.
type paramOpts struct {
	AllowedPattern        string
	AllowedValues         []string
	ConstraintDescription string
	Default               interface{}
	MinValue              *float64
	MaxValue              *float64
	Type                  string
}

// newParam creates a CfnParameter whose logical id is exactly logicalID.
func newParam(scope constructs.Construct, logicalID, description string, o paramOpts) awscdk.CfnParameter {
	props := &awscdk.CfnParameterProps{
		Description: jsii.String(description),
		Default:     o.Default,
		MinValue:    o.MinValue,
		MaxValue:    o.MaxValue,
	}
	if o.AllowedPattern != "" {
		props.AllowedPattern = jsii.String(o.AllowedPattern)
	}
	if len(o.AllowedValues) > 0 {
		props.AllowedValues = jsii.Strings(o.AllowedValues...)
	}
	if o.ConstraintDescription != "" {
		props.ConstraintDescription = jsii.String(o.ConstraintDescription)
	}
	if o.Type != "" {
		props.Type = jsii.String(o.Type)
	}

	param := awscdk.NewCfnParameter(scope, jsii.String(logicalID), props)
	param.OverrideLogicalId(jsii.String(logicalID))
	return param
}

// newCondition creates a CfnCondition whose logical id is exactly logicalID.
func newCondition(scope constructs.Construct, logicalID string, expr awscdk.ICfnConditionExpression) awscdk.CfnCondition {
	cond := awscdk.NewCfnCondition(scope, jsii.String(logicalID), &awscdk.CfnConditionProps{
		Expression: expr,
	})
	cond.OverrideLogicalId(jsii.String(logicalID))
	return cond
}

// isEmpty is true when the parameter was left blank.
func isEmpty(param awscdk.CfnParameter) awscdk.ICfnRuleConditionExpression {
	return awscdk.Fn_ConditionEquals(param.Value(), jsii.String(""))
}

// isNotEmpty is true when the parameter was given a value.
func isNotEmpty(param awscdk.CfnParameter) awscdk.ICfnRuleConditionExpression {
	return awscdk.Fn_ConditionNot(isEmpty(param))
}

// isTrue compares a "true"/"false" parameter with "true".
func isTrue(param awscdk.CfnParameter) awscdk.ICfnRuleConditionExpression {
	return awscdk.Fn_ConditionEquals(param.Value(), jsii.String("true"))
}

// ifString selects between two string values on a condition.
func ifString(cond awscdk.CfnCondition, whenTrue, whenFalse interface{}) *string {
	return awscdk.Token_AsString(awscdk.Fn_ConditionIf(cond.LogicalId(), whenTrue, whenFalse), nil)
}

// ifList selects between two lists on a condition.
func ifList(cond awscdk.CfnCondition, whenTrue, whenFalse *[]*string) *[]*string {
	return awscdk.Token_AsList(awscdk.Fn_ConditionIf(cond.LogicalId(), whenTrue, whenFalse), nil)
}

// orNoValue yields value when cond holds and removes the property otherwise.
func orNoValue(cond awscdk.CfnCondition, value interface{}) *string {
	return ifString(cond, value, awscdk.Aws_NO_VALUE())
}

// newOutput creates a CfnOutput whose logical id is exactly logicalID.
func newOutput(scope constructs.Construct, logicalID, description string, value *string) awscdk.CfnOutput {
	out := awscdk.NewCfnOutput(scope, jsii.String(logicalID), &awscdk.CfnOutputProps{
		Description: jsii.String(description),
		Value:       value,
	})
	out.OverrideLogicalId(jsii.String(logicalID))
	return out
}

// nameTag is the conventional Name tag "${AWS::StackName}/<suffix>".
func nameTag(suffix string) *[]*awscdk.CfnTag {
	return &[]*awscdk.CfnTag{{
		Key:   jsii.String("Name"),
		Value: stackScoped(suffix),
	}}
}

// stackScoped prefixes value with "${AWS::StackName}/".
func stackScoped(value string) *string {
	return jsii.String(fmt.Sprintf("%s/%s", *awscdk.Aws_STACK_NAME(), value))
}

// retain keeps the resource when it is removed from the template or replaced.
func retain(res awscdk.CfnResource) {
	res.CfnOptions().SetDeletionPolicy(awscdk.CfnDeletionPolicy_RETAIN)
	res.CfnOptions().SetUpdateReplacePolicy(awscdk.CfnDeletionPolicy_RETAIN)
}

// snapshot snapshots the resource when it is removed from the template or replaced.
func snapshot(res awscdk.CfnResource) {
	res.CfnOptions().SetDeletionPolicy(awscdk.CfnDeletionPolicy_SNAPSHOT)
	res.CfnOptions().SetUpdateReplacePolicy(awscdk.CfnDeletionPolicy_SNAPSHOT)
}

// arn builds an ARN in the stack's partition.
func arn(scope constructs.Construct, components *awscdk.ArnComponents) *string {
	return awscdk.Arn_Format(components, awscdk.Stack_Of(scope))
}

// defaultChild returns the L1 resource behind an L2 construct.
func defaultChild(c constructs.Construct) awscdk.CfnResource {
	return c.Node().DefaultChild().(awscdk.CfnResource)
}

// newSecurityGroup creates a security group in vpcID that allows all IPv4
// egress traffic.
func newSecurityGroup(scope constructs.Construct, id, logicalID, description string, vpcID *string) awsec2.CfnSecurityGroup {
	sg := awsec2.NewCfnSecurityGroup(scope, jsii.String(id), &awsec2.CfnSecurityGroupProps{
		GroupDescription: jsii.String(description),
		SecurityGroupEgress: &[]interface{}{
			&awsec2.CfnSecurityGroup_EgressProperty{
				IpProtocol:  jsii.String("-1"),
				CidrIp:      jsii.String("0.0.0.0/0"),
				Description: jsii.String("all IPv4 egress traffic allowed"),
			},
		},
		VpcId: vpcID,
	})
	sg.OverrideLogicalId(jsii.String(logicalID))
	return sg
}
