package patterns

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// LambdaAssetCode points at a directory holding a compiled "bootstrap"
// binary for the provided.al2023 runtime, as built from cmd/lambda-*.
func LambdaAssetCode(dir string) awslambda.Code {
	return awslambda.Code_FromAsset(jsii.String(dir), nil)
}

// nativeFunctionProps configures newNativeFunction.
type nativeFunctionProps struct {
	// LogicalID of the function. The role gets LogicalID+"Role".
	LogicalID   string
	Code        awslambda.Code
	Timeout     float64
	Policies    []*awsiam.CfnRole_PolicyProperty
	Environment map[string]*string
	// Condition, when set, gates both the role and the function.
	Condition           awscdk.CfnCondition
	DeadLetterTargetArn *string
}

// nativeFunction is a Go Lambda function with its execution role.
type nativeFunction struct {
	Role     awsiam.CfnRole
	Function awslambda.CfnFunction
}

// newNativeFunction creates an arm64 provided.al2023 function whose handler
// is the "bootstrap" binary of the given code.
func newNativeFunction(scope constructs.Construct, id string, props nativeFunctionProps) *nativeFunction {
	if props.Code == nil {
		panic(fmt.Sprintf("invalid stack configuration: lambda code for %s is required", props.LogicalID))
	}
	if props.Timeout == 0 {
		props.Timeout = 300
	}

	role := awsiam.NewCfnRole(scope, jsii.String(id+"Role"), &awsiam.CfnRoleProps{
		AssumeRolePolicyDocument: assumeRoleDocument("lambda.amazonaws.com"),
		ManagedPolicyArns: &[]*string{
			jsii.String(fmt.Sprintf("arn:%s:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole", *awscdk.Aws_PARTITION())),
		},
		Policies: policies(props.Policies),
	})
	role.OverrideLogicalId(jsii.String(props.LogicalID + "Role"))
	if props.Condition != nil {
		role.CfnOptions().SetCondition(props.Condition)
	}

	cfg := props.Code.Bind(scope)
	code := &awslambda.CfnFunction_CodeProperty{ZipFile: cfg.InlineCode}
	if loc := cfg.S3Location; loc != nil {
		code.S3Bucket = loc.BucketName
		code.S3Key = loc.ObjectKey
		code.S3ObjectVersion = loc.ObjectVersion
	}

	fnProps := &awslambda.CfnFunctionProps{
		Code:          code,
		Role:          role.AttrArn(),
		Architectures: jsii.Strings("arm64"),
		Handler:       jsii.String("bootstrap"),
		Runtime:       jsii.String("provided.al2023"),
		Timeout:       jsii.Number(props.Timeout),
	}
	if len(props.Environment) > 0 {
		fnProps.Environment = &awslambda.CfnFunction_EnvironmentProperty{
			Variables: &props.Environment,
		}
	}

	if props.DeadLetterTargetArn != nil {
		fnProps.DeadLetterConfig = &awslambda.CfnFunction_DeadLetterConfigProperty{
			TargetArn: props.DeadLetterTargetArn,
		}
	}

	fn := awslambda.NewCfnFunction(scope, jsii.String(id), fnProps)
	fn.OverrideLogicalId(jsii.String(props.LogicalID))
	if props.Condition != nil {
		fn.CfnOptions().SetCondition(props.Condition)
	}
	fn.AddDependency(role)
	props.Code.BindToResource(fn, nil)

	return &nativeFunction{Role: role, Function: fn}
}

// newCustomResource invokes fn as a CloudFormation custom resource.
func newCustomResource(scope constructs.Construct, id, logicalID, resourceType string, fn *nativeFunction, properties map[string]interface{}) awscdk.CustomResource {
	props := &awscdk.CustomResourceProps{
		ServiceToken: fn.Function.AttrArn(),
		ResourceType: jsii.String(resourceType),
	}
	if len(properties) > 0 {
		props.Properties = &properties
	}
	cr := awscdk.NewCustomResource(scope, jsii.String(id), props)
	defaultChild(cr).OverrideLogicalId(jsii.String(logicalID))
	return cr
}
