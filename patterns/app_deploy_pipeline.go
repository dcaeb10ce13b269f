package patterns

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodedeploy"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/samber/lo"
)

// InitializeDemoType is the custom resource type served by
// cmd/lambda-initialize-demo.
const InitializeDemoType = "Custom::InitializeDemo"

// AppDeployPipelineProps configures an AppDeployPipeline.
type AppDeployPipelineProps struct {
	// AfterBuildCommands run in CodeBuild after the artifact is packaged.
	AfterBuildCommands []string
	// AfterDeployCommands run on each instance in the AfterInstall hook.
	AfterDeployCommands []string
	// Asg is the deployment target. It can also be set later with
	// AddAsgToDeploymentGroup.
	Asg *Asg
	// DemoSourceURL is copied to the source artifact on the first deployment
	// when the InitializeDemo parameter is "true". Empty disables the demo.
	DemoSourceURL string
	// InitializeDemoCode is the demo initializer function. Required with
	// DemoSourceURL.
	InitializeDemoCode   awslambda.Code
	NotificationTopicArn *string
}

// AppDeployPipeline deploys a zip artifact from S3 to an Auto Scaling Group
// with CodePipeline: Source (S3), Transform (CodeBuild) and Deploy
// (CodeDeploy).
type AppDeployPipeline struct {
	constructs.Construct

	id               string
	transformEnvVars []interface{}

	InitializeDemoParam             awscdk.CfnParameter
	PipelineArtifactBucketNameParam awscdk.CfnParameter
	SourceArtifactBucketNameParam   awscdk.CfnParameter
	SourceArtifactObjectKeyParam    awscdk.CfnParameter

	InitializeDemoCondition             awscdk.CfnCondition
	PipelineArtifactBucketNameNotExists awscdk.CfnCondition
	PipelineArtifactBucketNameExists    awscdk.CfnCondition
	SourceArtifactBucketNameExists      awscdk.CfnCondition
	SourceArtifactBucketNameNotExists   awscdk.CfnCondition

	PipelineArtifactBucket    awss3.CfnBucket
	SourceArtifactBucket      awss3.CfnBucket
	CodeBuildTransformRole    awsiam.CfnRole
	CodeBuildTransformProject awscodebuild.CfnProject
	CodeDeployApplication     awscodedeploy.CfnApplication
	CodeDeployRole            awsiam.CfnRole
	CodeDeployDeploymentGroup awscodedeploy.CfnDeploymentGroup
	PipelineRole              awsiam.CfnRole
	SourceStageRole           awsiam.CfnRole
	TransformStageRole        awsiam.CfnRole
	DeployStageRole           awsiam.CfnRole
	Pipeline                  awscodepipeline.CfnPipeline

	// InitializeDemo and InitializeDemoResource are nil without a DemoSourceURL.
	InitializeDemo         *nativeFunction
	InitializeDemoResource awscdk.CustomResource

	SourceArtifactBucketNameOutput awscdk.CfnOutput
	SourceArtifactObjectKeyOutput  awscdk.CfnOutput
}

// NewAppDeployPipeline creates the pipeline.
func NewAppDeployPipeline(scope constructs.Construct, id string, props AppDeployPipelineProps) *AppDeployPipeline {
	if props.DemoSourceURL != "" && props.InitializeDemoCode == nil {
		panic("invalid stack configuration: AppDeployPipeline requires InitializeDemoCode with a DemoSourceURL")
	}
	buildSpec, err := TransformBuildSpec(props.AfterBuildCommands, props.AfterDeployCommands)
	if err != nil {
		panic(fmt.Sprintf("invalid stack configuration: %v", err))
	}

	p := &AppDeployPipeline{Construct: constructs.NewConstruct(scope, jsii.String(id)), id: id}

	p.createParameters(props)
	p.createBuckets()
	p.createCodeBuild(buildSpec)
	p.createCodeDeploy(props)
	p.createPipeline()
	if props.DemoSourceURL != "" {
		p.createInitializeDemo(props)
	}
	if props.Asg != nil {
		p.AddAsgToDeploymentGroup(props.Asg)
	}

	p.SourceArtifactBucketNameOutput = newOutput(p, id+"SourceArtifactBucketNameOutput",
		"The source artifact S3 bucket name that is monitored for updates to be deployed", p.SourceArtifactBucketName())
	p.SourceArtifactObjectKeyOutput = newOutput(p, id+"SourceArtifactObjectKeyOutput",
		"The source artifact S3 object key that is monitored for updates to be deployed", p.SourceArtifactObjectKeyParam.ValueAsString())

	return p
}

func (p *AppDeployPipeline) createParameters(props AppDeployPipelineProps) {
	id := p.id
	if props.DemoSourceURL != "" {
		p.InitializeDemoParam = newParam(p, id+"InitializeDemoParam", "Optional: Trigger the first deployment with a copy of a demo sample codebase.", paramOpts{
			AllowedValues: []string{"true", "false"},
			Default:       "true",
		})
		p.InitializeDemoCondition = newCondition(p, id+"InitializeDemoCondition", isTrue(p.InitializeDemoParam))
	}
	p.PipelineArtifactBucketNameParam = newParam(p, id+"PipelineArtifactBucketNameParam", "Optional: Specify a bucket name for the CodePipeline pipeline to use. The bucket must be in this same AWS account. This can be handy when re-creating this template many times.", paramOpts{Default: ""})
	p.SourceArtifactBucketNameParam = newParam(p, id+"SourceArtifactBucketNameParam", "Optional: Specify a S3 bucket name which will contain the build artifacts for the application. If not specified, a bucket will be created.", paramOpts{Default: ""})
	p.SourceArtifactObjectKeyParam = newParam(p, id+"SourceArtifactObjectKeyParam", "Required: AWS S3 object key (path) for the build artifact for the application. Updates to this object will trigger a deployment.", paramOpts{Default: "artifact.zip"})

	p.PipelineArtifactBucketNameNotExists = newCondition(p, id+"PipelineArtifactBucketNameNotExists", isEmpty(p.PipelineArtifactBucketNameParam))
	p.PipelineArtifactBucketNameExists = newCondition(p, id+"PipelineArtifactBucketNameExists", isNotEmpty(p.PipelineArtifactBucketNameParam))
	p.SourceArtifactBucketNameExists = newCondition(p, id+"SourceArtifactBucketNameExists", isNotEmpty(p.SourceArtifactBucketNameParam))
	p.SourceArtifactBucketNameNotExists = newCondition(p, id+"SourceArtifactBucketNameNotExists", isEmpty(p.SourceArtifactBucketNameParam))
}

func privateBucketProps() *awss3.CfnBucketProps {
	return &awss3.CfnBucketProps{
		AccessControl: jsii.String("Private"),
		BucketEncryption: &awss3.CfnBucket_BucketEncryptionProperty{
			ServerSideEncryptionConfiguration: &[]interface{}{
				&awss3.CfnBucket_ServerSideEncryptionRuleProperty{
					ServerSideEncryptionByDefault: &awss3.CfnBucket_ServerSideEncryptionByDefaultProperty{
						SseAlgorithm: jsii.String("AES256"),
					},
				},
			},
		},
		PublicAccessBlockConfiguration: &awss3.CfnBucket_PublicAccessBlockConfigurationProperty{
			BlockPublicAcls:       jsii.Bool(true),
			BlockPublicPolicy:     jsii.Bool(true),
			IgnorePublicAcls:      jsii.Bool(true),
			RestrictPublicBuckets: jsii.Bool(true),
		},
	}
}

func (p *AppDeployPipeline) createBuckets() {
	p.PipelineArtifactBucket = awss3.NewCfnBucket(p, jsii.String("PipelineArtifactBucket"), privateBucketProps())
	p.PipelineArtifactBucket.OverrideLogicalId(jsii.String(p.id + "PipelineArtifactBucket"))
	p.PipelineArtifactBucket.CfnOptions().SetCondition(p.PipelineArtifactBucketNameNotExists)
	retain(p.PipelineArtifactBucket)

	sourceProps := privateBucketProps()
	sourceProps.VersioningConfiguration = &awss3.CfnBucket_VersioningConfigurationProperty{
		Status: jsii.String("Enabled"),
	}
	p.SourceArtifactBucket = awss3.NewCfnBucket(p, jsii.String("SourceArtifactBucket"), sourceProps)
	p.SourceArtifactBucket.OverrideLogicalId(jsii.String(p.id + "SourceArtifactBucket"))
	p.SourceArtifactBucket.CfnOptions().SetCondition(p.SourceArtifactBucketNameNotExists)
	retain(p.SourceArtifactBucket)
}

// PipelineArtifactBucketName returns the created or the given pipeline
// artifact bucket name.
func (p *AppDeployPipeline) PipelineArtifactBucketName() *string {
	return ifString(p.PipelineArtifactBucketNameExists, p.PipelineArtifactBucketNameParam.ValueAsString(), p.PipelineArtifactBucket.Ref())
}

// PipelineArtifactBucketArn returns the ARN of all objects in the pipeline
// artifact bucket, suitable for AsgProps.PipelineBucketArn.
func (p *AppDeployPipeline) PipelineArtifactBucketArn() *string {
	return arn(p, &awscdk.ArnComponents{
		Account:      jsii.String(""),
		Region:       jsii.String(""),
		Resource:     p.PipelineArtifactBucketName(),
		ResourceName: jsii.String("*"),
		Service:      jsii.String("s3"),
	})
}

// SourceArtifactBucketName returns the created or the given source bucket name.
func (p *AppDeployPipeline) SourceArtifactBucketName() *string {
	return ifString(p.SourceArtifactBucketNameExists, p.SourceArtifactBucketNameParam.ValueAsString(), p.SourceArtifactBucket.Ref())
}

func (p *AppDeployPipeline) sourceArtifactBucketArn() *string {
	return arn(p, &awscdk.ArnComponents{
		Account:  jsii.String(""),
		Region:   jsii.String(""),
		Resource: p.SourceArtifactBucketName(),
		Service:  jsii.String("s3"),
	})
}

func (p *AppDeployPipeline) sourceArtifactObjectArn() *string {
	return arn(p, &awscdk.ArnComponents{
		Account:      jsii.String(""),
		Region:       jsii.String(""),
		Resource:     p.SourceArtifactBucketName(),
		ResourceName: p.SourceArtifactObjectKeyParam.ValueAsString(),
		Service:      jsii.String("s3"),
	})
}

func (p *AppDeployPipeline) artifactReadWrite() awsiam.PolicyStatement {
	return allow([]string{"s3:GetObject", "s3:PutObject"}, p.PipelineArtifactBucketArn())
}

func (p *AppDeployPipeline) createCodeBuild(buildSpec string) {
	p.CodeBuildTransformRole = newRole(p, "CodeBuildTransformServiceRole", p.id+"CodeBuildTransformServiceRole",
		assumeRoleDocument("codebuild.amazonaws.com"),
		inlinePolicy("TransformRolePermssions",
			allow([]string{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"}, anyResource),
			p.artifactReadWrite(),
		))

	p.CodeBuildTransformProject = awscodebuild.NewCfnProject(p, jsii.String("CodeBuildTransformProject"), &awscodebuild.CfnProjectProps{
		Artifacts: &awscodebuild.CfnProject_ArtifactsProperty{
			Type: jsii.String("CODEPIPELINE"),
		},
		Environment: p.transformEnvironment(),
		Name:        jsii.String(*awscdk.Aws_STACK_NAME() + "-transform"),
		ServiceRole: p.CodeBuildTransformRole.AttrArn(),
		Source: &awscodebuild.CfnProject_SourceProperty{
			BuildSpec: jsii.String(buildSpec),
			Type:      jsii.String("CODEPIPELINE"),
		},
	})
	p.CodeBuildTransformProject.OverrideLogicalId(jsii.String(p.id + "CodeBuildTransformProject"))
}

func (p *AppDeployPipeline) transformEnvironment() *awscodebuild.CfnProject_EnvironmentProperty {
	vars := append([]interface{}{}, p.transformEnvVars...)
	return &awscodebuild.CfnProject_EnvironmentProperty{
		ComputeType:          jsii.String("BUILD_GENERAL1_SMALL"),
		EnvironmentVariables: &vars,
		Image:                jsii.String("aws/codebuild/standard:7.0"),
		Type:                 jsii.String("LINUX_CONTAINER"),
	}
}

// AddCodeBuildTransformEnvironmentVariable exposes name=value to the
// transform build.
func (p *AppDeployPipeline) AddCodeBuildTransformEnvironmentVariable(name string, value *string) {
	p.transformEnvVars = append(p.transformEnvVars, &awscodebuild.CfnProject_EnvironmentVariableProperty{
		Name:  jsii.String(name),
		Value: value,
	})
	p.CodeBuildTransformProject.SetEnvironment(p.transformEnvironment())
}

func (p *AppDeployPipeline) createCodeDeploy(props AppDeployPipelineProps) {
	p.CodeDeployApplication = awscodedeploy.NewCfnApplication(p, jsii.String("CodeDeployApplication"), &awscodedeploy.CfnApplicationProps{
		ApplicationName: awscdk.Aws_STACK_NAME(),
		ComputePlatform: jsii.String("Server"),
	})
	p.CodeDeployApplication.OverrideLogicalId(jsii.String(p.id + "CodeDeployApplication"))

	p.CodeDeployRole = newRole(p, "CodeDeployRole", p.id+"CodeDeployRole",
		assumeRoleDocument(fmt.Sprintf("codedeploy.%s.amazonaws.com", *awscdk.Aws_REGION())),
		inlinePolicy("DeployRolePermssions", p.artifactReadWrite()))
	p.CodeDeployRole.SetManagedPolicyArns(&[]*string{
		jsii.String(fmt.Sprintf("arn:%s:iam::aws:policy/service-role/AWSCodeDeployRole", *awscdk.Aws_PARTITION())),
	})

	groupProps := &awscodedeploy.CfnDeploymentGroupProps{
		ApplicationName:      p.CodeDeployApplication.Ref(),
		DeploymentConfigName: jsii.String("CodeDeployDefault.OneAtATime"),
		DeploymentGroupName:  jsii.String(*awscdk.Aws_STACK_NAME() + "-app"),
		ServiceRoleArn:       p.CodeDeployRole.AttrArn(),
	}
	if props.NotificationTopicArn != nil {
		groupProps.TriggerConfigurations = &[]interface{}{
			&awscodedeploy.CfnDeploymentGroup_TriggerConfigProperty{
				TriggerEvents:    jsii.Strings("DeploymentSuccess", "DeploymentRollback"),
				TriggerName:      jsii.String("DeploymentNotification"),
				TriggerTargetArn: props.NotificationTopicArn,
			},
		}
	}
	p.CodeDeployDeploymentGroup = awscodedeploy.NewCfnDeploymentGroup(p, jsii.String("CodeDeployDeploymentGroup"), groupProps)
	p.CodeDeployDeploymentGroup.OverrideLogicalId(jsii.String(p.id + "CodeDeployDeploymentGroup"))
}

// AddAsgToDeploymentGroup makes asg the deployment target.
func (p *AppDeployPipeline) AddAsgToDeploymentGroup(asg *Asg) {
	p.CodeDeployDeploymentGroup.SetAutoScalingGroups(&[]*string{asg.Asg.Ref()})
}

func sidStatement(sid string, actions []string, resources ...*string) awsiam.PolicyStatement {
	return awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:       jsii.String(sid),
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings(actions...),
		Resources: &resources,
	})
}

func (p *AppDeployPipeline) createPipeline() {
	id := p.id
	p.PipelineRole = newRole(p, "PipelineRole", id+"PipelineRole", assumeRoleDocument("codepipeline.amazonaws.com"))
	byPipeline := func() awsiam.PolicyDocument {
		return trustDocument(awsiam.NewArnPrincipal(p.PipelineRole.AttrArn()))
	}

	p.SourceStageRole = newRole(p, "SourceStageRole", id+"SourceStageRole", byPipeline(),
		inlinePolicy("SourceRolePerms",
			allow([]string{"s3:Get*", "s3:Head*"}, p.sourceArtifactObjectArn()),
			allow([]string{"s3:GetBucketVersioning"}, p.sourceArtifactBucketArn()),
			p.artifactReadWrite(),
		))

	p.TransformStageRole = newRole(p, "TransformStageRole", id+"TransformStageRole", byPipeline(),
		inlinePolicy("TransformRolePerms",
			allow([]string{"codebuild:BatchGetBuilds", "codebuild:StartBuild"}, p.CodeBuildTransformProject.AttrArn()),
		))

	codedeployArn := func(resource string) *string {
		return jsii.String(fmt.Sprintf("arn:%s:codedeploy:%s:%s:%s",
			*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), resource))
	}
	p.DeployStageRole = newRole(p, "DeployStageRole", id+"DeployStageRole", byPipeline(),
		inlinePolicy("DeployRolePerms",
			sidStatement("codedeployapplication",
				[]string{"codedeploy:GetApplication", "codedeploy:RegisterApplicationRevision"},
				codedeployArn("application:"+*p.CodeDeployApplication.Ref())),
			sidStatement("codedeploydeploymentgroup",
				[]string{"codedeploy:CreateDeployment", "codedeploy:GetDeployment", "codedeploy:GetDeploymentGroup"},
				codedeployArn("deploymentgroup:"+*p.CodeDeployApplication.Ref()+"/"+*p.CodeDeployDeploymentGroup.Ref())),
			p.artifactReadWrite(),
			sidStatement("codedeploydeploymentconfig",
				[]string{"codedeploy:GetDeploymentConfig"},
				codedeployArn("deploymentconfig:CodeDeployDefault.AllAtOnce"),
				codedeployArn("deploymentconfig:CodeDeployDefault.OneAtATime")),
		))

	stage := func(name string, action *awscodepipeline.CfnPipeline_ActionDeclarationProperty) interface{} {
		return &awscodepipeline.CfnPipeline_StageDeclarationProperty{
			Name:    jsii.String(name),
			Actions: &[]interface{}{action},
		}
	}
	actionType := func(category, provider string) *awscodepipeline.CfnPipeline_ActionTypeIdProperty {
		return &awscodepipeline.CfnPipeline_ActionTypeIdProperty{
			Category: jsii.String(category),
			Owner:    jsii.String("AWS"),
			Provider: jsii.String(provider),
			Version:  jsii.String("1"),
		}
	}
	artifacts := func(input bool, names ...string) *[]interface{} {
		out := lo.Map(names, func(n string, _ int) interface{} {
			if input {
				return &awscodepipeline.CfnPipeline_InputArtifactProperty{Name: jsii.String(n)}
			}
			return &awscodepipeline.CfnPipeline_OutputArtifactProperty{Name: jsii.String(n)}
		})
		return &out
	}

	p.Pipeline = awscodepipeline.NewCfnPipeline(p, jsii.String("Pipeline"), &awscodepipeline.CfnPipelineProps{
		ArtifactStore: &awscodepipeline.CfnPipeline_ArtifactStoreProperty{
			Location: p.PipelineArtifactBucketName(),
			Type:     jsii.String("S3"),
		},
		RoleArn: p.PipelineRole.AttrArn(),
		Stages: &[]interface{}{
			stage("Source", &awscodepipeline.CfnPipeline_ActionDeclarationProperty{
				ActionTypeId: actionType("Source", "S3"),
				Configuration: map[string]interface{}{
					"S3Bucket":    p.SourceArtifactBucketName(),
					"S3ObjectKey": p.SourceArtifactObjectKeyParam.ValueAsString(),
				},
				Name:            jsii.String("SourceAction"),
				OutputArtifacts: artifacts(false, "build"),
				RoleArn:         p.SourceStageRole.AttrArn(),
			}),
			stage("Transform", &awscodepipeline.CfnPipeline_ActionDeclarationProperty{
				ActionTypeId: actionType("Build", "CodeBuild"),
				Configuration: map[string]interface{}{
					"ProjectName": p.CodeBuildTransformProject.Ref(),
				},
				InputArtifacts:  artifacts(true, "build"),
				Name:            jsii.String("TransformAction"),
				OutputArtifacts: artifacts(false, "transformed"),
				RoleArn:         p.TransformStageRole.AttrArn(),
			}),
			stage("Deploy", &awscodepipeline.CfnPipeline_ActionDeclarationProperty{
				ActionTypeId: actionType("Deploy", "CodeDeploy"),
				Configuration: map[string]interface{}{
					"ApplicationName":     p.CodeDeployApplication.Ref(),
					"DeploymentGroupName": p.CodeDeployDeploymentGroup.Ref(),
				},
				InputArtifacts: artifacts(true, "transformed"),
				Name:           jsii.String("DeployAction"),
				RoleArn:        p.DeployStageRole.AttrArn(),
			}),
		},
	})
	p.Pipeline.OverrideLogicalId(jsii.String(id + "Pipeline"))
}

func (p *AppDeployPipeline) createInitializeDemo(props AppDeployPipelineProps) {
	rolePolicies := []*awsiam.CfnRole_PolicyProperty{
		inlinePolicy("PutDemoArtifact",
			allow([]string{"s3:ListBucket"}, p.sourceArtifactBucketArn()),
			allow([]string{"s3:GetObject", "s3:PutObject"}, p.sourceArtifactObjectArn()),
		),
	}
	if props.NotificationTopicArn != nil {
		rolePolicies = append(rolePolicies, inlinePolicy("SnsPublishToNotificationTopic",
			allow([]string{"sns:Publish"}, props.NotificationTopicArn)))
	}

	p.InitializeDemo = newNativeFunction(p, "InitializeDemoLambdaFunction", nativeFunctionProps{
		LogicalID: p.id + "InitializeDemoLambdaFunction",
		Code:      props.InitializeDemoCode,
		Policies:  rolePolicies,
		Environment: map[string]*string{
			"DemoSourceUrl":           jsii.String(props.DemoSourceURL),
			"SourceArtifactBucket":    p.SourceArtifactBucketName(),
			"SourceArtifactObjectKey": p.SourceArtifactObjectKeyParam.ValueAsString(),
			"StackName":               awscdk.Aws_STACK_NAME(),
		},
		Condition:           p.InitializeDemoCondition,
		DeadLetterTargetArn: props.NotificationTopicArn,
	})

	p.InitializeDemoResource = newCustomResource(p, "InitializeDemoCustomResource", p.id+"InitializeDemoCustomResource",
		InitializeDemoType, p.InitializeDemo, nil)
	defaultChild(p.InitializeDemoResource).CfnOptions().SetCondition(p.InitializeDemoCondition)
}

// ParameterGroups implements MetadataProvider.
func (p *AppDeployPipeline) ParameterGroups() []ParameterGroup {
	params := []awscdk.CfnParameter{
		p.PipelineArtifactBucketNameParam, p.SourceArtifactBucketNameParam, p.SourceArtifactObjectKeyParam,
	}
	if p.InitializeDemoParam != nil {
		params = append([]awscdk.CfnParameter{p.InitializeDemoParam}, params...)
	}
	return []ParameterGroup{group("Deploy Pipeline Configuration", params...)}
}

// ParameterLabels implements MetadataProvider.
func (p *AppDeployPipeline) ParameterLabels() map[string]ParameterLabel {
	labels := map[string]ParameterLabel{
		lid(p.PipelineArtifactBucketNameParam): {Default: "Pipeline Artifact Bucket Name"},
		lid(p.SourceArtifactBucketNameParam):   {Default: "Source Artifact Bucket Name"},
		lid(p.SourceArtifactObjectKeyParam):    {Default: "Source Artifact Object Key"},
	}
	if p.InitializeDemoParam != nil {
		labels[lid(p.InitializeDemoParam)] = ParameterLabel{Default: "Initialize Demo"}
	}
	return labels
}
