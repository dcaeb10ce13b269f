package patterns_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/plexusone/patterns-aws-cdk/patterns"
	"gopkg.in/yaml.v3"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("assets bucket", func() {
	var stack awscdk.Stack

	BeforeEach(func() {
		stack = newTestStack()
	})

	It("should create a private retained bucket", func() {
		b := patterns.NewAssetsBucket(stack, "AssetsBucket", patterns.AssetsBucketProps{})
		Expect(b.UserPolicy).ToNot(BeNil())
		Expect(b.RolePolicy).ToNot(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(1))
		tmpl.HasResource(jsii.String("AWS::S3::Bucket"), map[string]any{
			"Condition":      jsii.String("AssetsBucketNameNotExists"),
			"DeletionPolicy": jsii.String("Retain"),
			"Properties": map[string]any{
				"AccessControl": jsii.String("Private"),
			},
		})
		tmpl.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]any{
			"CorsConfiguration": assertions.Match_Absent(),
		})
	})

	It("should open cors and public access on request", func() {
		patterns.NewAssetsBucket(stack, "AssetsBucket", patterns.AssetsBucketProps{
			AllowOpenCors:           true,
			ObjectOwnershipValue:    "ObjectWriter",
			RemovePublicAccessBlock: true,
		})

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]any{
			"CorsConfiguration": map[string]any{
				"CorsRules": []map[string]any{{
					"AllowedMethods": []string{"GET"},
					"AllowedOrigins": []string{"*"},
				}},
			},
			"OwnershipControls": map[string]any{
				"Rules": []map[string]any{{"ObjectOwnership": jsii.String("ObjectWriter")}},
			},
			"PublicAccessBlockConfiguration": map[string]any{
				"BlockPublicAcls":  jsii.Bool(false),
				"IgnorePublicAcls": jsii.Bool(false),
			},
		})
	})
})

var _ = Describe("notification topic", func() {
	It("should create the topic and an email subscription", func() {
		stack := newTestStack()
		topic := patterns.NewNotificationTopic(stack, "NotificationTopic")
		Expect(topic.NotificationTopicArn()).ToNot(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::SNS::Topic"), jsii.Number(1))
		tmpl.HasResource(jsii.String("AWS::SNS::Subscription"), map[string]any{
			"Condition":  jsii.String("NotificationTopicEmailExists"),
			"Properties": map[string]any{"Protocol": jsii.String("email")},
		})
		tmpl.HasOutput(jsii.String("NotificationTopicArnOutput"), map[string]any{})
	})
})

var _ = Describe("ses", func() {
	var stack awscdk.Stack

	BeforeEach(func() {
		stack = newTestStack()
	})

	It("should verify the domain and generate smtp credentials", func() {
		ses := patterns.NewSes(stack, "Ses", patterns.SesProps{
			HostedZoneName:           "test.patterns.ordinaryexperts.com",
			GenerateSMTPPasswordCode: inlineCode(),
		})
		Expect(ses.SecretArn()).ToNot(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::SES::EmailIdentity"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::Route53::RecordSet"), jsii.Number(3))
		tmpl.ResourceCountIs(jsii.String("AWS::IAM::AccessKey"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String(patterns.GenerateSmtpPasswordType), jsii.Number(1))
		tmpl.HasResourceProperties(jsii.String("AWS::SES::EmailIdentity"), map[string]any{
			"EmailIdentity": jsii.String("test.patterns.ordinaryexperts.com"),
		})
		tmpl.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]any{
			"HostedZoneName": jsii.String("test.patterns.ordinaryexperts.com."),
			"Type":           jsii.String("CNAME"),
		})
		tmpl.HasResourceProperties(jsii.String(patterns.GenerateSmtpPasswordType), map[string]any{
			"access_key_id":     map[string]any{"Ref": "SesInstanceUserAccessKey"},
			"secret_access_key": map[string]any{"Fn::GetAtt": []string{"SesInstanceUserAccessKey", "SecretAccessKey"}},
			"stack_name":        map[string]any{"Ref": "AWS::StackName"},
		})
	})

	It("should require a hosted zone", func() {
		Expect(func() {
			patterns.NewSes(stack, "Ses", patterns.SesProps{GenerateSMTPPasswordCode: inlineCode()})
		}).To(PanicWith(ContainSubstring("Ses requires a hosted zone name")))
	})
})

var _ = Describe("app deploy pipeline", func() {
	var stack awscdk.Stack

	BeforeEach(func() {
		stack = newTestStack()
	})

	It("should deploy to the asg through codedeploy", func() {
		vpc := patterns.NewVpc(stack, "Vpc")
		asg := patterns.NewAsg(stack, "Asg", patterns.AsgProps{Vpc: vpc})
		pipeline := patterns.NewAppDeployPipeline(stack, "Pipeline", patterns.AppDeployPipelineProps{
			Asg:                 asg,
			AfterDeployCommands: []string{"systemctl restart app"},
		})
		pipeline.AddCodeBuildTransformEnvironmentVariable("STAGE", jsii.String("prod"))
		Expect(pipeline.InitializeDemo).To(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::CodePipeline::Pipeline"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::CodeBuild::Project"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String(patterns.InitializeDemoType), jsii.Number(0))
		tmpl.HasResourceProperties(jsii.String("AWS::CodeDeploy::DeploymentGroup"), map[string]any{
			"AutoScalingGroups":    []map[string]any{{"Ref": jsii.String("Asg")}},
			"DeploymentConfigName": jsii.String("CodeDeployDefault.OneAtATime"),
		})
		tmpl.HasResourceProperties(jsii.String("AWS::CodeBuild::Project"), map[string]any{
			"Environment": map[string]any{
				"EnvironmentVariables": []map[string]any{{"Name": jsii.String("STAGE"), "Value": jsii.String("prod")}},
			},
		})
		Expect(templateJSON(tmpl)).To(ContainSubstring("systemctl restart app"))
		tmpl.HasOutput(jsii.String("PipelineSourceArtifactObjectKeyOutput"), map[string]any{})
	})

	It("should run the source, transform and deploy stages", func() {
		patterns.NewAppDeployPipeline(stack, "Pipeline", patterns.AppDeployPipelineProps{})

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResourceProperties(jsii.String("AWS::CodePipeline::Pipeline"), map[string]any{
			"ArtifactStore": map[string]any{"Type": jsii.String("S3")},
			"Stages": []map[string]any{
				{"Name": jsii.String("Source"), "Actions": []map[string]any{{
					"ActionTypeId":    map[string]any{"Category": jsii.String("Source"), "Provider": jsii.String("S3")},
					"OutputArtifacts": []map[string]any{{"Name": jsii.String("build")}},
				}}},
				{"Name": jsii.String("Transform"), "Actions": []map[string]any{{
					"ActionTypeId":    map[string]any{"Category": jsii.String("Build"), "Provider": jsii.String("CodeBuild")},
					"InputArtifacts":  []map[string]any{{"Name": jsii.String("build")}},
					"OutputArtifacts": []map[string]any{{"Name": jsii.String("transformed")}},
				}}},
				{"Name": jsii.String("Deploy"), "Actions": []map[string]any{{
					"ActionTypeId":   map[string]any{"Category": jsii.String("Deploy"), "Provider": jsii.String("CodeDeploy")},
					"InputArtifacts": []map[string]any{{"Name": jsii.String("transformed")}},
				}}},
			},
		})
		tmpl.HasResource(jsii.String("AWS::S3::Bucket"), map[string]any{
			"Condition":      jsii.String("PipelineSourceArtifactBucketNameNotExists"),
			"DeletionPolicy": jsii.String("Retain"),
			"Properties": map[string]any{
				"VersioningConfiguration": map[string]any{"Status": jsii.String("Enabled")},
			},
		})
		tmpl.HasResource(jsii.String("AWS::S3::Bucket"), map[string]any{
			"Condition": jsii.String("PipelinePipelineArtifactBucketNameNotExists"),
		})
		tmpl.HasResourceProperties(jsii.String("AWS::CodeBuild::Project"), map[string]any{
			"Environment": map[string]any{"Image": jsii.String("aws/codebuild/standard:7.0")},
		})
		tmpl.HasParameter(jsii.String("PipelineSourceArtifactObjectKeyParam"), map[string]any{"Default": jsii.String("artifact.zip")})
		tmpl.HasParameter(jsii.String("PipelineSourceArtifactBucketNameParam"), map[string]any{"Default": jsii.String("")})

		params, ok := (*tmpl.ToJSON())["Parameters"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(params).ToNot(HaveKey("PipelineInitializeDemoParam"))
		Expect(*tmpl.ToJSON()).ToNot(HaveKeyWithValue("Conditions", HaveKey("PipelineInitializeDemoCondition")))
	})

	It("should seed the source artifact with a demo", func() {
		topic := patterns.NewNotificationTopic(stack, "NotificationTopic")
		pipeline := patterns.NewAppDeployPipeline(stack, "Pipeline", patterns.AppDeployPipelineProps{
			DemoSourceURL:        "https://example.com/demo.zip",
			InitializeDemoCode:   inlineCode(),
			NotificationTopicArn: topic.NotificationTopicArn(),
		})
		Expect(pipeline.InitializeDemo).ToNot(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResource(jsii.String(patterns.InitializeDemoType), map[string]any{
			"Condition": jsii.String("PipelineInitializeDemoCondition"),
		})
		tmpl.HasResource(jsii.String("AWS::Lambda::Function"), map[string]any{
			"Condition": jsii.String("PipelineInitializeDemoCondition"),
			"Properties": map[string]any{
				"Environment": map[string]any{
					"Variables": map[string]any{
						"DemoSourceUrl":           jsii.String("https://example.com/demo.zip"),
						"SourceArtifactObjectKey": map[string]any{"Ref": "PipelineSourceArtifactObjectKeyParam"},
					},
				},
			},
		})
		tmpl.HasParameter(jsii.String("PipelineInitializeDemoParam"), map[string]any{"Default": jsii.String("true")})
		tmpl.HasResourceProperties(jsii.String("AWS::CodeDeploy::DeploymentGroup"), map[string]any{
			"TriggerConfigurations": []map[string]any{{"TriggerName": jsii.String("DeploymentNotification")}},
		})
	})

	It("should require the demo lambda with a demo url", func() {
		Expect(func() {
			patterns.NewAppDeployPipeline(stack, "Pipeline", patterns.AppDeployPipelineProps{
				DemoSourceURL: "https://example.com/demo.zip",
			})
		}).To(PanicWith(ContainSubstring("requires InitializeDemoCode")))
	})
})

var _ = Describe("transform buildspec", func() {
	It("should package the after install hook", func() {
		out, err := patterns.TransformBuildSpec([]string{"npm ci"}, []string{"service app restart"})
		Expect(err).ToNot(HaveOccurred())

		var bs struct {
			Version float64 `yaml:"version"`
			Phases  struct {
				Build struct {
					Commands []string `yaml:"commands"`
					Finally  []string `yaml:"finally"`
				} `yaml:"build"`
			} `yaml:"phases"`
			Artifacts struct {
				Files []string `yaml:"files"`
			} `yaml:"artifacts"`
		}
		Expect(yaml.Unmarshal([]byte(out), &bs)).To(Succeed())

		Expect(bs.Version).To(Equal(0.2))
		Expect(bs.Artifacts.Files).To(Equal([]string{"**/*"}))
		Expect(bs.Phases.Build.Finally).To(Equal([]string{"echo Finished build"}))

		cmds := bs.Phases.Build.Commands
		Expect(cmds).To(HaveLen(4))
		Expect(cmds[0]).To(HavePrefix("cat << EOF > after-install.sh;\n#!/bin/bash\n"))
		Expect(cmds[0]).To(ContainSubstring("# Custom Commands\n###\nservice app restart\n"))
		Expect(cmds[0]).To(ContainSubstring("cat << EOF > appspec.yml;\nversion: 0.0\nos: linux\n"))
		Expect(cmds[1:]).To(Equal([]string{"cat appspec.yml", "cat after-install.sh", "npm ci"}))
	})
})
