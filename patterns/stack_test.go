package patterns_test

import (
	"path/filepath"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/jsii-runtime-go"
	"github.com/plexusone/patterns-aws-cdk/patterns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type staticMetadata struct {
	groups []patterns.ParameterGroup
	labels map[string]patterns.ParameterLabel
}

func (m staticMetadata) ParameterGroups() []patterns.ParameterGroup { return m.groups }
func (m staticMetadata) ParameterLabels() map[string]patterns.ParameterLabel { return m.labels }

func interfaceMetadata(tmpl assertions.Template) map[string]any {
	metadata, ok := (*tmpl.ToJSON())["Metadata"].(map[string]any)
	Expect(ok).To(BeTrue())
	iface, ok := metadata["AWS::CloudFormation::Interface"].(map[string]any)
	Expect(ok).To(BeTrue())
	return iface
}

var _ = Describe("pattern stack", func() {
	It("should compose every component", func() {
		s := patterns.NewStackBuilder("full-app").
			WithDescription("Full application stack").
			WithLambdaAssets(filepath.Join("testdata", "lambda")).
			WithAsg(patterns.AsgConfig{UseDataVolume: true}).
			WithAlb().
			WithDns().
			WithAuroraMysql("app").
			WithRedis().
			WithRabbitMQ().
			WithOpenSearch().
			WithEfs().
			WithAssetsBucket(patterns.AssetsBucketConfig{}).
			WithNotificationTopic().
			WithSes("example.com").
			WithPipeline(patterns.PipelineConfig{DemoSourceURL: "https://example.com/demo.zip"}).
			WithTag("Team", "platform").
			Build(awscdk.NewApp(nil))

		Expect(s.Asg).ToNot(BeNil())
		Expect(s.Alb).ToNot(BeNil())
		Expect(s.Dns.RecordSet).ToNot(BeNil())
		Expect(s.Pipeline.InitializeDemo).ToNot(BeNil())
		Expect(s.Config.Database.SecretID).To(Equal("DbSecret"))

		tmpl := assertions.Template_FromStack(s.Stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::Lambda::Function"), jsii.Number(3))
		tmpl.ResourceCountIs(jsii.String(patterns.SubnetToAzType), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String(patterns.GenerateSmtpPasswordType), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String(patterns.InitializeDemoType), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::SecretsManager::Secret"), jsii.Number(2))
		tmpl.ResourceCountIs(jsii.String("AWS::EFS::FileSystem"), jsii.Number(1))

		res := resources(tmpl)
		for _, key := range []string{"DbSgIngress", "ElasticacheSgIngress", "AmazonMQSgIngress", "OpenSearchServiceSgIngress"} {
			Expect(res).To(HaveKey(key))
		}
		tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]any{
			"FromPort": jsii.Number(3306),
			"GroupId":  map[string]any{"Ref": "DbSg"},
		})
		tmpl.HasResourceProperties(jsii.String("AWS::CodeDeploy::DeploymentGroup"), map[string]any{
			"AutoScalingGroups": []map[string]any{{"Ref": jsii.String("Asg")}},
		})

		for _, output := range []string{
			"DbClusterEndpointOutput", "CacheEndpointOutput", "MessageQueueEndpointOutput",
			"SearchEndpointOutput", "FileSystemIdOutput", "AssetsBucketNameOutput", "LoadBalancerDnsNameOutput",
		} {
			tmpl.HasOutput(jsii.String(output), map[string]any{})
		}

		tmpl.HasResourceProperties(jsii.String("AWS::EC2::VPC"), map[string]any{
			"Tags": assertions.Match_ArrayWith(&[]any{
				map[string]any{"Key": jsii.String("Team"), "Value": jsii.String("platform")},
			}),
		})
		Expect((*tmpl.ToJSON())["Description"]).To(Equal("Full application stack"))

		groups, ok := interfaceMetadata(tmpl)["ParameterGroups"].([]any)
		Expect(ok).To(BeTrue())
		Expect(groups).ToNot(BeEmpty())
		Expect(groups[0]).To(HaveKeyWithValue("Label", map[string]any{"default": "VPC: Use Existing"}))
	})

	It("should panic on an invalid configuration", func() {
		Expect(func() {
			patterns.NewStackBuilder("bad").WithAlb().Build(awscdk.NewApp(nil))
		}).To(PanicWith(ContainSubstring("invalid stack configuration")))
	})

	It("should build a stack from a yaml file", func() {
		s, err := patterns.NewStackFromFile(awscdk.NewApp(nil), filepath.Join("testdata", "config.yaml"))
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Cache).ToNot(BeNil())
		Expect(s.FileSystem).To(BeNil())

		tmpl := assertions.Template_FromStack(s.Stack, nil)
		tmpl.HasResourceProperties(jsii.String("AWS::RDS::DBCluster"), map[string]any{
			"Engine":       jsii.String("aurora-postgresql"),
			"DatabaseName": jsii.String("app"),
		})
		tmpl.HasParameter(jsii.String("AsgInstanceType"), map[string]any{"Default": jsii.String("t3.micro")})

		params, ok := (*tmpl.ToJSON())["Parameters"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(params).To(HaveKeyWithValue("AsgInstanceType", HaveKeyWithValue("AllowedValues", Not(ContainElement("t3.nano")))))

		data := templateJSON(tmpl)
		Expect(data).To(ContainSubstring(`echo ${Greeting}`))
		Expect(data).To(ContainSubstring(`"Greeting":"hello"`))
	})

	It("should return configuration errors from data", func() {
		_, err := patterns.NewStackFromJSON(awscdk.NewApp(nil), []byte(`{"stackName":"app","fileSystem":{}}`))
		Expect(err).To(MatchError(ContainSubstring("invalid stack configuration")))
		Expect(err).To(MatchError(ContainSubstring("fileSystem requires asg")))

		s, err := patterns.NewStackFromYAML(awscdk.NewApp(nil), []byte("stackName: small-app\n"))
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Asg).To(BeNil())
	})

	It("should panic when a file cannot be loaded", func() {
		Expect(func() {
			patterns.MustNewStackFromFile(awscdk.NewApp(nil), filepath.Join("testdata", "missing.json"))
		}).To(PanicWith(ContainSubstring("failed to create stack from")))
	})

	It("should render the template as yaml", func() {
		s := patterns.NewStackBuilder("yaml-out").Build(awscdk.NewApp(nil))

		out, err := patterns.SynthTemplateYAML(s.Stack)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring("AWS::EC2::VPC"))
		Expect(out).To(ContainSubstring("VpcIdOutput"))
	})
})

var _ = Describe("cfn include stack", func() {
	It("should extend an existing template", func() {
		s := patterns.NewCfnIncludeBuilder("legacy-app", filepath.Join("testdata", "template.yaml")).
			WithParameter("Environment", "production").
			WithTag("Team", "platform").
			Build(awscdk.NewApp(nil))

		Expect(s.GetParameter("AppVpcId")).ToNot(BeNil())

		appSg, ok := s.GetResource("AppSg").(awsec2.CfnSecurityGroup)
		Expect(ok).To(BeTrue())

		vpc := patterns.NewVpc(s.Stack, "Vpc")
		cache := patterns.NewElasticacheRedis(s.Stack, "Elasticache", patterns.ElasticacheClusterProps{Vpc: vpc})
		patterns.AddSgIngress(cache, appSg)

		tmpl := assertions.Template_FromStack(s.Stack, nil)
		tmpl.HasParameter(jsii.String("AppVpcId"), map[string]any{})
		Expect(*tmpl.ToJSON()).ToNot(HaveKeyWithValue("Parameters", HaveKey("Environment")))
		Expect(templateJSON(tmpl)).To(ContainSubstring("/app/production"))

		res := resources(tmpl)
		Expect(res).To(HaveKey("AppSg"))
		Expect(res).To(HaveKey("AppLogGroup"))
		tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]any{
			"FromPort":              jsii.Number(6379),
			"SourceSecurityGroupId": map[string]any{"Ref": "AppSg"},
		})
		Expect(res).To(HaveKey("ElasticacheSgIngress"))
	})
})

var _ = Describe("interface metadata", func() {
	It("should keep provider order and merge labels", func() {
		stack := newTestStack()
		patterns.AddInterfaceMetadata(stack,
			staticMetadata{
				groups: []patterns.ParameterGroup{{Label: "First", Parameters: []string{"A", "B"}}},
				labels: map[string]patterns.ParameterLabel{"A": {Default: "Parameter A"}},
			},
			staticMetadata{
				groups: []patterns.ParameterGroup{{Label: "Second", Parameters: []string{"C"}}},
				labels: map[string]patterns.ParameterLabel{"C": {Default: "Parameter C"}},
			},
		)
		awscdk.NewCfnWaitConditionHandle(stack, jsii.String("Handle"), nil)

		iface := interfaceMetadata(assertions.Template_FromStack(stack, nil))
		Expect(iface["ParameterGroups"]).To(Equal([]any{
			map[string]any{"Label": map[string]any{"default": "First"}, "Parameters": []any{"A", "B"}},
			map[string]any{"Label": map[string]any{"default": "Second"}, "Parameters": []any{"C"}},
		}))
		Expect(iface["ParameterLabels"]).To(Equal(map[string]any{
			"A": map[string]any{"default": "Parameter A"},
			"C": map[string]any{"default": "Parameter C"},
		}))
	})
})
