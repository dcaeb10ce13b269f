package patterns_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/jsii-runtime-go"
	"github.com/plexusone/patterns-aws-cdk/patterns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("data stores", func() {
	var stack awscdk.Stack
	var vpc *patterns.Vpc
	var appSg awsec2.CfnSecurityGroup

	BeforeEach(func() {
		stack = newTestStack()
		vpc = patterns.NewVpc(stack, "Vpc")
		appSg = awsec2.NewCfnSecurityGroup(stack, jsii.String("AppSg"), &awsec2.CfnSecurityGroupProps{
			GroupDescription: jsii.String("app"),
			VpcId:            vpc.ID(),
		})
	})

	Describe("aurora", func() {
		It("should create a mysql cluster from the db secret", func() {
			db := patterns.NewAuroraMysql(stack, "Db", patterns.AuroraClusterProps{
				DbSecret:     patterns.NewDbSecret(stack, "DbSecret"),
				Vpc:          vpc,
				DatabaseName: "wordpress",
			})
			Expect(db.Port()).To(Equal(3306.0))

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::RDS::DBCluster"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::RDS::DBInstance"), jsii.Number(1))
			tmpl.HasResourceProperties(jsii.String("AWS::RDS::DBCluster"), map[string]any{
				"Engine":           jsii.String("aurora-mysql"),
				"DatabaseName":     jsii.String("wordpress"),
				"Port":             jsii.Number(3306),
				"StorageEncrypted": jsii.Bool(true),
			})
			tmpl.HasParameter(jsii.String("DbInstanceClass"), map[string]any{"Default": jsii.String("db.t4g.medium")})

			rules, ok := (*tmpl.ToJSON())["Rules"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(rules).To(HaveKey("DbSnapshotIdentifierAndSecretRequiredRule"))
			Expect(templateJSON(tmpl)).To(ContainSubstring(`:SecretString:password}}`))
		})

		It("should create a postgresql cluster", func() {
			patterns.NewAuroraPostgresql(stack, "Db", patterns.AuroraClusterProps{
				DbSecret: patterns.NewDbSecret(stack, "DbSecret"),
				Vpc:      vpc,
			})

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::RDS::DBCluster"), jsii.Number(1))
			tmpl.HasResourceProperties(jsii.String("AWS::RDS::DBCluster"), map[string]any{
				"Engine": jsii.String("aurora-postgresql"),
				"Port":   jsii.Number(5432),
			})
		})

		It("should require a secret", func() {
			Expect(func() {
				patterns.NewAuroraMysql(stack, "Db", patterns.AuroraClusterProps{Vpc: vpc})
			}).To(PanicWith(ContainSubstring("requires a DbSecret")))
		})
	})

	Describe("elasticache", func() {
		It("should create a redis cluster", func() {
			cache := patterns.NewElasticacheRedis(stack, "Elasticache", patterns.ElasticacheClusterProps{Vpc: vpc})
			patterns.AddSgIngress(cache, appSg)

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::ElastiCache::CacheCluster"), jsii.Number(1))
			tmpl.HasResourceProperties(jsii.String("AWS::ElastiCache::CacheCluster"), map[string]any{
				"Engine": jsii.String("redis"),
			})
			tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]any{
				"FromPort":              jsii.Number(6379),
				"ToPort":                jsii.Number(6379),
				"IpProtocol":            jsii.String("tcp"),
				"GroupId":               map[string]any{"Ref": "ElasticacheSg"},
				"SourceSecurityGroupId": map[string]any{"Ref": "AppSg"},
			})
			Expect(resources(tmpl)).To(HaveKey("ElasticacheSgIngress"))
			Expect(*tmpl.ToJSON()).ToNot(HaveKeyWithValue("Conditions", HaveKey("ElasticacheMultiNodeCondition")))
		})

		It("should spread memcached nodes across zones", func() {
			patterns.NewElasticacheMemcached(stack, "Elasticache", patterns.ElasticacheClusterProps{
				Vpc:              vpc,
				CustomParameters: map[string]*string{"max_item_size": jsii.String("10485760")},
			})

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::ElastiCache::CacheCluster"), jsii.Number(1))
			tmpl.HasCondition(jsii.String("ElasticacheMultiNodeCondition"), map[string]any{})
			tmpl.HasResourceProperties(jsii.String("AWS::ElastiCache::ParameterGroup"), map[string]any{
				"CacheParameterGroupFamily": jsii.String("memcached1.6"),
				"Properties":                map[string]any{"max_item_size": jsii.String("10485760")},
			})
		})
	})

	Describe("amazonmq", func() {
		It("should create a rabbitmq broker", func() {
			mq := patterns.NewRabbitMQ(stack, "AmazonMQ", patterns.AmazonMQProps{
				Secret: patterns.NewSecret(stack, "RabbitMQ", &patterns.SecretProps{Username: "rabbitmq"}),
				Vpc:    vpc,
			})
			Expect(mq.Port()).To(Equal(5671.0))
			Expect(mq.BrokerEndpoint()).ToNot(BeNil())

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::AmazonMQ::Broker"), jsii.Number(1))
			tmpl.HasResourceProperties(jsii.String("AWS::AmazonMQ::Broker"), map[string]any{
				"EngineType":         jsii.String("RABBITMQ"),
				"DeploymentMode":     jsii.String("SINGLE_INSTANCE"),
				"PubliclyAccessible": jsii.Bool(false),
				"BrokerName": map[string]any{
					"Fn::Join": []any{"-", []any{
						"mq",
						map[string]any{"Fn::Select": []any{2, map[string]any{"Fn::Split": []any{"/", map[string]any{"Ref": "AWS::StackId"}}}}},
					}},
				},
			})
			tmpl.HasParameter(jsii.String("AmazonMQInstanceType"), map[string]any{"Default": jsii.String("mq.t3.micro")})
		})
	})

	Describe("opensearch", func() {
		It("should create an encrypted domain", func() {
			patterns.NewOpenSearchService(stack, "OpenSearchService", patterns.OpenSearchServiceProps{Vpc: vpc})

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::OpenSearchService::Domain"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(1))
			tmpl.HasResource(jsii.String("AWS::IAM::ServiceLinkedRole"), map[string]any{
				"Condition": jsii.String("OpenSearchServiceCreateServiceLinkedRoleCondition"),
			})
			tmpl.HasResource(jsii.String("AWS::OpenSearchService::Domain"), map[string]any{
				"DependsOn": []string{"OpenSearchServiceWaitConditionHandle"},
				"Properties": map[string]any{
					"EncryptionAtRestOptions":     map[string]any{"Enabled": jsii.Bool(true)},
					"NodeToNodeEncryptionOptions": map[string]any{"Enabled": jsii.Bool(true)},
				},
			})
		})
	})

	Describe("efs", func() {
		It("should create a file system reachable from the app", func() {
			patterns.NewEfs(stack, "Efs", patterns.EfsProps{Vpc: vpc, AppSg: appSg})

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::EFS::FileSystem"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::EFS::MountTarget"), jsii.Number(2))
			tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]any{
				"FromPort":              jsii.Number(2049),
				"SourceSecurityGroupId": map[string]any{"Ref": "AppSg"},
			})
			Expect(resources(tmpl)).To(HaveKey("AppEfs"))
		})

		It("should require the app security group", func() {
			Expect(func() {
				patterns.NewEfs(stack, "Efs", patterns.EfsProps{Vpc: vpc})
			}).To(PanicWith(ContainSubstring("Efs requires a Vpc and an AppSg")))
		})
	})
})
