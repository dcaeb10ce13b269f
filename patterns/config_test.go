package patterns_test

import (
	"os"
	"path/filepath"

	"github.com/aws/jsii-runtime-go"
	"github.com/plexusone/patterns-aws-cdk/patterns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stack config", func() {
	It("should apply default construct ids", func() {
		cfg := patterns.StackConfig{
			StackName:    "app",
			Asg:          &patterns.AsgConfig{},
			Database:     &patterns.DatabaseConfig{Engine: "mysql"},
			MessageQueue: &patterns.MessageQueueConfig{},
			Pipeline:     &patterns.PipelineConfig{},
		}
		cfg.ApplyDefaults()

		Expect(cfg.Vpc.ID).To(Equal("Vpc"))
		Expect(cfg.Asg.ID).To(Equal("Asg"))
		Expect(cfg.Database.ID).To(Equal("Db"))
		Expect(cfg.Database.SecretID).To(Equal("DbSecret"))
		Expect(cfg.MessageQueue.ID).To(Equal("AmazonMQ"))
		Expect(cfg.MessageQueue.SecretID).To(Equal("RabbitMQ"))
		Expect(cfg.MessageQueue.Username).To(Equal("rabbitmq"))
		Expect(cfg.Pipeline.ID).To(Equal("Pipeline"))
		Expect(cfg.Tags).ToNot(BeNil())
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should keep explicit ids", func() {
		cfg := patterns.StackConfig{StackName: "app", Vpc: patterns.VpcConfig{ID: "Network"}}
		cfg.ApplyDefaults()
		Expect(cfg.Vpc.ID).To(Equal("Network"))
	})

	It("should require a stack name", func() {
		cfg := patterns.StackConfig{}
		cfg.ApplyDefaults()
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("StackName")))
	})

	It("should check field values", func() {
		cfg := patterns.StackConfig{
			StackName: "app",
			Database:  &patterns.DatabaseConfig{Engine: "oracle"},
		}
		cfg.ApplyDefaults()
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("Engine")))

		cfg.Database = nil
		cfg.Ses = &patterns.SesConfig{ID: "Ses", HostedZoneName: "not a zone"}
		cfg.LambdaAssetsDir = "lambda"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("HostedZoneName")))
	})

	It("should check component dependencies", func() {
		cfg := patterns.StackConfig{
			StackName:  "app",
			Alb:        &patterns.AlbConfig{},
			Dns:        &patterns.DnsConfig{},
			FileSystem: &patterns.FileSystemConfig{},
		}
		cfg.ApplyDefaults()

		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("alb requires asg")))
		Expect(err).To(MatchError(ContainSubstring("fileSystem requires asg")))

		cfg.Alb = nil
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("dns requires alb")))
	})

	It("should require lambda assets for custom resources", func() {
		cfg := patterns.StackConfig{
			StackName: "app",
			Asg:       &patterns.AsgConfig{UseDataVolume: true},
			Ses:       &patterns.SesConfig{HostedZoneName: "example.com"},
			Pipeline:  &patterns.PipelineConfig{DemoSourceURL: "https://example.com/demo.zip"},
		}
		cfg.ApplyDefaults()

		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("asg.useDataVolume requires lambdaAssetsDir")))
		Expect(err).To(MatchError(ContainSubstring("ses requires lambdaAssetsDir")))
		Expect(err).To(MatchError(ContainSubstring("pipeline.demoSourceUrl requires lambdaAssetsDir")))

		cfg.LambdaAssetsDir = "lambda"
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.LambdaAsset(patterns.SubnetToAzAssetDir)).To(Equal(filepath.Join("lambda", "lambda-subnet-to-az")))
	})

	It("should reject duplicate construct ids", func() {
		cfg := patterns.StackConfig{
			StackName: "app",
			Asg:       &patterns.AsgConfig{ID: "Vpc"},
		}
		cfg.ApplyDefaults()
		Expect(cfg.Validate()).To(MatchError(ContainSubstring(`duplicate construct id "Vpc"`)))
	})

	It("should deep copy", func() {
		cfg := patterns.StackConfig{
			StackName: "app",
			Asg:       &patterns.AsgConfig{UseGraviton: jsii.Bool(true), AllowedInstanceTypes: []string{"t4g.small"}},
			Tags:      map[string]string{"Team": "platform"},
		}
		cp := cfg.Copy()
		*cp.Asg.UseGraviton = false
		cp.Asg.AllowedInstanceTypes[0] = "t3.small"
		cp.Tags["Team"] = "ops"

		Expect(*cfg.Asg.UseGraviton).To(BeTrue())
		Expect(cfg.Asg.AllowedInstanceTypes).To(Equal([]string{"t4g.small"}))
		Expect(cfg.Tags).To(HaveKeyWithValue("Team", "platform"))
	})
})

var _ = Describe("stack builder", func() {
	It("should collect the configuration", func() {
		b := patterns.NewStackBuilder("app").
			WithDescription("an app").
			WithLambdaAssets("lambda").
			WithVpc("Network").
			WithAsg(patterns.AsgConfig{Singleton: true}).
			WithAlbTargetHTTP().
			WithDns().
			WithAuroraPostgresql("app").
			WithMemcached().
			WithRabbitMQ().
			WithOpenSearch().
			WithEfs().
			WithAssetsBucket(patterns.AssetsBucketConfig{AllowOpenCors: true}).
			WithNotificationTopic().
			WithSes("example.com").
			WithPipeline(patterns.PipelineConfig{AfterDeployCommands: []string{"echo done"}}).
			WithTags(map[string]string{"Team": "platform"}).
			WithTag("Env", "dev")

		cfg := b.Config()
		Expect(cfg.StackName).To(Equal("app"))
		Expect(cfg.Description).To(Equal("an app"))
		Expect(cfg.LambdaAssetsDir).To(Equal("lambda"))
		Expect(cfg.Vpc.ID).To(Equal("Network"))
		Expect(cfg.Asg.Singleton).To(BeTrue())
		Expect(*cfg.Alb.TargetGroupHTTPS).To(BeFalse())
		Expect(cfg.Database.Engine).To(Equal("postgresql"))
		Expect(cfg.Database.DatabaseName).To(Equal("app"))
		Expect(cfg.Cache.Engine).To(Equal("memcached"))
		Expect(cfg.Ses.HostedZoneName).To(Equal("example.com"))
		Expect(cfg.Pipeline.AfterDeployCommands).To(Equal([]string{"echo done"}))
		Expect(cfg.Tags).To(Equal(map[string]string{"Team": "platform", "Env": "dev"}))
		Expect(b.Validate()).To(Succeed())

		cfg.Tags["Env"] = "prod"
		Expect(b.Config().Tags).To(HaveKeyWithValue("Env", "dev"))
	})

	It("should report invalid combinations", func() {
		Expect(patterns.NewStackBuilder("app").WithAlb().Validate()).To(MatchError(ContainSubstring("alb requires asg")))
		Expect(patterns.NewStackBuilder("app").WithRedis().WithAuroraMysql("db").Validate()).To(Succeed())
	})
})

var _ = Describe("config loading", func() {
	It("should load yaml", func() {
		cfg, err := patterns.LoadStackConfigFromFile(filepath.Join("testdata", "config.yaml"))
		Expect(err).ToNot(HaveOccurred())

		Expect(cfg.StackName).To(Equal("yaml-app"))
		Expect(cfg.LambdaAssetsDir).To(Equal("testdata/lambda"))
		Expect(*cfg.Asg.UseGraviton).To(BeFalse())
		Expect(cfg.Asg.ExcludedInstanceSizes).To(Equal([]string{"nano"}))
		Expect(cfg.Asg.UserData).To(Equal("#!/bin/bash\necho ${Greeting}\n"))
		Expect(cfg.Asg.UserDataVariables).To(Equal(map[string]string{"Greeting": "hello"}))
		Expect(cfg.Alb).ToNot(BeNil())
		Expect(cfg.Database.Engine).To(Equal("postgresql"))
		Expect(cfg.Cache.Engine).To(Equal("redis"))
		Expect(cfg.NotificationTopic).ToNot(BeNil())
		Expect(cfg.Tags).To(Equal(map[string]string{"Team": "platform"}))
	})

	It("should load json", func() {
		cfg, err := patterns.LoadStackConfigFromFile(filepath.Join("testdata", "config.json"))
		Expect(err).ToNot(HaveOccurred())

		Expect(cfg.StackName).To(Equal("json-app"))
		Expect(cfg.Vpc.ID).To(Equal("Network"))
		Expect(cfg.Asg.Singleton).To(BeTrue())
		Expect(cfg.Asg.UsePublicSubnets).To(BeTrue())
		Expect(cfg.AssetsBucket.ObjectOwnershipValue).To(Equal("ObjectWriter"))
		Expect(cfg.Alb).To(BeNil())
	})

	It("should reject unknown extensions", func() {
		path := filepath.Join(GinkgoT().TempDir(), "config.toml")
		Expect(os.WriteFile(path, []byte("stackName = 'app'"), 0o600)).To(Succeed())

		_, err := patterns.LoadStackConfigFromFile(path)
		Expect(err).To(MatchError(`unsupported config file extension ".toml"`))
	})

	It("should fail on a missing file", func() {
		_, err := patterns.LoadStackConfigFromFile(filepath.Join("testdata", "missing.yaml"))
		Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
	})

	It("should fail on malformed data", func() {
		_, err := patterns.LoadStackConfigFromJSON([]byte(`{"stackName":`))
		Expect(err).To(MatchError(ContainSubstring("failed to parse JSON config")))

		_, err = patterns.LoadStackConfigFromYAML([]byte("stackName: [app"))
		Expect(err).To(MatchError(ContainSubstring("failed to parse YAML config")))
	})
})
