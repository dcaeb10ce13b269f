package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
)

// StackBuilder provides a fluent interface for building pattern stacks.
type StackBuilder struct {
	config StackConfig
}

// NewStackBuilder creates a new stack builder. The Vpc is always included.
func NewStackBuilder(stackName string) *StackBuilder {
	return &StackBuilder{
		config: StackConfig{
			StackName: stackName,
			Tags:      make(map[string]string),
		},
	}
}

// WithDescription sets the stack description.
func (b *StackBuilder) WithDescription(description string) *StackBuilder {
	b.config.Description = description
	return b
}

// WithLambdaAssets sets the directory of the built custom resource functions.
func (b *StackBuilder) WithLambdaAssets(dir string) *StackBuilder {
	b.config.LambdaAssetsDir = dir
	return b
}

// WithVpc sets the construct id of the Vpc.
func (b *StackBuilder) WithVpc(id string) *StackBuilder {
	b.config.Vpc.ID = id
	return b
}

// WithAsg adds an Auto Scaling Group.
func (b *StackBuilder) WithAsg(config AsgConfig) *StackBuilder {
	b.config.Asg = &config
	return b
}

// WithAlb adds a load balancer in front of the Asg.
func (b *StackBuilder) WithAlb() *StackBuilder {
	b.config.Alb = &AlbConfig{}
	return b
}

// WithAlbTargetHTTP adds a load balancer that forwards to instance port 80.
func (b *StackBuilder) WithAlbTargetHTTP() *StackBuilder {
	https := false
	b.config.Alb = &AlbConfig{TargetGroupHTTPS: &https}
	return b
}

// WithDns adds a Route 53 record for the load balancer.
func (b *StackBuilder) WithDns() *StackBuilder {
	b.config.Dns = &DnsConfig{}
	return b
}

// WithAuroraMysql adds an Aurora MySQL cluster.
func (b *StackBuilder) WithAuroraMysql(databaseName string) *StackBuilder {
	b.config.Database = &DatabaseConfig{Engine: "mysql", DatabaseName: databaseName}
	return b
}

// WithAuroraPostgresql adds an Aurora PostgreSQL cluster.
func (b *StackBuilder) WithAuroraPostgresql(databaseName string) *StackBuilder {
	b.config.Database = &DatabaseConfig{Engine: "postgresql", DatabaseName: databaseName}
	return b
}

// WithMemcached adds an ElastiCache Memcached cluster.
func (b *StackBuilder) WithMemcached() *StackBuilder {
	b.config.Cache = &CacheConfig{Engine: "memcached"}
	return b
}

// WithRedis adds an ElastiCache Redis cluster.
func (b *StackBuilder) WithRedis() *StackBuilder {
	b.config.Cache = &CacheConfig{Engine: "redis"}
	return b
}

// WithRabbitMQ adds an AmazonMQ RabbitMQ broker.
func (b *StackBuilder) WithRabbitMQ() *StackBuilder {
	b.config.MessageQueue = &MessageQueueConfig{}
	return b
}

// WithOpenSearch adds an OpenSearch Service domain.
func (b *StackBuilder) WithOpenSearch() *StackBuilder {
	b.config.Search = &SearchConfig{}
	return b
}

// WithEfs adds an EFS file system mountable from the Asg.
func (b *StackBuilder) WithEfs() *StackBuilder {
	b.config.FileSystem = &FileSystemConfig{}
	return b
}

// WithAssetsBucket adds an assets bucket.
func (b *StackBuilder) WithAssetsBucket(config AssetsBucketConfig) *StackBuilder {
	b.config.AssetsBucket = &config
	return b
}

// WithNotificationTopic adds the notification topic.
func (b *StackBuilder) WithNotificationTopic() *StackBuilder {
	b.config.NotificationTopic = &NotificationTopicConfig{}
	return b
}

// WithSes adds SES for the hosted zone.
func (b *StackBuilder) WithSes(hostedZoneName string) *StackBuilder {
	b.config.Ses = &SesConfig{HostedZoneName: hostedZoneName}
	return b
}

// WithPipeline adds a deploy pipeline.
func (b *StackBuilder) WithPipeline(config PipelineConfig) *StackBuilder {
	b.config.Pipeline = &config
	return b
}

// WithTags adds tags to all resources.
func (b *StackBuilder) WithTags(tags map[string]string) *StackBuilder {
	for k, v := range tags {
		b.config.Tags[k] = v
	}
	return b
}

// WithTag adds a single tag.
func (b *StackBuilder) WithTag(key, value string) *StackBuilder {
	b.config.Tags[key] = value
	return b
}

// Config returns a copy of the current configuration.
func (b *StackBuilder) Config() StackConfig {
	return b.config.Copy()
}

// Validate validates the current configuration.
func (b *StackBuilder) Validate() error {
	config := b.config.Copy()
	config.ApplyDefaults()
	return config.Validate()
}

// Build creates the stack.
func (b *StackBuilder) Build(scope constructs.Construct) *PatternStack {
	return NewPatternStack(scope, b.config.StackName, b.config)
}

// NewApp creates a new CDK app with common settings.
func NewApp() awscdk.App {
	return awscdk.NewApp(&awscdk.AppProps{
		Context: &map[string]interface{}{
			"@aws-cdk/core:newStyleStackSynthesis": true,
		},
	})
}

// Synth synthesizes the CDK app to CloudFormation templates.
func Synth(app awscdk.App) {
	app.Synth(nil)
}
