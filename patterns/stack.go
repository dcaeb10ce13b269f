package patterns

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/samber/lo"
)

// PatternStack is a CDK stack composed from the constructs of this package
// according to a StackConfig. Components that are not configured are nil.
type PatternStack struct {
	awscdk.Stack

	// Config is the stack configuration with defaults applied.
	Config StackConfig

	Vpc               *Vpc
	NotificationTopic *NotificationTopic
	DbSecret          *DbSecret
	Database          *AuroraCluster
	Cache             *ElasticacheCluster
	MessageQueueCreds *Secret
	MessageQueue      *AmazonMQ
	Search            *OpenSearchService
	AssetsBucket      *AssetsBucket
	Ses               *Ses
	Pipeline          *AppDeployPipeline
	Asg               *Asg
	Alb               *Alb
	Dns               *Dns
	FileSystem        *Efs
}

// NewPatternStack creates a new stack from config. It panics when the
// configuration is invalid.
func NewPatternStack(scope constructs.Construct, id string, config StackConfig) *PatternStack {
	config = config.Copy()
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid stack configuration: %v", err))
	}

	stack := awscdk.NewStack(scope, jsii.String(id), &awscdk.StackProps{
		StackName:   jsii.String(config.StackName),
		Description: descriptionOrNil(config.Description),
		Tags:        convertTags(config.Tags),
	})

	s := &PatternStack{Stack: stack, Config: config}

	s.Vpc = NewVpc(s.Stack, config.Vpc.ID)
	if c := config.NotificationTopic; c != nil {
		s.NotificationTopic = NewNotificationTopic(s.Stack, c.ID)
	}

	s.createDataStores()
	s.createAssetsBucket()
	s.createSes()
	s.createPipeline()
	s.createAsg()
	s.createLoadBalancing()
	s.connectDataStores()
	s.createFileSystem()

	AddInterfaceMetadata(s.Stack, s.metadataProviders()...)
	s.addOutputs()

	return s
}

// createDataStores creates the database, cache, broker and search domain.
func (s *PatternStack) createDataStores() {
	if c := s.Config.Database; c != nil {
		s.DbSecret = NewDbSecret(s.Stack, c.SecretID)
		props := AuroraClusterProps{
			DbSecret:             s.DbSecret,
			Vpc:                  s.Vpc,
			AllowedInstanceTypes: c.AllowedInstanceTypes,
			DatabaseName:         c.DatabaseName,
			DefaultInstanceType:  c.DefaultInstanceType,
		}
		switch c.Engine {
		case "postgresql":
			s.Database = NewAuroraPostgresql(s.Stack, c.ID, props)
		default:
			s.Database = NewAuroraMysql(s.Stack, c.ID, props)
		}
	}

	if c := s.Config.Cache; c != nil {
		props := ElasticacheClusterProps{
			Vpc:                  s.Vpc,
			AllowedInstanceTypes: c.AllowedInstanceTypes,
			CustomParameters:     convertTagsMap(c.CustomParameters),
			DefaultInstanceType:  c.DefaultInstanceType,
		}
		if c.Engine == RedisEngine.Engine {
			s.Cache = NewElasticacheRedis(s.Stack, c.ID, props)
		} else {
			s.Cache = NewElasticacheMemcached(s.Stack, c.ID, props)
		}
	}

	if c := s.Config.MessageQueue; c != nil {
		s.MessageQueueCreds = NewSecret(s.Stack, c.SecretID, &SecretProps{Username: c.Username})
		s.MessageQueue = NewRabbitMQ(s.Stack, c.ID, AmazonMQProps{
			Secret:               s.MessageQueueCreds,
			Vpc:                  s.Vpc,
			AllowedInstanceTypes: c.AllowedInstanceTypes,
			DefaultInstanceType:  c.DefaultInstanceType,
		})
	}

	if c := s.Config.Search; c != nil {
		s.Search = NewOpenSearchService(s.Stack, c.ID, OpenSearchServiceProps{
			Vpc:                  s.Vpc,
			AllowedInstanceTypes: c.AllowedInstanceTypes,
			DefaultInstanceType:  c.DefaultInstanceType,
		})
	}
}

func (s *PatternStack) createAssetsBucket() {
	c := s.Config.AssetsBucket
	if c == nil {
		return
	}
	s.AssetsBucket = NewAssetsBucket(s.Stack, c.ID, AssetsBucketProps{
		AllowOpenCors:           c.AllowOpenCors,
		ObjectOwnershipValue:    c.ObjectOwnershipValue,
		RemovePublicAccessBlock: c.RemovePublicAccessBlock,
	})
}

func (s *PatternStack) createSes() {
	c := s.Config.Ses
	if c == nil {
		return
	}
	var userPolicies []*awsiam.CfnUser_PolicyProperty
	if s.AssetsBucket != nil {
		userPolicies = append(userPolicies, s.AssetsBucket.UserPolicy)
	}
	s.Ses = NewSes(s.Stack, c.ID, SesProps{
		HostedZoneName:            c.HostedZoneName,
		AdditionalIAMUserPolicies: userPolicies,
		GenerateSMTPPasswordCode:  s.lambdaCode(GenerateSmtpPasswordAssetDir),
	})
}

// createPipeline runs before createAsg so the instance role can read the
// pipeline artifacts.
func (s *PatternStack) createPipeline() {
	c := s.Config.Pipeline
	if c == nil {
		return
	}
	props := AppDeployPipelineProps{
		AfterBuildCommands:   c.AfterBuildCommands,
		AfterDeployCommands:  c.AfterDeployCommands,
		DemoSourceURL:        c.DemoSourceURL,
		NotificationTopicArn: s.notificationTopicArn(),
	}
	if c.DemoSourceURL != "" {
		props.InitializeDemoCode = s.lambdaCode(InitializeDemoAssetDir)
	}
	s.Pipeline = NewAppDeployPipeline(s.Stack, c.ID, props)
}

func (s *PatternStack) createAsg() {
	c := s.Config.Asg
	if c == nil {
		return
	}

	var secretArns []*string
	if s.DbSecret != nil {
		secretArns = append(secretArns, s.DbSecret.SecretArn())
	}
	if s.MessageQueueCreds != nil {
		secretArns = append(secretArns, s.MessageQueueCreds.SecretArn())
	}
	if s.Ses != nil {
		secretArns = append(secretArns, s.Ses.SecretArn())
	}

	var rolePolicies []*awsiam.CfnRole_PolicyProperty
	if s.AssetsBucket != nil {
		rolePolicies = append(rolePolicies, s.AssetsBucket.RolePolicy)
	}

	props := AsgProps{
		AmiID:                         c.AmiID,
		Vpc:                           s.Vpc,
		AdditionalIAMRolePolicies:     rolePolicies,
		AllowAssociateAddress:         c.AllowAssociateAddress,
		AllowUpdateSecret:             c.AllowUpdateSecret,
		AllowedInstanceTypes:          c.AllowedInstanceTypes,
		DefaultInstanceType:           c.DefaultInstanceType,
		ExcludedInstanceFamilies:      c.ExcludedInstanceFamilies,
		ExcludedInstanceSizes:         c.ExcludedInstanceSizes,
		CreateAndUpdateTimeoutMinutes: c.CreateAndUpdateTimeoutMinutes,
		DeploymentRollingUpdate:       c.DeploymentRollingUpdate,
		HealthCheckType:               c.HealthCheckType,
		NotificationTopicArn:          s.notificationTopicArn(),
		RootVolumeDeviceName:          c.RootVolumeDeviceName,
		RootVolumeSize:                float64(c.RootVolumeSize),
		SecretArns:                    secretArns,
		Singleton:                     c.Singleton,
		UseDataVolume:                 c.UseDataVolume,
		UseGraviton:                   c.UseGraviton,
		UsePublicSubnets:              c.UsePublicSubnets,
		UserDataContents:              c.UserData,
		UserDataVariables:             convertTagsMap(c.UserDataVariables),
	}
	if s.Pipeline != nil {
		props.PipelineBucketArn = s.Pipeline.PipelineArtifactBucketArn()
	}
	if c.UseDataVolume {
		props.SubnetToAzCode = s.lambdaCode(SubnetToAzAssetDir)
	}
	s.Asg = NewAsg(s.Stack, c.ID, props)

	if s.Pipeline != nil {
		s.Pipeline.AddAsgToDeploymentGroup(s.Asg)
	}
}

func (s *PatternStack) createLoadBalancing() {
	if c := s.Config.Alb; c != nil {
		s.Alb = NewAlb(s.Stack, c.ID, AlbProps{
			Asg:              s.Asg,
			Vpc:              s.Vpc,
			TargetGroupHTTPS: c.TargetGroupHTTPS,
		})
	}
	if c := s.Config.Dns; c != nil {
		s.Dns = NewDns(s.Stack, c.ID)
		s.Dns.AddAlb(s.Alb)
	}
}

// connectDataStores allows the instances to reach each data store.
func (s *PatternStack) connectDataStores() {
	if s.Asg == nil {
		return
	}
	for _, target := range s.ingressTargets() {
		AddSgIngress(target, s.Asg.Sg)
	}
}

func (s *PatternStack) ingressTargets() []SgIngressTarget {
	var targets []SgIngressTarget
	if s.Database != nil {
		targets = append(targets, s.Database)
	}
	if s.Cache != nil {
		targets = append(targets, s.Cache)
	}
	if s.MessageQueue != nil {
		targets = append(targets, s.MessageQueue)
	}
	if s.Search != nil {
		targets = append(targets, s.Search)
	}
	return targets
}

func (s *PatternStack) createFileSystem() {
	c := s.Config.FileSystem
	if c == nil {
		return
	}
	s.FileSystem = NewEfs(s.Stack, c.ID, EfsProps{Vpc: s.Vpc, AppSg: s.Asg.Sg})
}

// metadataProviders lists the created constructs in console order.
func (s *PatternStack) metadataProviders() []MetadataProvider {
	var providers []MetadataProvider
	add := func(p MetadataProvider, present bool) {
		if present {
			providers = append(providers, p)
		}
	}
	add(s.Vpc, true)
	add(s.Asg, s.Asg != nil)
	add(s.Alb, s.Alb != nil)
	add(s.Dns, s.Dns != nil)
	add(s.DbSecret, s.DbSecret != nil)
	add(s.Database, s.Database != nil)
	add(s.Cache, s.Cache != nil)
	add(s.MessageQueueCreds, s.MessageQueueCreds != nil)
	add(s.MessageQueue, s.MessageQueue != nil)
	add(s.Search, s.Search != nil)
	add(s.FileSystem, s.FileSystem != nil)
	add(s.AssetsBucket, s.AssetsBucket != nil)
	add(s.NotificationTopic, s.NotificationTopic != nil)
	add(s.Ses, s.Ses != nil)
	add(s.Pipeline, s.Pipeline != nil)
	return providers
}

func (s *PatternStack) addOutputs() {
	if s.Database != nil {
		newOutput(s.Stack, "DbClusterEndpointOutput", "Database cluster endpoint", s.Database.Endpoint())
	}
	if s.Cache != nil {
		newOutput(s.Stack, "CacheEndpointOutput", "Cache endpoint", s.Cache.Endpoint())
	}
	if s.MessageQueue != nil {
		newOutput(s.Stack, "MessageQueueEndpointOutput", "AmazonMQ AMQP endpoint", s.MessageQueue.BrokerEndpoint())
	}
	if s.Search != nil {
		newOutput(s.Stack, "SearchEndpointOutput", "OpenSearch Service domain endpoint", s.Search.Endpoint())
	}
	if s.FileSystem != nil {
		newOutput(s.Stack, "FileSystemIdOutput", "EFS file system id", s.FileSystem.FileSystemID())
	}
	if s.AssetsBucket != nil {
		newOutput(s.Stack, "AssetsBucketNameOutput", "Assets bucket name", s.AssetsBucket.BucketName())
	}
	if s.Alb != nil {
		newOutput(s.Stack, "LoadBalancerDnsNameOutput", "Load balancer DNS name", s.Alb.DnsName())
	}
}

func (s *PatternStack) notificationTopicArn() *string {
	if s.NotificationTopic == nil {
		return nil
	}
	return s.NotificationTopic.NotificationTopicArn()
}

func (s *PatternStack) lambdaCode(name string) awslambda.Code {
	return LambdaAssetCode(s.Config.LambdaAsset(name))
}

func descriptionOrNil(description string) *string {
	if description == "" {
		return nil
	}
	return jsii.String(description)
}

// convertTags converts a map[string]string to map[string]*string.
func convertTags(tags map[string]string) *map[string]*string {
	if tags == nil {
		return nil
	}
	result := convertTagsMap(tags)
	return &result
}

func convertTagsMap(m map[string]string) map[string]*string {
	if m == nil {
		return nil
	}
	return lo.MapValues(m, func(v string, _ string) *string { return jsii.String(v) })
}
