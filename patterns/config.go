package patterns

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/copystructure"
)

// Lambda asset sub directories of StackConfig.LambdaAssetsDir. Each holds a
// "bootstrap" binary built from the cmd/lambda-* package of the same name.
const (
	SubnetToAzAssetDir           = "lambda-subnet-to-az"
	GenerateSmtpPasswordAssetDir = "lambda-generate-smtp-password"
	InitializeDemoAssetDir       = "lambda-initialize-demo"
)

// StackConfig describes a PatternStack. It can be built in code, with
// StackBuilder, or loaded from JSON or YAML.
type StackConfig struct {
	// StackName is the CloudFormation stack name.
	StackName string `json:"stackName" yaml:"stackName" validate:"required"`

	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// LambdaAssetsDir contains the built custom resource functions. Required
	// with a data volume, Ses or a pipeline demo.
	LambdaAssetsDir string `json:"lambdaAssetsDir,omitempty" yaml:"lambdaAssetsDir,omitempty"`

	Vpc               VpcConfig                `json:"vpc" yaml:"vpc"`
	Asg               *AsgConfig               `json:"asg,omitempty" yaml:"asg,omitempty" validate:"omitempty"`
	Alb               *AlbConfig               `json:"alb,omitempty" yaml:"alb,omitempty" validate:"omitempty"`
	Dns               *DnsConfig               `json:"dns,omitempty" yaml:"dns,omitempty" validate:"omitempty"`
	Database          *DatabaseConfig          `json:"database,omitempty" yaml:"database,omitempty" validate:"omitempty"`
	Cache             *CacheConfig             `json:"cache,omitempty" yaml:"cache,omitempty" validate:"omitempty"`
	MessageQueue      *MessageQueueConfig      `json:"messageQueue,omitempty" yaml:"messageQueue,omitempty" validate:"omitempty"`
	Search            *SearchConfig            `json:"search,omitempty" yaml:"search,omitempty" validate:"omitempty"`
	FileSystem        *FileSystemConfig        `json:"fileSystem,omitempty" yaml:"fileSystem,omitempty" validate:"omitempty"`
	AssetsBucket      *AssetsBucketConfig      `json:"assetsBucket,omitempty" yaml:"assetsBucket,omitempty" validate:"omitempty"`
	NotificationTopic *NotificationTopicConfig `json:"notificationTopic,omitempty" yaml:"notificationTopic,omitempty" validate:"omitempty"`
	Ses               *SesConfig               `json:"ses,omitempty" yaml:"ses,omitempty" validate:"omitempty"`
	Pipeline          *PipelineConfig          `json:"pipeline,omitempty" yaml:"pipeline,omitempty" validate:"omitempty"`
}

// VpcConfig configures the Vpc.
type VpcConfig struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
}

// AsgConfig configures the Asg.
type AsgConfig struct {
	ID                            string            `json:"id,omitempty" yaml:"id,omitempty"`
	AmiID                         string            `json:"amiId,omitempty" yaml:"amiId,omitempty"`
	AllowAssociateAddress         bool              `json:"allowAssociateAddress,omitempty" yaml:"allowAssociateAddress,omitempty"`
	AllowUpdateSecret             bool              `json:"allowUpdateSecret,omitempty" yaml:"allowUpdateSecret,omitempty"`
	AllowedInstanceTypes          []string          `json:"allowedInstanceTypes,omitempty" yaml:"allowedInstanceTypes,omitempty"`
	DefaultInstanceType           string            `json:"defaultInstanceType,omitempty" yaml:"defaultInstanceType,omitempty"`
	ExcludedInstanceFamilies      []string          `json:"excludedInstanceFamilies,omitempty" yaml:"excludedInstanceFamilies,omitempty"`
	ExcludedInstanceSizes         []string          `json:"excludedInstanceSizes,omitempty" yaml:"excludedInstanceSizes,omitempty"`
	CreateAndUpdateTimeoutMinutes int               `json:"createAndUpdateTimeoutMinutes,omitempty" yaml:"createAndUpdateTimeoutMinutes,omitempty" validate:"gte=0"`
	DeploymentRollingUpdate       bool              `json:"deploymentRollingUpdate,omitempty" yaml:"deploymentRollingUpdate,omitempty"`
	HealthCheckType               string            `json:"healthCheckType,omitempty" yaml:"healthCheckType,omitempty" validate:"omitempty,oneof=EC2 ELB"`
	RootVolumeDeviceName          string            `json:"rootVolumeDeviceName,omitempty" yaml:"rootVolumeDeviceName,omitempty"`
	RootVolumeSize                int               `json:"rootVolumeSize,omitempty" yaml:"rootVolumeSize,omitempty" validate:"gte=0"`
	Singleton                     bool              `json:"singleton,omitempty" yaml:"singleton,omitempty"`
	UseDataVolume                 bool              `json:"useDataVolume,omitempty" yaml:"useDataVolume,omitempty"`
	UseGraviton                   *bool             `json:"useGraviton,omitempty" yaml:"useGraviton,omitempty"`
	UsePublicSubnets              bool              `json:"usePublicSubnets,omitempty" yaml:"usePublicSubnets,omitempty"`
	UserData                      string            `json:"userData,omitempty" yaml:"userData,omitempty"`
	UserDataVariables             map[string]string `json:"userDataVariables,omitempty" yaml:"userDataVariables,omitempty"`
}

// AlbConfig configures the Alb. It requires an Asg.
type AlbConfig struct {
	ID               string `json:"id,omitempty" yaml:"id,omitempty"`
	TargetGroupHTTPS *bool  `json:"targetGroupHttps,omitempty" yaml:"targetGroupHttps,omitempty"`
}

// DnsConfig configures Dns. It requires an Alb.
type DnsConfig struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
}

// DatabaseConfig configures an AuroraCluster and its DbSecret.
type DatabaseConfig struct {
	ID                   string   `json:"id,omitempty" yaml:"id,omitempty"`
	SecretID             string   `json:"secretId,omitempty" yaml:"secretId,omitempty"`
	Engine               string   `json:"engine" yaml:"engine" validate:"required,oneof=mysql postgresql"`
	DatabaseName         string   `json:"databaseName,omitempty" yaml:"databaseName,omitempty"`
	AllowedInstanceTypes []string `json:"allowedInstanceTypes,omitempty" yaml:"allowedInstanceTypes,omitempty"`
	DefaultInstanceType  string   `json:"defaultInstanceType,omitempty" yaml:"defaultInstanceType,omitempty"`
}

// CacheConfig configures an ElasticacheCluster.
type CacheConfig struct {
	ID                   string            `json:"id,omitempty" yaml:"id,omitempty"`
	Engine               string            `json:"engine" yaml:"engine" validate:"required,oneof=memcached redis"`
	AllowedInstanceTypes []string          `json:"allowedInstanceTypes,omitempty" yaml:"allowedInstanceTypes,omitempty"`
	DefaultInstanceType  string            `json:"defaultInstanceType,omitempty" yaml:"defaultInstanceType,omitempty"`
	CustomParameters     map[string]string `json:"customParameters,omitempty" yaml:"customParameters,omitempty"`
}

// MessageQueueConfig configures a RabbitMQ broker and its credentials Secret.
type MessageQueueConfig struct {
	ID                   string   `json:"id,omitempty" yaml:"id,omitempty"`
	SecretID             string   `json:"secretId,omitempty" yaml:"secretId,omitempty"`
	Username             string   `json:"username,omitempty" yaml:"username,omitempty"`
	AllowedInstanceTypes []string `json:"allowedInstanceTypes,omitempty" yaml:"allowedInstanceTypes,omitempty"`
	DefaultInstanceType  string   `json:"defaultInstanceType,omitempty" yaml:"defaultInstanceType,omitempty"`
}

// SearchConfig configures an OpenSearchService domain.
type SearchConfig struct {
	ID                   string   `json:"id,omitempty" yaml:"id,omitempty"`
	AllowedInstanceTypes []string `json:"allowedInstanceTypes,omitempty" yaml:"allowedInstanceTypes,omitempty"`
	DefaultInstanceType  string   `json:"defaultInstanceType,omitempty" yaml:"defaultInstanceType,omitempty"`
}

// FileSystemConfig configures Efs. It requires an Asg.
type FileSystemConfig struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
}

// AssetsBucketConfig configures an AssetsBucket. With an Asg, the instance
// role gets access to the bucket.
type AssetsBucketConfig struct {
	ID                      string `json:"id,omitempty" yaml:"id,omitempty"`
	AllowOpenCors           bool   `json:"allowOpenCors,omitempty" yaml:"allowOpenCors,omitempty"`
	ObjectOwnershipValue    string `json:"objectOwnershipValue,omitempty" yaml:"objectOwnershipValue,omitempty" validate:"omitempty,oneof=BucketOwnerEnforced BucketOwnerPreferred ObjectWriter"`
	RemovePublicAccessBlock bool   `json:"removePublicAccessBlock,omitempty" yaml:"removePublicAccessBlock,omitempty"`
}

// NotificationTopicConfig configures the NotificationTopic.
type NotificationTopicConfig struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
}

// SesConfig configures Ses.
type SesConfig struct {
	ID             string `json:"id,omitempty" yaml:"id,omitempty"`
	HostedZoneName string `json:"hostedZoneName" yaml:"hostedZoneName" validate:"required,fqdn"`
}

// PipelineConfig configures an AppDeployPipeline. With an Asg, the group is
// the deployment target.
type PipelineConfig struct {
	ID                  string   `json:"id,omitempty" yaml:"id,omitempty"`
	AfterBuildCommands  []string `json:"afterBuildCommands,omitempty" yaml:"afterBuildCommands,omitempty"`
	AfterDeployCommands []string `json:"afterDeployCommands,omitempty" yaml:"afterDeployCommands,omitempty"`
	DemoSourceURL       string   `json:"demoSourceUrl,omitempty" yaml:"demoSourceUrl,omitempty" validate:"omitempty,url"`
}

// defaultID sets *id to def when empty.
func defaultID(id *string, def string) {
	if *id == "" {
		*id = def
	}
}

// ApplyDefaults fills in construct ids and other unset values.
func (c *StackConfig) ApplyDefaults() {
	defaultID(&c.Vpc.ID, "Vpc")
	if c.Asg != nil {
		defaultID(&c.Asg.ID, "Asg")
	}
	if c.Alb != nil {
		defaultID(&c.Alb.ID, "Alb")
	}
	if c.Dns != nil {
		defaultID(&c.Dns.ID, "Dns")
	}
	if c.Database != nil {
		defaultID(&c.Database.ID, "Db")
		defaultID(&c.Database.SecretID, "DbSecret")
	}
	if c.Cache != nil {
		defaultID(&c.Cache.ID, "Elasticache")
	}
	if c.MessageQueue != nil {
		defaultID(&c.MessageQueue.ID, "AmazonMQ")
		defaultID(&c.MessageQueue.SecretID, "RabbitMQ")
		defaultID(&c.MessageQueue.Username, "rabbitmq")
	}
	if c.Search != nil {
		defaultID(&c.Search.ID, "OpenSearchService")
	}
	if c.FileSystem != nil {
		defaultID(&c.FileSystem.ID, "Efs")
	}
	if c.AssetsBucket != nil {
		defaultID(&c.AssetsBucket.ID, "AssetsBucket")
	}
	if c.NotificationTopic != nil {
		defaultID(&c.NotificationTopic.ID, "NotificationTopic")
	}
	if c.Ses != nil {
		defaultID(&c.Ses.ID, "Ses")
	}
	if c.Pipeline != nil {
		defaultID(&c.Pipeline.ID, "Pipeline")
	}
	if c.Tags == nil {
		c.Tags = map[string]string{}
	}
}

var validate = validator.New()

// Validate checks the field constraints and the dependencies between
// components. Call ApplyDefaults first.
func (c *StackConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.Alb != nil && c.Asg == nil {
		errs = append(errs, errors.New("alb requires asg"))
	}
	if c.Dns != nil && c.Alb == nil {
		errs = append(errs, errors.New("dns requires alb"))
	}
	if c.FileSystem != nil && c.Asg == nil {
		errs = append(errs, errors.New("fileSystem requires asg"))
	}
	if c.LambdaAssetsDir == "" {
		if c.Asg != nil && c.Asg.UseDataVolume {
			errs = append(errs, errors.New("asg.useDataVolume requires lambdaAssetsDir"))
		}
		if c.Ses != nil {
			errs = append(errs, errors.New("ses requires lambdaAssetsDir"))
		}
		if c.Pipeline != nil && c.Pipeline.DemoSourceURL != "" {
			errs = append(errs, errors.New("pipeline.demoSourceUrl requires lambdaAssetsDir"))
		}
	}

	seen := map[string]bool{}
	for _, id := range c.constructIDs() {
		if seen[id] {
			errs = append(errs, fmt.Errorf("duplicate construct id %q", id))
		}
		seen[id] = true
	}

	return errors.Join(errs...)
}

// constructIDs lists the ids of all configured constructs.
func (c *StackConfig) constructIDs() []string {
	ids := []string{c.Vpc.ID}
	if c.Asg != nil {
		ids = append(ids, c.Asg.ID)
	}
	if c.Alb != nil {
		ids = append(ids, c.Alb.ID)
	}
	if c.Dns != nil {
		ids = append(ids, c.Dns.ID)
	}
	if c.Database != nil {
		ids = append(ids, c.Database.ID, c.Database.SecretID)
	}
	if c.Cache != nil {
		ids = append(ids, c.Cache.ID)
	}
	if c.MessageQueue != nil {
		ids = append(ids, c.MessageQueue.ID, c.MessageQueue.SecretID)
	}
	if c.Search != nil {
		ids = append(ids, c.Search.ID)
	}
	if c.FileSystem != nil {
		ids = append(ids, c.FileSystem.ID)
	}
	if c.AssetsBucket != nil {
		ids = append(ids, c.AssetsBucket.ID)
	}
	if c.NotificationTopic != nil {
		ids = append(ids, c.NotificationTopic.ID)
	}
	if c.Ses != nil {
		ids = append(ids, c.Ses.ID)
	}
	if c.Pipeline != nil {
		ids = append(ids, c.Pipeline.ID)
	}
	return ids
}

// LambdaAsset returns the path of the named lambda asset directory.
func (c *StackConfig) LambdaAsset(name string) string {
	return filepath.Join(c.LambdaAssetsDir, name)
}

// Copy returns a deep copy of the config.
func (c StackConfig) Copy() StackConfig {
	v, err := copystructure.Copy(c)
	if err != nil {
		panic("patterns: failed to deep copy: " + err.Error())
	}
	return v.(StackConfig)
}
