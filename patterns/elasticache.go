package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticache"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// CacheEngine describes an ElastiCache engine flavour.
type CacheEngine struct {
	Engine               string
	EngineVersion        string
	ParameterGroupFamily string
	Port                 float64
}

var (
	// MemcachedEngine is Memcached 1.6.
	MemcachedEngine = CacheEngine{Engine: "memcached", EngineVersion: "1.6.6", ParameterGroupFamily: "memcached1.6", Port: 11211}
	// RedisEngine is Redis 6.2.
	RedisEngine = CacheEngine{Engine: "redis", EngineVersion: "6.2", ParameterGroupFamily: "redis6.x", Port: 6379}
)

// ElasticacheClusterProps configures an ElasticacheCluster.
type ElasticacheClusterProps struct {
	Vpc                  *Vpc
	AllowedInstanceTypes []string
	// CustomParameters are set on the cluster parameter group.
	CustomParameters map[string]*string
	// DefaultInstanceType defaults to "cache.t4g.micro", or "cache.t3.micro"
	// through NewElasticacheMemcached and NewElasticacheRedis.
	DefaultInstanceType string
	Engine              CacheEngine
}

// ElasticacheCluster is a cache cluster in the private subnets.
type ElasticacheCluster struct {
	constructs.Construct

	id     string
	engine CacheEngine

	CacheNodeTypeParam awscdk.CfnParameter
	NumCacheNodesParam awscdk.CfnParameter
	MultiNodeCondition awscdk.CfnCondition
	Sg                 awsec2.CfnSecurityGroup
	SubnetGroup        awselasticache.CfnSubnetGroup
	ParameterGroup     awselasticache.CfnParameterGroup
	Cluster            awselasticache.CfnCacheCluster
}

// NewElasticacheMemcached creates a Memcached cluster.
func NewElasticacheMemcached(scope constructs.Construct, id string, props ElasticacheClusterProps) *ElasticacheCluster {
	props.Engine = MemcachedEngine
	if props.DefaultInstanceType == "" {
		props.DefaultInstanceType = "cache.t3.micro"
	}
	return NewElasticacheCluster(scope, id, props)
}

// NewElasticacheRedis creates a single-node-group Redis cluster.
func NewElasticacheRedis(scope constructs.Construct, id string, props ElasticacheClusterProps) *ElasticacheCluster {
	props.Engine = RedisEngine
	if props.DefaultInstanceType == "" {
		props.DefaultInstanceType = "cache.t3.micro"
	}
	return NewElasticacheCluster(scope, id, props)
}

// NewElasticacheCluster creates the cluster for props.Engine.
func NewElasticacheCluster(scope constructs.Construct, id string, props ElasticacheClusterProps) *ElasticacheCluster {
	if props.Vpc == nil {
		panic("invalid stack configuration: ElasticacheCluster requires a Vpc")
	}
	if props.Engine.Engine == "" {
		panic("invalid stack configuration: ElasticacheCluster requires an engine")
	}
	if props.DefaultInstanceType == "" {
		props.DefaultInstanceType = "cache.t4g.micro"
	}

	c := &ElasticacheCluster{
		Construct: constructs.NewConstruct(scope, jsii.String(id)),
		id:        id,
		engine:    props.Engine,
	}

	c.CacheNodeTypeParam = newParam(c, id+"ClusterCacheNodeType", "Required: Instance type for the cluster nodes.", paramOpts{
		AllowedValues: allowedOrDefault(props.AllowedInstanceTypes, CacheNodeTypes),
		Default:       props.DefaultInstanceType,
	})
	c.NumCacheNodesParam = newParam(c, id+"ClusterNumCacheNodes", "Required: The number of cache nodes in the cluster.", paramOpts{
		Default: 1, MinValue: jsii.Number(1), MaxValue: jsii.Number(20), Type: "Number",
	})

	c.Sg = newSecurityGroup(c, "Sg", id+"Sg", "ElastiCache SG", props.Vpc.ID())

	c.SubnetGroup = awselasticache.NewCfnSubnetGroup(c, jsii.String("SubnetGroup"), &awselasticache.CfnSubnetGroupProps{
		Description: jsii.String("ElastiCache subnet group"),
		SubnetIds:   props.Vpc.PrivateSubnetIDs(),
	})
	c.SubnetGroup.OverrideLogicalId(jsii.String(id + "SubnetGroup"))

	pgProps := &awselasticache.CfnParameterGroupProps{
		CacheParameterGroupFamily: jsii.String(props.Engine.ParameterGroupFamily),
		Description:               jsii.String("ElastiCache parameter group"),
	}
	if len(props.CustomParameters) > 0 {
		pgProps.Properties = &props.CustomParameters
	}
	c.ParameterGroup = awselasticache.NewCfnParameterGroup(c, jsii.String("ParameterGroup"), pgProps)
	c.ParameterGroup.OverrideLogicalId(jsii.String(id + "ParameterGroup"))

	// Memcached spreads nodes across AZs, which needs more than one node.
	azMode := awscdk.Aws_NO_VALUE()
	if props.Engine.Engine == MemcachedEngine.Engine {
		c.MultiNodeCondition = newCondition(c, id+"MultiNodeCondition",
			awscdk.Fn_ConditionNot(awscdk.Fn_ConditionEquals(c.NumCacheNodesParam.Value(), jsii.String("1"))))
		azMode = orNoValue(c.MultiNodeCondition, jsii.String("cross-az"))
	}

	c.Cluster = awselasticache.NewCfnCacheCluster(c, jsii.String("Cluster"), &awselasticache.CfnCacheClusterProps{
		AzMode:                  azMode,
		CacheNodeType:           c.CacheNodeTypeParam.ValueAsString(),
		CacheParameterGroupName: c.ParameterGroup.Ref(),
		CacheSubnetGroupName:    c.SubnetGroup.Ref(),
		Engine:                  jsii.String(props.Engine.Engine),
		EngineVersion:           jsii.String(props.Engine.EngineVersion),
		NumCacheNodes:           c.NumCacheNodesParam.ValueAsNumber(),
		VpcSecurityGroupIds:     &[]*string{c.Sg.Ref()},
	})
	c.Cluster.OverrideLogicalId(jsii.String(id + "Cluster"))

	return c
}

// ConstructID implements SgIngressTarget.
func (c *ElasticacheCluster) ConstructID() string { return c.id }

// Port implements SgIngressTarget.
func (c *ElasticacheCluster) Port() float64 { return c.engine.Port }

// SecurityGroup implements SgIngressTarget.
func (c *ElasticacheCluster) SecurityGroup() awsec2.CfnSecurityGroup { return c.Sg }

// Endpoint returns the configuration endpoint for Memcached and the node
// endpoint for Redis.
func (c *ElasticacheCluster) Endpoint() *string {
	if c.engine.Engine == RedisEngine.Engine {
		return c.Cluster.AttrRedisEndpointAddress()
	}
	return c.Cluster.AttrConfigurationEndpointAddress()
}

// ParameterGroups implements MetadataProvider.
func (c *ElasticacheCluster) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("ElastiCache Configuration", c.CacheNodeTypeParam, c.NumCacheNodesParam)}
}

// ParameterLabels implements MetadataProvider.
func (c *ElasticacheCluster) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(c.CacheNodeTypeParam): {Default: "ElastiCache Instance Type"},
		lid(c.NumCacheNodesParam): {Default: "ElastiCache Cache Nodes Number"},
	}
}
