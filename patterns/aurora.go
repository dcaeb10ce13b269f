package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsrds"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// AuroraEngine describes an Aurora engine flavour.
type AuroraEngine struct {
	Engine             string
	EngineVersion      string
	ParameterGroupName string
	Port               float64
	InstanceClasses    []string
}

var (
	// AuroraMysqlEngine is Aurora MySQL 5.7.
	AuroraMysqlEngine = AuroraEngine{
		Engine:             "aurora-mysql",
		EngineVersion:      "5.7.mysql_aurora.2.11.1",
		ParameterGroupName: "default.aurora-mysql5.7",
		Port:               3306,
		InstanceClasses:    AuroraMysqlInstanceClasses,
	}
	// AuroraPostgresqlEngine is Aurora PostgreSQL 13.
	AuroraPostgresqlEngine = AuroraEngine{
		Engine:             "aurora-postgresql",
		EngineVersion:      "13.7",
		ParameterGroupName: "default.aurora-postgresql13",
		Port:               5432,
		InstanceClasses:    AuroraPostgresqlInstanceClasses,
	}
)

// AuroraClusterProps configures an AuroraCluster.
type AuroraClusterProps struct {
	DbSecret             *DbSecret
	Vpc                  *Vpc
	AllowedInstanceTypes []string
	DatabaseName         string
	// DefaultInstanceType defaults to "db.t4g.medium".
	DefaultInstanceType string
	Engine              AuroraEngine
}

// AuroraCluster is a single-instance provisioned Aurora cluster in the
// private subnets whose credentials come from a DbSecret.
type AuroraCluster struct {
	constructs.Construct

	id     string
	engine AuroraEngine

	BackupRetentionPeriodParam awscdk.CfnParameter
	InstanceClassParam         awscdk.CfnParameter
	SnapshotIdentifierParam    awscdk.CfnParameter
	SnapshotIdentifierExists   awscdk.CfnCondition
	SnapshotSecretRule         awscdk.CfnRule

	Sg              awsec2.CfnSecurityGroup
	SubnetGroup     awsrds.CfnDBSubnetGroup
	Cluster         awsrds.CfnDBCluster
	PrimaryInstance awsrds.CfnDBInstance
}

// NewAuroraMysql creates an Aurora MySQL cluster.
func NewAuroraMysql(scope constructs.Construct, id string, props AuroraClusterProps) *AuroraCluster {
	props.Engine = AuroraMysqlEngine
	return NewAuroraCluster(scope, id, props)
}

// NewAuroraPostgresql creates an Aurora PostgreSQL cluster.
func NewAuroraPostgresql(scope constructs.Construct, id string, props AuroraClusterProps) *AuroraCluster {
	props.Engine = AuroraPostgresqlEngine
	return NewAuroraCluster(scope, id, props)
}

// NewAuroraCluster creates the cluster for props.Engine.
func NewAuroraCluster(scope constructs.Construct, id string, props AuroraClusterProps) *AuroraCluster {
	if props.DbSecret == nil || props.Vpc == nil {
		panic("invalid stack configuration: AuroraCluster requires a DbSecret and a Vpc")
	}
	if props.Engine.Engine == "" {
		panic("invalid stack configuration: AuroraCluster requires an engine")
	}
	if props.DefaultInstanceType == "" {
		props.DefaultInstanceType = "db.t4g.medium"
	}

	c := &AuroraCluster{
		Construct: constructs.NewConstruct(scope, jsii.String(id)),
		id:        id,
		engine:    props.Engine,
	}
	secret := props.DbSecret

	c.BackupRetentionPeriodParam = newParam(c, id+"BackupRetentionPeriod", "Required: The number of days to retain automated db backups.", paramOpts{
		Type: "Number", MinValue: jsii.Number(1), MaxValue: jsii.Number(35), Default: "7",
	})
	c.InstanceClassParam = newParam(c, id+"InstanceClass", "Required: The class profile for memory and compute capacity for the database instance.", paramOpts{
		AllowedValues: allowedOrDefault(props.AllowedInstanceTypes, props.Engine.InstanceClasses),
		Default:       props.DefaultInstanceType,
	})
	c.SnapshotIdentifierParam = newParam(c, id+"SnapshotIdentifier", "Optional: RDS snapshot ARN from which to restore. If specified, manually edit the secret values to specify the snapshot credentials for the application. WARNING: Changing this value will re-provision the database.", paramOpts{Default: ""})
	c.SnapshotIdentifierExists = newCondition(c, id+"SnapshotIdentifierExistsCondition", isNotEmpty(c.SnapshotIdentifierParam))

	c.SnapshotSecretRule = awscdk.NewCfnRule(c, jsii.String("SnapshotIdentifierAndSecretRequiredRule"), &awscdk.CfnRuleProps{
		RuleCondition: isNotEmpty(c.SnapshotIdentifierParam),
		Assertions: &[]*awscdk.CfnRuleAssertion{{
			Assert:            isNotEmpty(secret.ArnParam),
			AssertDescription: jsii.String("When restoring the database from a snapshot, a secret ARN must also be supplied, prepopulated with username and password key-value pairs which correspond to the snapshot image"),
		}},
	})
	c.SnapshotSecretRule.OverrideLogicalId(jsii.String(id + "SnapshotIdentifierAndSecretRequiredRule"))

	c.Sg = newSecurityGroup(c, "Sg", id+"Sg", "Database SG", props.Vpc.ID())

	c.SubnetGroup = awsrds.NewCfnDBSubnetGroup(c, jsii.String("SubnetGroup"), &awsrds.CfnDBSubnetGroupProps{
		DbSubnetGroupDescription: jsii.String(props.Engine.Engine + " DB Subnet Group"),
		SubnetIds:                props.Vpc.PrivateSubnetIDs(),
	})
	c.SubnetGroup.OverrideLogicalId(jsii.String(id + "SubnetGroup"))

	clusterProps := &awsrds.CfnDBClusterProps{
		BackupRetentionPeriod:       c.BackupRetentionPeriodParam.ValueAsNumber(),
		DbClusterParameterGroupName: jsii.String(props.Engine.ParameterGroupName),
		DbSubnetGroupName:           c.SubnetGroup.Ref(),
		Engine:                      jsii.String(props.Engine.Engine),
		EngineMode:                  jsii.String("provisioned"),
		EngineVersion:               jsii.String(props.Engine.EngineVersion),
		MasterUsername:              c.unlessRestoring(secretValue(secret, "username")),
		MasterUserPassword:          c.unlessRestoring(secretValue(secret, "password")),
		Port:                        jsii.Number(props.Engine.Port),
		SnapshotIdentifier:          orNoValue(c.SnapshotIdentifierExists, c.SnapshotIdentifierParam.ValueAsString()),
		StorageEncrypted:            jsii.Bool(true),
		VpcSecurityGroupIds:         &[]*string{c.Sg.Ref()},
	}
	if props.DatabaseName != "" {
		clusterProps.DatabaseName = jsii.String(props.DatabaseName)
	}
	c.Cluster = awsrds.NewCfnDBCluster(c, jsii.String("Cluster"), clusterProps)
	c.Cluster.OverrideLogicalId(jsii.String(id + "Cluster"))
	awscdk.Tags_Of(c.Cluster).Add(jsii.String("oe:patterns:db:secretarn"), secret.SecretArn(), nil)

	c.PrimaryInstance = awsrds.NewCfnDBInstance(c, jsii.String("PrimaryInstance"), &awsrds.CfnDBInstanceProps{
		DbClusterIdentifier:  c.Cluster.Ref(),
		DbInstanceClass:      c.InstanceClassParam.ValueAsString(),
		DbInstanceIdentifier: c.unlessRestoring(AppendStackUUID(jsii.String("db"))),
		DbParameterGroupName: jsii.String(props.Engine.ParameterGroupName),
		DbSubnetGroupName:    c.SubnetGroup.Ref(),
		Engine:               jsii.String(props.Engine.Engine),
		PubliclyAccessible:   jsii.Bool(false),
	})
	c.PrimaryInstance.OverrideLogicalId(jsii.String(id + "PrimaryInstance"))

	return c
}

// unlessRestoring drops value when the cluster is restored from a snapshot.
func (c *AuroraCluster) unlessRestoring(value *string) *string {
	return ifString(c.SnapshotIdentifierExists, awscdk.Aws_NO_VALUE(), value)
}

// secretValue is a Secrets Manager dynamic reference to a JSON key.
func secretValue(secret SecretSource, key string) *string {
	return awscdk.Fn_Join(jsii.String(""), &[]*string{
		jsii.String("{{resolve:secretsmanager:"),
		secret.SecretArn(),
		jsii.String(":SecretString:" + key + "}}"),
	})
}

// ConstructID implements SgIngressTarget.
func (c *AuroraCluster) ConstructID() string { return c.id }

// Port implements SgIngressTarget.
func (c *AuroraCluster) Port() float64 { return c.engine.Port }

// SecurityGroup implements SgIngressTarget.
func (c *AuroraCluster) SecurityGroup() awsec2.CfnSecurityGroup { return c.Sg }

// Endpoint returns the cluster writer endpoint address.
func (c *AuroraCluster) Endpoint() *string { return c.Cluster.AttrEndpointAddress() }

// ParameterGroups implements MetadataProvider.
func (c *AuroraCluster) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("Database Configuration",
		c.BackupRetentionPeriodParam, c.InstanceClassParam, c.SnapshotIdentifierParam)}
}

// ParameterLabels implements MetadataProvider.
func (c *AuroraCluster) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(c.BackupRetentionPeriodParam): {Default: "Database Backup Retention Period"},
		lid(c.InstanceClassParam):         {Default: "Database Instance Type"},
		lid(c.SnapshotIdentifierParam):    {Default: "Database Snapshot Identifier"},
	}
}
