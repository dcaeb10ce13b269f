package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsamazonmq"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// BrokerEngine describes an Amazon MQ engine flavour.
type BrokerEngine struct {
	EngineType    string
	EngineVersion string
	Port          float64
}

// RabbitMQEngine is RabbitMQ 3.10 over AMQPS.
var RabbitMQEngine = BrokerEngine{EngineType: "RABBITMQ", EngineVersion: "3.10.10", Port: 5671}

// AmazonMQProps configures an AmazonMQ broker.
type AmazonMQProps struct {
	// Secret holds the broker user's "username" and "password".
	Secret               SecretSource
	Vpc                  *Vpc
	AllowedInstanceTypes []string
	// DefaultInstanceType defaults to "mq.t3.micro".
	DefaultInstanceType string
	Engine              BrokerEngine
}

// AmazonMQ is a single-instance broker in the first private subnet.
type AmazonMQ struct {
	constructs.Construct

	id     string
	engine BrokerEngine

	InstanceTypeParam awscdk.CfnParameter
	Sg                awsec2.CfnSecurityGroup
	Broker            awsamazonmq.CfnBroker
}

// NewRabbitMQ creates a RabbitMQ broker.
func NewRabbitMQ(scope constructs.Construct, id string, props AmazonMQProps) *AmazonMQ {
	props.Engine = RabbitMQEngine
	return NewAmazonMQ(scope, id, props)
}

// NewAmazonMQ creates the broker for props.Engine.
func NewAmazonMQ(scope constructs.Construct, id string, props AmazonMQProps) *AmazonMQ {
	if props.Secret == nil || props.Vpc == nil {
		panic("invalid stack configuration: AmazonMQ requires a Secret and a Vpc")
	}
	if props.Engine.EngineType == "" {
		panic("invalid stack configuration: AmazonMQ requires an engine")
	}
	if props.DefaultInstanceType == "" {
		props.DefaultInstanceType = "mq.t3.micro"
	}

	m := &AmazonMQ{
		Construct: constructs.NewConstruct(scope, jsii.String(id)),
		id:        id,
		engine:    props.Engine,
	}

	m.InstanceTypeParam = newParam(m, id+"InstanceType", "Required: Host instance type for the broker.", paramOpts{
		AllowedValues: allowedOrDefault(props.AllowedInstanceTypes, BrokerInstanceTypes),
		Default:       props.DefaultInstanceType,
	})

	m.Sg = newSecurityGroup(m, "Sg", id+"Sg", "AmazonMQ SG", props.Vpc.ID())

	m.Broker = awsamazonmq.NewCfnBroker(m, jsii.String("Broker"), &awsamazonmq.CfnBrokerProps{
		AutoMinorVersionUpgrade: jsii.Bool(true),
		BrokerName:              AppendStackUUID(jsii.String("mq")),
		DeploymentMode:          jsii.String("SINGLE_INSTANCE"),
		EngineType:              jsii.String(props.Engine.EngineType),
		EngineVersion:           jsii.String(props.Engine.EngineVersion),
		HostInstanceType:        m.InstanceTypeParam.ValueAsString(),
		Logs: &awsamazonmq.CfnBroker_LogListProperty{
			General: jsii.Bool(true),
		},
		PubliclyAccessible: jsii.Bool(false),
		SecurityGroups:     &[]*string{m.Sg.Ref()},
		SubnetIds:          &[]*string{props.Vpc.PrivateSubnet1ID()},
		Users: &[]interface{}{
			&awsamazonmq.CfnBroker_UserProperty{
				Username: secretValue(props.Secret, "username"),
				Password: secretValue(props.Secret, "password"),
			},
		},
	})
	m.Broker.OverrideLogicalId(jsii.String(id + "Broker"))

	return m
}

// ConstructID implements SgIngressTarget.
func (m *AmazonMQ) ConstructID() string { return m.id }

// Port implements SgIngressTarget.
func (m *AmazonMQ) Port() float64 { return m.engine.Port }

// SecurityGroup implements SgIngressTarget.
func (m *AmazonMQ) SecurityGroup() awsec2.CfnSecurityGroup { return m.Sg }

// BrokerEndpoint is the first AMQP endpoint of the broker.
func (m *AmazonMQ) BrokerEndpoint() *string {
	return awscdk.Fn_Select(jsii.Number(0), m.Broker.AttrAmqpEndpoints())
}

// ParameterGroups implements MetadataProvider.
func (m *AmazonMQ) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("AmazonMQ Configuration", m.InstanceTypeParam)}
}

// ParameterLabels implements MetadataProvider.
func (m *AmazonMQ) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(m.InstanceTypeParam): {Default: "AmazonMQ Instance Type"},
	}
}
