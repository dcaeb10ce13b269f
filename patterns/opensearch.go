package patterns

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsopensearchservice"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// OpenSearchServiceProps configures an OpenSearchService domain.
type OpenSearchServiceProps struct {
	Vpc                  *Vpc
	AllowedInstanceTypes []string
	// DefaultInstanceType defaults to "m5.large.search".
	DefaultInstanceType string
}

// OpenSearchService is a single-node, encrypted search domain in the first
// private subnet.
type OpenSearchService struct {
	constructs.Construct

	id string

	EbsVolumeSizeParam               awscdk.CfnParameter
	NodeTypeParam                    awscdk.CfnParameter
	CreateServiceLinkedRoleParam     awscdk.CfnParameter
	CreateServiceLinkedRoleCondition awscdk.CfnCondition

	Key               awskms.Key
	Sg                awsec2.CfnSecurityGroup
	ServiceLinkedRole awsiam.CfnServiceLinkedRole
	WaitHandle        awscdk.CfnWaitConditionHandle
	Domain            awsopensearchservice.CfnDomain
}

// NewOpenSearchService creates the domain.
func NewOpenSearchService(scope constructs.Construct, id string, props OpenSearchServiceProps) *OpenSearchService {
	if props.Vpc == nil {
		panic("invalid stack configuration: OpenSearchService requires a Vpc")
	}
	if props.DefaultInstanceType == "" {
		props.DefaultInstanceType = "m5.large.search"
	}

	s := &OpenSearchService{Construct: constructs.NewConstruct(scope, jsii.String(id)), id: id}

	s.EbsVolumeSizeParam = newParam(s, id+"EbsVolumeSize", "Required: The size of the EBS volume for the OpenSearch node.", paramOpts{
		Default: 10, Type: "Number",
	})
	s.NodeTypeParam = newParam(s, id+"NodeType", "Required: Instance type for the OpenSearch Service nodes.", paramOpts{
		AllowedValues: allowedOrDefault(props.AllowedInstanceTypes, SearchNodeTypes),
		Default:       props.DefaultInstanceType,
	})
	s.CreateServiceLinkedRoleParam = newParam(s, id+"CreateServiceLinkedRole", "Whether or not to create a Service Linked Role for OpenSearch VPC access.", paramOpts{
		AllowedValues: []string{"true", "false"},
		Default:       "true",
	})
	s.CreateServiceLinkedRoleCondition = newCondition(s, id+"CreateServiceLinkedRoleCondition", isTrue(s.CreateServiceLinkedRoleParam))

	s.Key = awskms.NewKey(s, jsii.String("Key"), &awskms.KeyProps{
		EnableKeyRotation: jsii.Bool(false),
	})
	defaultChild(s.Key).OverrideLogicalId(jsii.String(id + "Key"))

	s.Sg = newSecurityGroup(s, "Sg", id+"Sg", "Open Search Service SG", props.Vpc.ID())

	s.ServiceLinkedRole = awsiam.NewCfnServiceLinkedRole(s, jsii.String("ServiceLinkedRole"), &awsiam.CfnServiceLinkedRoleProps{
		AwsServiceName: jsii.String("opensearchservice.amazonaws.com"),
	})
	s.ServiceLinkedRole.CfnOptions().SetCondition(s.CreateServiceLinkedRoleCondition)
	s.ServiceLinkedRole.OverrideLogicalId(jsii.String(id + "ServiceLinkedRole"))

	// The handle lets the domain depend on a role that may not exist.
	s.WaitHandle = awscdk.NewCfnWaitConditionHandle(s, jsii.String("WaitConditionHandle"), nil)
	s.WaitHandle.OverrideLogicalId(jsii.String(id + "WaitConditionHandle"))
	s.WaitHandle.AddMetadata(jsii.String("ServiceLinkedRoleAvailable"),
		awscdk.Fn_ConditionIf(s.CreateServiceLinkedRoleCondition.LogicalId(), s.ServiceLinkedRole.Ref(), awscdk.Aws_NO_VALUE()))

	accessPolicies := policyDocument(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:     awsiam.Effect_ALLOW,
		Actions:    jsii.Strings("es:*"),
		Principals: &[]awsiam.IPrincipal{awsiam.NewAnyPrincipal()},
		Resources: &[]*string{jsii.String(fmt.Sprintf("arn:%s:es:%s:%s:domain/*",
			*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID()))},
	}))

	s.Domain = awsopensearchservice.NewCfnDomain(s, jsii.String("Domain"), &awsopensearchservice.CfnDomainProps{
		AccessPolicies: accessPolicies,
		ClusterConfig: &awsopensearchservice.CfnDomain_ClusterConfigProperty{
			DedicatedMasterEnabled: jsii.Bool(false),
			InstanceCount:          jsii.Number(1),
			InstanceType:           s.NodeTypeParam.ValueAsString(),
			ZoneAwarenessEnabled:   jsii.Bool(false),
		},
		DomainEndpointOptions: &awsopensearchservice.CfnDomain_DomainEndpointOptionsProperty{
			EnforceHttps: jsii.Bool(true),
		},
		EbsOptions: &awsopensearchservice.CfnDomain_EBSOptionsProperty{
			EbsEnabled: jsii.Bool(true),
			VolumeSize: s.EbsVolumeSizeParam.ValueAsNumber(),
			VolumeType: jsii.String("gp3"),
		},
		EncryptionAtRestOptions: &awsopensearchservice.CfnDomain_EncryptionAtRestOptionsProperty{
			Enabled:  jsii.Bool(true),
			KmsKeyId: s.Key.KeyId(),
		},
		EngineVersion: jsii.String("Elasticsearch_7.10"),
		NodeToNodeEncryptionOptions: &awsopensearchservice.CfnDomain_NodeToNodeEncryptionOptionsProperty{
			Enabled: jsii.Bool(true),
		},
		VpcOptions: &awsopensearchservice.CfnDomain_VPCOptionsProperty{
			SecurityGroupIds: &[]*string{s.Sg.Ref()},
			SubnetIds:        &[]*string{props.Vpc.PrivateSubnet1ID()},
		},
	})
	s.Domain.OverrideLogicalId(jsii.String(id + "Domain"))
	s.Domain.AddDependency(s.WaitHandle)

	return s
}

// ConstructID implements SgIngressTarget.
func (s *OpenSearchService) ConstructID() string { return s.id }

// Port implements SgIngressTarget.
func (s *OpenSearchService) Port() float64 { return 443 }

// SecurityGroup implements SgIngressTarget.
func (s *OpenSearchService) SecurityGroup() awsec2.CfnSecurityGroup { return s.Sg }

// Endpoint returns the VPC endpoint of the domain.
func (s *OpenSearchService) Endpoint() *string { return s.Domain.AttrDomainEndpoint() }

// ParameterGroups implements MetadataProvider.
func (s *OpenSearchService) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("OpenSearch Service Configuration",
		s.NodeTypeParam, s.EbsVolumeSizeParam, s.CreateServiceLinkedRoleParam)}
}

// ParameterLabels implements MetadataProvider.
func (s *OpenSearchService) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(s.NodeTypeParam):                {Default: "OpenSearch Service Node Type"},
		lid(s.EbsVolumeSizeParam):           {Default: "OpenSearch Service EBS Volume Size"},
		lid(s.CreateServiceLinkedRoleParam): {Default: "Create OpenSearch Service Linked Role"},
	}
}
