package patterns

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// VpcSubnet groups the parameters and resources of one subnet slot.
type VpcSubnet struct {
	IDParam   awscdk.CfnParameter
	CidrParam awscdk.CfnParameter
	Subnet    awsec2.CfnSubnet
	// RouteTable is the subnet's own table for private subnets and the shared
	// public table for public subnets.
	RouteTable  awsec2.CfnRouteTable
	Association awsec2.CfnSubnetRouteTableAssociation
	// EIP and NatGateway are only set for public subnets.
	EIP        awsec2.CfnEIP
	NatGateway awsec2.CfnNatGateway
	// DefaultRoute is only set for private subnets.
	DefaultRoute awsec2.CfnRoute
}

// Vpc either uses an existing VPC given by parameters or creates a two-AZ VPC
// with public and private subnets and NAT gateways.
type Vpc struct {
	constructs.Construct

	id string

	IDParam                  awscdk.CfnParameter
	CidrParam                awscdk.CfnParameter
	NatGatewayPerSubnetParam awscdk.CfnParameter

	NotGivenCondition                       awscdk.CfnCondition
	NotGivenAndNatGatewayPerSubnetCondition awscdk.CfnCondition

	Vpc                awsec2.CfnVPC
	InternetGateway    awsec2.CfnInternetGateway
	IGWAttachment      awsec2.CfnVPCGatewayAttachment
	PublicRouteTable   awsec2.CfnRouteTable
	PublicDefaultRoute awsec2.CfnRoute

	PublicSubnet1  *VpcSubnet
	PublicSubnet2  *VpcSubnet
	PrivateSubnet1 *VpcSubnet
	PrivateSubnet2 *VpcSubnet
}

// NewVpc creates the VPC parameters, conditions and conditional resources.
func NewVpc(scope constructs.Construct, id string) *Vpc {
	v := &Vpc{
		Construct: constructs.NewConstruct(scope, jsii.String(id)),
		id:        id,
	}

	v.IDParam = newParam(v, id+"Id", "Optional: Specify the VPC ID. If not specified, a VPC will be created.", paramOpts{Default: ""})
	v.CidrParam = newParam(v, id+"Cidr", "Optional: VPC IPv4 CIDR block if no VPC provided.", paramOpts{
		AllowedPattern: CidrPattern,
		Default:        "10.0.0.0/16",
	})
	v.NatGatewayPerSubnetParam = newParam(v, id+"NatGatewayPerSubnet", "Optional: Set to 'true' to provision a NAT Gateway in each public subnet for AZ HA.", paramOpts{
		AllowedValues: []string{"true", "false"},
		Default:       "false",
	})

	v.PrivateSubnet1 = v.subnetParams("PrivateSubnet1", "private subnet 1", "10.0.128.0/18")
	v.PrivateSubnet2 = v.subnetParams("PrivateSubnet2", "private subnet 2", "10.0.192.0/18")
	v.PublicSubnet1 = v.subnetParams("PublicSubnet1", "public subnet 1", "10.0.0.0/18")
	v.PublicSubnet2 = v.subnetParams("PublicSubnet2", "public subnet 2", "10.0.64.0/18")

	v.NotGivenCondition = newCondition(v, id+"NotGiven", isEmpty(v.IDParam))
	v.NotGivenAndNatGatewayPerSubnetCondition = newCondition(v, id+"NotGivenAndNatGatewayPerSubnet",
		awscdk.Fn_ConditionAnd(isEmpty(v.IDParam), isTrue(v.NatGatewayPerSubnetParam)))

	v.createNetwork()
	v.createPublicSubnet(v.PublicSubnet1, 0, v.NotGivenCondition)
	v.createPublicSubnet(v.PublicSubnet2, 1, v.NotGivenAndNatGatewayPerSubnetCondition)

	// Private subnet 2 falls back to the first NAT gateway unless each
	// public subnet has its own.
	v.createPrivateSubnet(v.PrivateSubnet1, 0, v.PublicSubnet1.NatGateway.Ref())
	v.createPrivateSubnet(v.PrivateSubnet2, 1, ifString(v.NotGivenAndNatGatewayPerSubnetCondition,
		v.PublicSubnet2.NatGateway.Ref(), v.PublicSubnet1.NatGateway.Ref()))

	newOutput(v, id+"IdOutput", "The ID of the VPC.", v.ID())
	newOutput(v, id+"PrivateSubnet1IdOutput", "The ID of the first private VPC subnet.", v.PrivateSubnet1ID())
	newOutput(v, id+"PrivateSubnet2IdOutput", "The ID of the second private VPC subnet.", v.PrivateSubnet2ID())
	newOutput(v, id+"PublicSubnet1IdOutput", "The ID of the first public VPC subnet.", v.PublicSubnet1ID())
	newOutput(v, id+"PublicSubnet2IdOutput", "The ID of the second public VPC subnet.", v.PublicSubnet2ID())

	return v
}

func (v *Vpc) subnetParams(name, desc, cidr string) *VpcSubnet {
	return &VpcSubnet{
		IDParam: newParam(v, v.id+name+"Id", fmt.Sprintf("Optional: Specify Subnet ID for %s.", desc), paramOpts{Default: ""}),
		CidrParam: newParam(v, v.id+name+"Cidr", fmt.Sprintf("Optional: VPC IPv4 CIDR block of %s if no VPC provided.", desc), paramOpts{
			AllowedPattern: CidrPattern,
			Default:        cidr,
		}),
	}
}

func (v *Vpc) createNetwork() {
	id := v.id

	v.Vpc = awsec2.NewCfnVPC(v, jsii.String(id), &awsec2.CfnVPCProps{
		CidrBlock:          v.CidrParam.ValueAsString(),
		EnableDnsHostnames: jsii.Bool(true),
		EnableDnsSupport:   jsii.Bool(true),
		InstanceTenancy:    jsii.String("default"),
		Tags:               nameTag(id),
	})
	v.conditional(v.Vpc, id)

	v.InternetGateway = awsec2.NewCfnInternetGateway(v, jsii.String("InternetGateway"), &awsec2.CfnInternetGatewayProps{
		Tags: nameTag(id),
	})
	v.conditional(v.InternetGateway, id+"InternetGateway")

	v.IGWAttachment = awsec2.NewCfnVPCGatewayAttachment(v, jsii.String("IGWAttachment"), &awsec2.CfnVPCGatewayAttachmentProps{
		VpcId:             v.Vpc.Ref(),
		InternetGatewayId: v.InternetGateway.Ref(),
	})
	v.conditional(v.IGWAttachment, id+"IGWAttachment")

	v.PublicRouteTable = awsec2.NewCfnRouteTable(v, jsii.String("PublicRouteTable"), &awsec2.CfnRouteTableProps{
		VpcId: v.Vpc.Ref(),
		Tags:  nameTag(id + "/PublicRouteTable"),
	})
	v.conditional(v.PublicRouteTable, id+"PublicRouteTable")

	v.PublicDefaultRoute = awsec2.NewCfnRoute(v, jsii.String("PublicDefaultRoute"), &awsec2.CfnRouteProps{
		RouteTableId:         v.PublicRouteTable.Ref(),
		DestinationCidrBlock: jsii.String("0.0.0.0/0"),
		GatewayId:            v.InternetGateway.Ref(),
	})
	v.conditional(v.PublicDefaultRoute, id+"PublicDefaultRoute")
}

// createPublicSubnet creates the subnet in AZ index az together with its NAT
// gateway. natCondition gates the EIP and NAT gateway.
func (v *Vpc) createPublicSubnet(s *VpcSubnet, az int, natCondition awscdk.CfnCondition) {
	name := fmt.Sprintf("PublicSubnet%d", az+1)

	s.Subnet = v.newSubnet(name, s, az, true)
	s.RouteTable = v.PublicRouteTable

	s.Association = awsec2.NewCfnSubnetRouteTableAssociation(v, jsii.String(name+"RouteTableAssociation"), &awsec2.CfnSubnetRouteTableAssociationProps{
		RouteTableId: v.PublicRouteTable.Ref(),
		SubnetId:     s.Subnet.Ref(),
	})
	v.conditional(s.Association, v.id+name+"RouteTableAssociation")

	s.EIP = awsec2.NewCfnEIP(v, jsii.String(name+"EIP"), &awsec2.CfnEIPProps{
		Domain: jsii.String("vpc"),
	})
	s.EIP.CfnOptions().SetCondition(natCondition)
	s.EIP.OverrideLogicalId(jsii.String(v.id + name + "EIP"))

	s.NatGateway = awsec2.NewCfnNatGateway(v, jsii.String(name+"NATGateway"), &awsec2.CfnNatGatewayProps{
		AllocationId: s.EIP.AttrAllocationId(),
		SubnetId:     s.Subnet.Ref(),
		Tags:         nameTag(v.id + "/" + name),
	})
	s.NatGateway.CfnOptions().SetCondition(natCondition)
	s.NatGateway.OverrideLogicalId(jsii.String(v.id + name + "NATGateway"))
}

// createPrivateSubnet creates the subnet in AZ index az with its own route
// table whose default route points at natGatewayID.
func (v *Vpc) createPrivateSubnet(s *VpcSubnet, az int, natGatewayID *string) {
	name := fmt.Sprintf("PrivateSubnet%d", az+1)

	s.Subnet = v.newSubnet(name, s, az, false)

	s.RouteTable = awsec2.NewCfnRouteTable(v, jsii.String(name+"RouteTable"), &awsec2.CfnRouteTableProps{
		VpcId: v.Vpc.Ref(),
		Tags:  nameTag(v.id + "/" + name),
	})
	v.conditional(s.RouteTable, v.id+name+"RouteTable")

	s.Association = awsec2.NewCfnSubnetRouteTableAssociation(v, jsii.String(name+"RouteTableAssociation"), &awsec2.CfnSubnetRouteTableAssociationProps{
		RouteTableId: s.RouteTable.Ref(),
		SubnetId:     s.Subnet.Ref(),
	})
	v.conditional(s.Association, v.id+name+"RouteTableAssociation")

	s.DefaultRoute = awsec2.NewCfnRoute(v, jsii.String(name+"DefaultRoute"), &awsec2.CfnRouteProps{
		RouteTableId:         s.RouteTable.Ref(),
		DestinationCidrBlock: jsii.String("0.0.0.0/0"),
		NatGatewayId:         natGatewayID,
	})
	v.conditional(s.DefaultRoute, v.id+name+"DefaultRoute")
}

func (v *Vpc) newSubnet(name string, s *VpcSubnet, az int, public bool) awsec2.CfnSubnet {
	subnet := awsec2.NewCfnSubnet(v, jsii.String(name), &awsec2.CfnSubnetProps{
		CidrBlock:           s.CidrParam.ValueAsString(),
		VpcId:               v.Vpc.Ref(),
		AvailabilityZone:    awscdk.Fn_Select(jsii.Number(az), awscdk.Fn_GetAzs(nil)),
		MapPublicIpOnLaunch: jsii.Bool(public),
		Tags:                nameTag(v.id + "/" + name),
	})
	v.conditional(subnet, v.id+name)
	return subnet
}

// conditional puts res under the NotGiven condition and pins its logical id.
func (v *Vpc) conditional(res awscdk.CfnResource, logicalID string) {
	res.CfnOptions().SetCondition(v.NotGivenCondition)
	res.OverrideLogicalId(jsii.String(logicalID))
}

// ID returns the created or the given VPC id.
func (v *Vpc) ID() *string {
	return ifString(v.NotGivenCondition, v.Vpc.Ref(), v.IDParam.ValueAsString())
}

// PrivateSubnet1ID returns the created or the given id of private subnet 1.
func (v *Vpc) PrivateSubnet1ID() *string { return v.subnetID(v.PrivateSubnet1) }

// PrivateSubnet2ID returns the created or the given id of private subnet 2.
func (v *Vpc) PrivateSubnet2ID() *string { return v.subnetID(v.PrivateSubnet2) }

// PublicSubnet1ID returns the created or the given id of public subnet 1.
func (v *Vpc) PublicSubnet1ID() *string { return v.subnetID(v.PublicSubnet1) }

// PublicSubnet2ID returns the created or the given id of public subnet 2.
func (v *Vpc) PublicSubnet2ID() *string { return v.subnetID(v.PublicSubnet2) }

// PrivateSubnetIDs returns both private subnet ids as a list token.
func (v *Vpc) PrivateSubnetIDs() *[]*string {
	return v.subnetIDs(v.PrivateSubnet1, v.PrivateSubnet2)
}

// PublicSubnetIDs returns both public subnet ids as a list token.
func (v *Vpc) PublicSubnetIDs() *[]*string {
	return v.subnetIDs(v.PublicSubnet1, v.PublicSubnet2)
}

func (v *Vpc) subnetID(s *VpcSubnet) *string {
	return ifString(v.NotGivenCondition, s.Subnet.Ref(), s.IDParam.ValueAsString())
}

func (v *Vpc) subnetIDs(a, b *VpcSubnet) *[]*string {
	return ifList(v.NotGivenCondition,
		&[]*string{a.Subnet.Ref(), b.Subnet.Ref()},
		&[]*string{a.IDParam.ValueAsString(), b.IDParam.ValueAsString()})
}

// ParameterGroups implements MetadataProvider.
func (v *Vpc) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{
		group("VPC: Use Existing",
			v.IDParam,
			v.PrivateSubnet1.IDParam, v.PrivateSubnet2.IDParam,
			v.PublicSubnet1.IDParam, v.PublicSubnet2.IDParam),
		group("VPC: Create New",
			v.CidrParam, v.NatGatewayPerSubnetParam,
			v.PrivateSubnet1.CidrParam, v.PrivateSubnet2.CidrParam,
			v.PublicSubnet1.CidrParam, v.PublicSubnet2.CidrParam),
	}
}

// ParameterLabels implements MetadataProvider.
func (v *Vpc) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(v.CidrParam):                {Default: "VPC IPv4 CIDR"},
		lid(v.IDParam):                  {Default: "VPC ID"},
		lid(v.NatGatewayPerSubnetParam): {Default: "Provision NAT Gateways Per Public Subnet (for HA but with higher cost)"},
		lid(v.PrivateSubnet1.CidrParam): {Default: "Private Subnet 1 IPv4 CIDR"},
		lid(v.PrivateSubnet1.IDParam):   {Default: "Private Subnet 1 ID"},
		lid(v.PrivateSubnet2.CidrParam): {Default: "Private Subnet 2 IPv4 CIDR"},
		lid(v.PrivateSubnet2.IDParam):   {Default: "Private Subnet 2 ID"},
		lid(v.PublicSubnet1.CidrParam):  {Default: "Public Subnet 1 IPv4 CIDR"},
		lid(v.PublicSubnet1.IDParam):    {Default: "Public Subnet 1 ID"},
		lid(v.PublicSubnet2.CidrParam):  {Default: "Public Subnet 2 IPv4 CIDR"},
		lid(v.PublicSubnet2.IDParam):    {Default: "Public Subnet 2 ID"},
	}
}
