package patterns_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/plexusone/patterns-aws-cdk/patterns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("vpc", func() {
	var stack awscdk.Stack

	BeforeEach(func() {
		stack = newTestStack()
	})

	It("should create a conditional two-az network", func() {
		patterns.NewVpc(stack, "Vpc")
		tmpl := assertions.Template_FromStack(stack, nil)

		tmpl.ResourceCountIs(jsii.String("AWS::EC2::VPC"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::Subnet"), jsii.Number(4))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::NatGateway"), jsii.Number(2))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::RouteTable"), jsii.Number(3))

		tmpl.HasParameter(jsii.String("VpcId"), map[string]any{"Default": jsii.String("")})
		tmpl.HasParameter(jsii.String("VpcCidr"), map[string]any{"Default": jsii.String("10.0.0.0/16")})
		tmpl.HasCondition(jsii.String("VpcNotGiven"), map[string]any{
			"Fn::Equals": []any{map[string]any{"Ref": "VpcId"}, ""},
		})
		tmpl.HasResource(jsii.String("AWS::EC2::VPC"), map[string]any{"Condition": jsii.String("VpcNotGiven")})
		tmpl.HasResource(jsii.String("AWS::EC2::NatGateway"), map[string]any{
			"Condition": jsii.String("VpcNotGivenAndNatGatewayPerSubnet"),
		})
		tmpl.HasOutput(jsii.String("VpcIdOutput"), map[string]any{})

		Expect(resources(tmpl)).To(HaveKey("VpcPrivateSubnet2DefaultRoute"))
	})
})

var _ = Describe("alb", func() {
	var stack awscdk.Stack
	var asg *patterns.Asg
	var vpc *patterns.Vpc

	BeforeEach(func() {
		stack = newTestStack()
		vpc = patterns.NewVpc(stack, "Vpc")
		asg = patterns.NewAsg(stack, "Asg", patterns.AsgProps{Vpc: vpc})
	})

	It("should forward to an https target group by default", func() {
		alb := patterns.NewAlb(stack, "Alb", patterns.AlbProps{Asg: asg, Vpc: vpc})
		Expect(alb.DnsName()).ToNot(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::LoadBalancer"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), jsii.Number(2))
		tmpl.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::TargetGroup"), map[string]any{
			"Port":     jsii.Number(443),
			"Protocol": jsii.String("HTTPS"),
		})
		tmpl.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), map[string]any{
			"Port":     jsii.Number(80),
			"Protocol": jsii.String("HTTP"),
			"DefaultActions": []map[string]any{{
				"Type": jsii.String("redirect"),
				"RedirectConfig": map[string]any{
					"Port":       jsii.String("443"),
					"Protocol":   jsii.String("HTTPS"),
					"StatusCode": jsii.String("HTTP_301"),
				},
			}},
		})
		tmpl.HasResourceProperties(jsii.String("AWS::AutoScaling::AutoScalingGroup"), map[string]any{
			"TargetGroupARNs": []map[string]any{{"Ref": jsii.String("AlbTargetGroup")}},
		})
	})

	It("should forward to an http target group on request", func() {
		patterns.NewAlb(stack, "Alb", patterns.AlbProps{Asg: asg, Vpc: vpc, TargetGroupHTTPS: jsii.Bool(false)})

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::TargetGroup"), map[string]any{
			"Port":     jsii.Number(80),
			"Protocol": jsii.String("HTTP"),
		})
		tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]any{
			"Description": jsii.String("Allow HTTP traffic from Alb to App"),
			"FromPort":    jsii.Number(80),
			"ToPort":      jsii.Number(80),
		})
	})

	It("should require an asg", func() {
		Expect(func() {
			patterns.NewAlb(stack, "Alb", patterns.AlbProps{Vpc: vpc})
		}).To(PanicWith(ContainSubstring("Alb requires an Asg and a Vpc")))
	})
})

var _ = Describe("dns", func() {
	var stack awscdk.Stack
	var alb *patterns.Alb

	BeforeEach(func() {
		stack = newTestStack()
		vpc := patterns.NewVpc(stack, "Vpc")
		asg := patterns.NewAsg(stack, "Asg", patterns.AsgProps{Vpc: vpc})
		alb = patterns.NewAlb(stack, "Alb", patterns.AlbProps{Asg: asg, Vpc: vpc})
	})

	It("should point the hostname at the load balancer", func() {
		dns := patterns.NewDns(stack, "Dns")
		dns.AddAlb(alb)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::LoadBalancer"), jsii.Number(1))
		tmpl.HasResource(jsii.String("AWS::Route53::RecordSet"), map[string]any{
			"Condition": jsii.String("DnsRoute53HostedZoneNameExists"),
			"Properties": map[string]any{
				"Type": jsii.String("CNAME"),
				"TTL":  jsii.String("60"),
			},
		})
		tmpl.HasOutput(jsii.String("DnsSiteUrlOutput"), map[string]any{})
	})

	It("should only bind one load balancer", func() {
		dns := patterns.NewDns(stack, "Dns")
		dns.AddAlb(alb)

		Expect(func() { dns.AddAlb(alb) }).To(PanicWith(ContainSubstring("already bound")))
	})
})
