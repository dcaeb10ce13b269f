package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

const ingressCidrPattern = `^((\d{1,3})\.){3}\d{1,3}/\d{1,2}$`

// AlbProps configures an Alb.
type AlbProps struct {
	Asg *Asg
	Vpc *Vpc
	// TargetGroupHTTPS selects a 443/HTTPS target group. Defaults to true;
	// false yields 80/HTTP.
	TargetGroupHTTPS *bool
}

// Alb is an internet-facing Application Load Balancer in the public subnets
// that redirects HTTP to HTTPS and forwards HTTPS to the Asg instances.
type Alb struct {
	constructs.Construct

	CertificateArnParam awscdk.CfnParameter
	IngressCidrParam    awscdk.CfnParameter

	Sg                awsec2.CfnSecurityGroup
	HttpIngress       awsec2.CfnSecurityGroupIngress
	HttpsIngress      awsec2.CfnSecurityGroupIngress
	AppSgHttpsIngress awsec2.CfnSecurityGroupIngress
	LoadBalancer      awselasticloadbalancingv2.CfnLoadBalancer
	HttpListener      awselasticloadbalancingv2.CfnListener
	TargetGroup       awselasticloadbalancingv2.CfnTargetGroup
	HttpsListener     awselasticloadbalancingv2.CfnListener
}

// NewAlb creates the load balancer and registers its target group with the
// Auto Scaling Group.
func NewAlb(scope constructs.Construct, id string, props AlbProps) *Alb {
	if props.Asg == nil || props.Vpc == nil {
		panic("invalid stack configuration: Alb requires an Asg and a Vpc")
	}
	port, protocol := 443.0, "HTTPS"
	if props.TargetGroupHTTPS != nil && !*props.TargetGroupHTTPS {
		port, protocol = 80.0, "HTTP"
	}

	b := &Alb{Construct: constructs.NewConstruct(scope, jsii.String(id))}

	b.CertificateArnParam = newParam(b, id+"CertificateArn", "Optional: Specify the ARN of a ACM Certificate to configure HTTPS.", paramOpts{Default: ""})
	b.IngressCidrParam = newParam(b, id+"IngressCidr", "Optional: VPC IPv4 CIDR block to restrict public access to ALB (default is 0.0.0.0/0 which is open to internet).", paramOpts{
		AllowedPattern: ingressCidrPattern,
		Default:        "0.0.0.0/0",
	})

	b.Sg = awsec2.NewCfnSecurityGroup(b, jsii.String("Sg"), &awsec2.CfnSecurityGroupProps{
		GroupDescription: stackScoped("AlbSg"),
		VpcId:            props.Vpc.ID(),
	})
	b.Sg.OverrideLogicalId(jsii.String(id + "Sg"))
	awscdk.Tags_Of(b.Sg).Add(jsii.String("Name"), stackScoped("AlbSg"), nil)

	cidrIngress := func(name, description string, p float64) awsec2.CfnSecurityGroupIngress {
		ing := awsec2.NewCfnSecurityGroupIngress(b, jsii.String(name), &awsec2.CfnSecurityGroupIngressProps{
			CidrIp:      b.IngressCidrParam.ValueAsString(),
			Description: jsii.String(description),
			FromPort:    jsii.Number(p),
			GroupId:     b.Sg.Ref(),
			IpProtocol:  jsii.String("tcp"),
			ToPort:      jsii.Number(p),
		})
		ing.OverrideLogicalId(jsii.String(id + name))
		return ing
	}
	b.HttpIngress = cidrIngress("SgHttpIngress", "Allow HTTP traffic to ALB from anyone", 80)
	b.HttpsIngress = cidrIngress("SgHttpsIngress", "Allow HTTPS traffic to ALB from anyone", 443)

	b.AppSgHttpsIngress = awsec2.NewCfnSecurityGroupIngress(b, jsii.String("AppSgHttpsIngress"), &awsec2.CfnSecurityGroupIngressProps{
		Description:           jsii.String("Allow " + protocol + " traffic from Alb to App"),
		FromPort:              jsii.Number(port),
		GroupId:               props.Asg.Sg.Ref(),
		IpProtocol:            jsii.String("tcp"),
		SourceSecurityGroupId: b.Sg.Ref(),
		ToPort:                jsii.Number(port),
	})
	b.AppSgHttpsIngress.OverrideLogicalId(jsii.String("AppSgHttpsIngress"))

	b.LoadBalancer = awselasticloadbalancingv2.NewCfnLoadBalancer(b, jsii.String("LoadBalancer"), &awselasticloadbalancingv2.CfnLoadBalancerProps{
		Scheme:         jsii.String("internet-facing"),
		SecurityGroups: &[]*string{b.Sg.Ref()},
		Subnets:        props.Vpc.PublicSubnetIDs(),
		Type:           jsii.String("application"),
	})
	b.LoadBalancer.OverrideLogicalId(jsii.String(id))

	b.HttpListener = awselasticloadbalancingv2.NewCfnListener(b, jsii.String("HttpListener"), &awselasticloadbalancingv2.CfnListenerProps{
		DefaultActions: &[]interface{}{
			&awselasticloadbalancingv2.CfnListener_ActionProperty{
				Type: jsii.String("redirect"),
				RedirectConfig: &awselasticloadbalancingv2.CfnListener_RedirectConfigProperty{
					Host:       jsii.String("#{host}"),
					Path:       jsii.String("/#{path}"),
					Port:       jsii.String("443"),
					Protocol:   jsii.String("HTTPS"),
					Query:      jsii.String("#{query}"),
					StatusCode: jsii.String("HTTP_301"),
				},
			},
		},
		LoadBalancerArn: b.LoadBalancer.Ref(),
		Port:            jsii.Number(80),
		Protocol:        jsii.String("HTTP"),
	})
	b.HttpListener.OverrideLogicalId(jsii.String(id + "HttpListener"))

	b.TargetGroup = awselasticloadbalancingv2.NewCfnTargetGroup(b, jsii.String("TargetGroup"), &awselasticloadbalancingv2.CfnTargetGroupProps{
		Port:     jsii.Number(port),
		Protocol: jsii.String(protocol),
		TargetGroupAttributes: &[]interface{}{
			&awselasticloadbalancingv2.CfnTargetGroup_TargetGroupAttributeProperty{
				Key:   jsii.String("deregistration_delay.timeout_seconds"),
				Value: jsii.String("10"),
			},
		},
		TargetType: jsii.String("instance"),
		VpcId:      props.Vpc.ID(),
	})
	b.TargetGroup.OverrideLogicalId(jsii.String(id + "TargetGroup"))

	b.HttpsListener = awselasticloadbalancingv2.NewCfnListener(b, jsii.String("HttpsListener"), &awselasticloadbalancingv2.CfnListenerProps{
		Certificates: &[]interface{}{
			&awselasticloadbalancingv2.CfnListener_CertificateProperty{
				CertificateArn: b.CertificateArnParam.ValueAsString(),
			},
		},
		DefaultActions: &[]interface{}{
			&awselasticloadbalancingv2.CfnListener_ActionProperty{
				Type:           jsii.String("forward"),
				TargetGroupArn: b.TargetGroup.Ref(),
			},
		},
		LoadBalancerArn: b.LoadBalancer.Ref(),
		Port:            jsii.Number(443),
		Protocol:        jsii.String("HTTPS"),
	})
	b.HttpsListener.OverrideLogicalId(jsii.String(id + "HttpsListener"))

	props.Asg.Asg.SetTargetGroupArns(&[]*string{b.TargetGroup.Ref()})

	return b
}

// DnsName returns the DNS name of the load balancer.
func (b *Alb) DnsName() *string {
	return b.LoadBalancer.AttrDnsName()
}

// ParameterGroups implements MetadataProvider.
func (b *Alb) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("ALB Configuration", b.CertificateArnParam, b.IngressCidrParam)}
}

// ParameterLabels implements MetadataProvider.
func (b *Alb) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(b.CertificateArnParam): {Default: "ALB ACM Certificate ARN"},
		lid(b.IngressCidrParam):    {Default: "ALB Ingress CIDR"},
	}
}
