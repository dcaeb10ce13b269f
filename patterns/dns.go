package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Dns optionally points a hostname in an existing Route 53 hosted zone at a
// load balancer.
type Dns struct {
	constructs.Construct

	id  string
	alb *Alb

	HostedZoneNameParam     awscdk.CfnParameter
	HostnameParam           awscdk.CfnParameter
	HostedZoneNameCondition awscdk.CfnCondition
	HostnameCondition       awscdk.CfnCondition

	// RecordSet and SiteUrlOutput are set by AddAlb.
	RecordSet     awsroute53.CfnRecordSet
	SiteUrlOutput awscdk.CfnOutput
}

// NewDns creates the DNS parameters and conditions.
func NewDns(scope constructs.Construct, id string) *Dns {
	d := &Dns{Construct: constructs.NewConstruct(scope, jsii.String(id)), id: id}

	d.HostedZoneNameParam = newParam(d, id+"Route53HostedZoneName", "Optional: Route 53 Hosted Zone name in which a DNS record will be created by this template. Must already exist and be the domain part of the Hostname parameter, without trailing dot. E.G. 'internal.mycompany.com'", paramOpts{Default: ""})
	d.HostnameParam = newParam(d, id+"Hostname", "Optional: The hostname to access the service. E.G. 'app.internal.mycompany.com'", paramOpts{
		AllowedPattern:        "^(?!.*/).*$",
		ConstraintDescription: "Hostname should not have any forward slashes",
		Default:               "",
	})
	d.HostedZoneNameCondition = newCondition(d, id+"Route53HostedZoneNameExists", isNotEmpty(d.HostedZoneNameParam))
	d.HostnameCondition = newCondition(d, id+"HostnameExists", isNotEmpty(d.HostnameParam))

	return d
}

// AddAlb creates a CNAME from the hostname to the load balancer and the site
// URL output. It must be called at most once.
func (d *Dns) AddAlb(alb *Alb) {
	if d.alb != nil {
		panic("invalid stack configuration: Dns is already bound to a load balancer")
	}
	d.alb = alb

	d.RecordSet = awsroute53.NewCfnRecordSet(d, jsii.String("RecordSet"), &awsroute53.CfnRecordSetProps{
		HostedZoneName:  jsii.String(*d.HostedZoneNameParam.ValueAsString() + "."),
		Name:            d.HostnameParam.ValueAsString(),
		ResourceRecords: &[]*string{alb.DnsName()},
		Type:            jsii.String("CNAME"),
		Ttl:             jsii.String("60"),
	})
	d.RecordSet.CfnOptions().SetCondition(d.HostedZoneNameCondition)
	d.RecordSet.OverrideLogicalId(jsii.String(d.id + "RecordSet"))

	d.SiteUrlOutput = newOutput(d, d.id+"SiteUrlOutput", "The URL Endpoint",
		ifString(d.HostnameCondition,
			"https://"+*d.HostnameParam.ValueAsString(),
			"https://"+*alb.DnsName()))
}

// Hostname returns the given hostname, falling back to the load balancer DNS
// name once AddAlb was called.
func (d *Dns) Hostname() *string {
	if d.alb == nil {
		return d.HostnameParam.ValueAsString()
	}
	return ifString(d.HostnameCondition, d.HostnameParam.ValueAsString(), d.alb.DnsName())
}

// ParameterGroups implements MetadataProvider.
func (d *Dns) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("DNS Configuration", d.HostedZoneNameParam, d.HostnameParam)}
}

// ParameterLabels implements MetadataProvider.
func (d *Dns) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(d.HostedZoneNameParam): {Default: "DNS Route 53 Hosted Zone Name"},
		lid(d.HostnameParam):       {Default: "DNS Hostname"},
	}
}
