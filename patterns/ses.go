package patterns

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsses"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/samber/lo"
)

// GenerateSmtpPasswordType is the custom resource type served by
// cmd/lambda-generate-smtp-password.
const GenerateSmtpPasswordType = "Custom::GenerateSmtpPassword"

const dkimRecordTTL = "300"

// SesProps configures Ses.
type SesProps struct {
	// HostedZoneName is the domain of the identity, without trailing dot.
	HostedZoneName            string
	AdditionalIAMUserPolicies []*awsiam.CfnUser_PolicyProperty
	// GenerateSMTPPasswordCode is the SMTP password function.
	GenerateSMTPPasswordCode awslambda.Code
}

// Ses verifies a domain identity with DKIM and provisions an IAM user whose
// SMTP credentials are stored in the secret "${StackName}/instance/credentials".
type Ses struct {
	constructs.Construct

	InstanceUserAccessKeySerialParam awscdk.CfnParameter
	CreateDomainIdentityParam        awscdk.CfnParameter
	CreateDomainIdentityCondition    awscdk.CfnCondition

	DomainIdentity        awsses.CfnEmailIdentity
	DkimRecordSets        []awsroute53.CfnRecordSet
	InstanceUser          awsiam.CfnUser
	InstanceUserAccessKey awsiam.CfnAccessKey
	GenerateSMTPPassword  *nativeFunction
	SMTPPasswordResource  awscdk.CustomResource
}

// NewSes creates the identity, the user and the credentials secret.
func NewSes(scope constructs.Construct, id string, props SesProps) *Ses {
	if props.HostedZoneName == "" {
		panic("invalid stack configuration: Ses requires a hosted zone name")
	}

	s := &Ses{Construct: constructs.NewConstruct(scope, jsii.String(id))}

	s.InstanceUserAccessKeySerialParam = newParam(s, id+"InstanceUserAccessKeySerial", "Optional: Incrementing this integer value will trigger a rotation of the Instance User Access Key.", paramOpts{
		Default: "1", Type: "Number",
	})
	s.CreateDomainIdentityParam = newParam(s, id+"CreateDomainIdentity", "Optional: If 'true', a SES Domain Identity will be created from the hosted zone.", paramOpts{
		AllowedValues: []string{"true", "false"},
		Default:       "true",
	})
	s.CreateDomainIdentityCondition = newCondition(s, id+"CreateDomainIdentityCondition", isTrue(s.CreateDomainIdentityParam))

	s.DomainIdentity = awsses.NewCfnEmailIdentity(s, jsii.String("DomainIdentity"), &awsses.CfnEmailIdentityProps{
		EmailIdentity: jsii.String(props.HostedZoneName),
	})
	s.DomainIdentity.CfnOptions().SetCondition(s.CreateDomainIdentityCondition)
	s.DomainIdentity.OverrideLogicalId(jsii.String(id + "DomainIdentity"))

	tokens := [][2]*string{
		{s.DomainIdentity.AttrDkimDnsTokenName1(), s.DomainIdentity.AttrDkimDnsTokenValue1()},
		{s.DomainIdentity.AttrDkimDnsTokenName2(), s.DomainIdentity.AttrDkimDnsTokenValue2()},
		{s.DomainIdentity.AttrDkimDnsTokenName3(), s.DomainIdentity.AttrDkimDnsTokenValue3()},
	}
	for i, t := range tokens {
		name := fmt.Sprintf("DkimDnsRecordSet%d", i+1)
		rs := awsroute53.NewCfnRecordSet(s, jsii.String(name), &awsroute53.CfnRecordSetProps{
			HostedZoneName:  jsii.String(props.HostedZoneName + "."),
			Name:            t[0],
			ResourceRecords: &[]*string{t[1]},
			Ttl:             jsii.String(dkimRecordTTL),
			Type:            jsii.String("CNAME"),
		})
		rs.CfnOptions().SetCondition(s.CreateDomainIdentityCondition)
		rs.OverrideLogicalId(jsii.String(id + name))
		s.DkimRecordSets = append(s.DkimRecordSets, rs)
	}

	userPolicies := append([]*awsiam.CfnUser_PolicyProperty{{
		PolicyName:     jsii.String("AllowSendEmail"),
		PolicyDocument: policyDocument(allow([]string{"ses:SendEmail", "ses:SendRawEmail"}, anyResource)),
	}}, props.AdditionalIAMUserPolicies...)
	s.InstanceUser = awsiam.NewCfnUser(s, jsii.String("InstanceUser"), &awsiam.CfnUserProps{
		Path:     jsii.String("/"),
		Policies: lo.ToPtr(lo.Map(userPolicies, func(p *awsiam.CfnUser_PolicyProperty, _ int) interface{} { return p })),
		UserName: jsii.String(fmt.Sprintf("%s-%s-instance", *awscdk.Aws_REGION(), *awscdk.Aws_STACK_NAME())),
	})
	s.InstanceUser.OverrideLogicalId(jsii.String(id + "InstanceUser"))

	s.InstanceUserAccessKey = awsiam.NewCfnAccessKey(s, jsii.String("InstanceUserAccessKey"), &awsiam.CfnAccessKeyProps{
		Serial:   s.InstanceUserAccessKeySerialParam.ValueAsNumber(),
		Status:   jsii.String("Active"),
		UserName: s.InstanceUser.Ref(),
	})
	s.InstanceUserAccessKey.OverrideLogicalId(jsii.String(id + "InstanceUserAccessKey"))
	s.InstanceUserAccessKey.AddDependency(s.InstanceUser)

	secretName := fmt.Sprintf("%s/instance/credentials", *awscdk.Aws_STACK_NAME())
	s.GenerateSMTPPassword = newNativeFunction(s, "GenerateSMTPPasswordLambda", nativeFunctionProps{
		LogicalID: id + "GenerateSMTPPasswordLambda",
		Code:      props.GenerateSMTPPasswordCode,
		Policies: []*awsiam.CfnRole_PolicyProperty{inlinePolicy(id+"InstanceUserCreateSecretPolicy",
			allow([]string{"secretsmanager:ListSecrets"}, anyResource),
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Effect:    awsiam.Effect_ALLOW,
				Actions:   jsii.Strings("secretsmanager:CreateSecret"),
				Resources: &[]*string{anyResource},
				Conditions: &map[string]interface{}{
					"StringEquals": map[string]interface{}{
						"secretsmanager:Name": []*string{jsii.String(secretName)},
					},
				},
			}),
			allow([]string{"secretsmanager:GetSecretValue", "secretsmanager:UpdateSecret"},
				jsii.String(fmt.Sprintf("arn:%s:secretsmanager:%s:%s:secret:%s-*",
					*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), secretName))),
		)},
	})

	s.SMTPPasswordResource = newCustomResource(s, "GenerateSMTPPasswordCustomResource", id+"GenerateSMTPPasswordCustomResource",
		GenerateSmtpPasswordType, s.GenerateSMTPPassword, map[string]interface{}{
			"access_key_id":     s.InstanceUserAccessKey.Ref(),
			"aws_region":        awscdk.Aws_REGION(),
			"secret_access_key": s.InstanceUserAccessKey.AttrSecretAccessKey(),
			"stack_name":        awscdk.Aws_STACK_NAME(),
		})

	return s
}

// SecretArn returns the ARN of the SMTP credentials secret.
func (s *Ses) SecretArn() *string {
	return s.SMTPPasswordResource.GetAttString(jsii.String("arn"))
}

// ParameterGroups implements MetadataProvider.
func (s *Ses) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("Simple Email Service Configuration",
		s.CreateDomainIdentityParam, s.InstanceUserAccessKeySerialParam)}
}

// ParameterLabels implements MetadataProvider.
func (s *Ses) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(s.CreateDomainIdentityParam):        {Default: "Create SES Domain Identity"},
		lid(s.InstanceUserAccessKeySerialParam): {Default: "Instance User Access Key Serial"},
	}
}
