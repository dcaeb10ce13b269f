package patterns_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/plexusone/patterns-aws-cdk/patterns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("secret", func() {
	var stack awscdk.Stack

	BeforeEach(func() {
		stack = newTestStack()
	})

	It("should generate secrets and publish their arns", func() {
		patterns.NewSecret(stack, "DB", nil)
		patterns.NewSecret(stack, "RabbitMQ", &patterns.SecretProps{Username: "rabbitmq"})

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::SSM::Parameter"), jsii.Number(2))
		tmpl.ResourceCountIs(jsii.String("AWS::SecretsManager::Secret"), jsii.Number(2))
		tmpl.HasResourceProperties(jsii.String("AWS::SecretsManager::Secret"), map[string]any{
			"GenerateSecretString": map[string]any{
				"SecretStringTemplate": jsii.String(`{"username": "admin"}`),
				"GenerateStringKey":    jsii.String("password"),
				"PasswordLength":       jsii.Number(32),
				"ExcludePunctuation":   jsii.Bool(true),
				"ExcludeCharacters":    jsii.String(`"@/\"'$,[]*?{}~#%<>|^`),
			},
		})
		tmpl.HasResourceProperties(jsii.String("AWS::SecretsManager::Secret"), map[string]any{
			"GenerateSecretString": map[string]any{
				"SecretStringTemplate": jsii.String(`{"username": "rabbitmq"}`),
			},
		})
		tmpl.HasResource(jsii.String("AWS::SecretsManager::Secret"), map[string]any{
			"Condition": jsii.String("RabbitMQSecretArnNotExistsCondition"),
		})
		tmpl.HasParameter(jsii.String("RabbitMQArn"), map[string]any{"Default": jsii.String("")})
	})

	It("should store a custom username", func() {
		s := patterns.NewSecret(stack, "Custom", &patterns.SecretProps{Username: "customuser", PasswordLength: 16})
		Expect(s.SecretArn()).ToNot(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::SSM::Parameter"), jsii.Number(1))
		tmpl.HasResourceProperties(jsii.String("AWS::SecretsManager::Secret"), map[string]any{
			"GenerateSecretString": map[string]any{
				"SecretStringTemplate": jsii.String(`{"username": "customuser"}`),
				"PasswordLength":       jsii.Number(16),
			},
		})
		tmpl.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]any{
			"Type": jsii.String("String"),
			"Value": map[string]any{
				"Fn::If": []any{
					"CustomSecretArnExistsCondition",
					map[string]any{"Ref": "CustomArn"},
					map[string]any{"Ref": "CustomSecret"},
				},
			},
		})
	})

	It("should create the database secret for dbadmin", func() {
		patterns.NewDbSecret(stack, "DbSecret")

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::SSM::Parameter"), jsii.Number(1))
		tmpl.HasResource(jsii.String("AWS::SecretsManager::Secret"), map[string]any{
			"Condition": jsii.String("DbSecretArnNotExistsCondition"),
			"Properties": map[string]any{
				"GenerateSecretString": map[string]any{
					"SecretStringTemplate": jsii.String(`{"username": "dbadmin"}`),
					"ExcludeCharacters":    jsii.String(`"@/\"'$,[]*?{}~\#%<>|^`),
				},
			},
		})
		Expect(resources(tmpl)).To(HaveKey("DbSecretArnParameter"))
	})
})
