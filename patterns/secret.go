package patterns

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Characters left out of generated passwords.
const (
	excludedDbSecretCharacters = `"@/\"'$,[]*?{}~\#%<>|^`
	excludedSecretCharacters   = `"@/\"'$,[]*?{}~#%<>|^`
)

// SecretSource is implemented by constructs that hand out the ARN of a
// Secrets Manager secret holding "username" and "password" keys.
type SecretSource interface {
	SecretArn() *string
}

// DbSecret is the database credentials secret, either given by ARN or
// generated with the username "dbadmin".
type DbSecret struct {
	constructs.Construct

	ArnParam              awscdk.CfnParameter
	ArnExistsCondition    awscdk.CfnCondition
	ArnNotExistsCondition awscdk.CfnCondition
	Secret                awssecretsmanager.CfnSecret
	ArnSsmParameter       awsssm.CfnParameter
}

// NewDbSecret creates the database secret.
func NewDbSecret(scope constructs.Construct, id string) *DbSecret {
	s := &DbSecret{Construct: constructs.NewConstruct(scope, jsii.String(id))}

	s.ArnParam = newParam(s, id+"Arn", "Optional: SecretsManager secret ARN used to store database credentials and other configuration. If not specified, a secret will be created.", paramOpts{Default: ""})
	s.ArnExistsCondition = newCondition(s, id+"ArnExistsCondition", isNotEmpty(s.ArnParam))
	s.ArnNotExistsCondition = newCondition(s, id+"ArnNotExistsCondition", isEmpty(s.ArnParam))

	s.Secret = newGeneratedSecret(s, "DbSecret", "dbadmin", 0, excludedDbSecretCharacters,
		jsii.String(fmt.Sprintf("%s/db/secret", *awscdk.Aws_STACK_NAME())))
	s.Secret.CfnOptions().SetCondition(s.ArnNotExistsCondition)
	s.Secret.OverrideLogicalId(jsii.String(id))

	s.ArnSsmParameter = awsssm.NewCfnParameter(s, jsii.String("ArnParameter"), &awsssm.CfnParameterProps{
		Type:  jsii.String("String"),
		Value: s.SecretArn(),
		Name:  jsii.String(*awscdk.Aws_STACK_NAME() + "-db-secret-arn"),
	})
	s.ArnSsmParameter.OverrideLogicalId(jsii.String(id + "ArnParameter"))

	return s
}

// SecretArn returns the given or the created secret ARN.
func (s *DbSecret) SecretArn() *string {
	return ifString(s.ArnExistsCondition, s.ArnParam.ValueAsString(), s.Secret.Ref())
}

// ParameterGroups implements MetadataProvider. The ARN parameter is listed by
// the database construct that consumes the secret.
func (s *DbSecret) ParameterGroups() []ParameterGroup { return nil }

// ParameterLabels implements MetadataProvider.
func (s *DbSecret) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(s.ArnParam): {Default: "Database Secret ARN"},
	}
}

// SecretProps configures a Secret.
type SecretProps struct {
	// PasswordLength of the generated password. Defaults to 32.
	PasswordLength int
	// Username stored next to the password. Defaults to "admin".
	Username string
}

// Secret is a generic credentials secret named after the construct id.
type Secret struct {
	constructs.Construct

	id string

	ArnParam              awscdk.CfnParameter
	ArnExistsCondition    awscdk.CfnCondition
	ArnNotExistsCondition awscdk.CfnCondition
	Secret                awssecretsmanager.CfnSecret
	ArnSsmParameter       awsssm.CfnParameter
}

// NewSecret creates the secret. A nil props uses the defaults.
func NewSecret(scope constructs.Construct, id string, props *SecretProps) *Secret {
	p := SecretProps{}
	if props != nil {
		p = *props
	}
	if p.PasswordLength == 0 {
		p.PasswordLength = 32
	}
	if p.Username == "" {
		p.Username = "admin"
	}

	s := &Secret{Construct: constructs.NewConstruct(scope, jsii.String(id)), id: id}
	lower := strings.ToLower(id)

	s.ArnParam = newParam(s, id+"Arn", fmt.Sprintf("Optional: Secrets Manager Secret ARN used to store %s credentials. If not specified, a secret will be created.", id), paramOpts{Default: ""})
	s.ArnExistsCondition = newCondition(s, id+"SecretArnExistsCondition", isNotEmpty(s.ArnParam))
	s.ArnNotExistsCondition = newCondition(s, id+"SecretArnNotExistsCondition", isEmpty(s.ArnParam))

	s.Secret = newGeneratedSecret(s, "Secret", p.Username, p.PasswordLength, excludedSecretCharacters,
		jsii.String(fmt.Sprintf("%s/%s/secret", *awscdk.Aws_STACK_NAME(), lower)))
	s.Secret.CfnOptions().SetCondition(s.ArnNotExistsCondition)
	s.Secret.OverrideLogicalId(jsii.String(id + "Secret"))

	s.ArnSsmParameter = awsssm.NewCfnParameter(s, jsii.String("SecretArnParameter"), &awsssm.CfnParameterProps{
		Type:  jsii.String("String"),
		Value: s.SecretArn(),
		Name:  jsii.String(fmt.Sprintf("%s-%s-secret-arn", *awscdk.Aws_STACK_NAME(), lower)),
	})
	s.ArnSsmParameter.OverrideLogicalId(jsii.String(id + "SecretArnParameter"))

	return s
}

// SecretArn returns the given or the created secret ARN.
func (s *Secret) SecretArn() *string {
	return ifString(s.ArnExistsCondition, s.ArnParam.ValueAsString(), s.Secret.Ref())
}

// ParameterGroups implements MetadataProvider.
func (s *Secret) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group(s.id+" Secret Configuration", s.ArnParam)}
}

// ParameterLabels implements MetadataProvider.
func (s *Secret) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(s.ArnParam): {Default: s.id + " Secret ARN"},
	}
}

// newGeneratedSecret creates a secret whose "password" key is generated and
// whose template holds the username. A zero length keeps the service default.
func newGeneratedSecret(scope constructs.Construct, id, username string, length int, exclude string, name *string) awssecretsmanager.CfnSecret {
	quoted, _ := json.Marshal(username)
	template := fmt.Sprintf(`{"username": %s}`, quoted)

	gen := &awssecretsmanager.CfnSecret_GenerateSecretStringProperty{
		ExcludeCharacters:    jsii.String(exclude),
		ExcludePunctuation:   jsii.Bool(true),
		GenerateStringKey:    jsii.String("password"),
		SecretStringTemplate: jsii.String(template),
	}
	if length > 0 {
		gen.PasswordLength = jsii.Number(length)
	}

	return awssecretsmanager.NewCfnSecret(scope, jsii.String(id), &awssecretsmanager.CfnSecretProps{
		GenerateSecretString: gen,
		Name:                 name,
	})
}
