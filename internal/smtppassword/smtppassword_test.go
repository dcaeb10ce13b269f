package smtppassword_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/caarlos0/env/v10"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/plexusone/patterns-aws-cdk/internal/lambdaapp"
	"github.com/plexusone/patterns-aws-cdk/internal/smtppassword"
	"go.uber.org/fx"
)

func TestSMTPPassword(t *testing.T) {
	t.Parallel()
	RegisterFailHandler(Fail)
	RunSpecs(t, "internal/smtppassword")
}

const (
	secretKey    = "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"
	euWestPasswd = "BMW5RDrXmmVs0lV7GpI4oLkHXpZ4stDsk6q91z1g38Pk"
	secretArn    = "arn:aws:secretsmanager:eu-west-1:123456789012:secret:my-stack/instance/credentials-AbCdEf"
	storedValue  = `{"access_key_id":"AKIAEXAMPLE","secret_access_key":"` + secretKey + `","smtp_password":"` + euWestPasswd + `"}`
)

type fakeSecretsManager struct {
	created   *secretsmanager.CreateSecretInput
	listed    *secretsmanager.ListSecretsInput
	updated   *secretsmanager.UpdateSecretInput
	createErr error
	list      []types.SecretListEntry
	current   string
}

func (f *fakeSecretsManager) CreateSecret(_ context.Context, in *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.created = in
	if f.createErr != nil {
		return nil, f.createErr
	}

	return &secretsmanager.CreateSecretOutput{ARN: aws.String(secretArn), Name: in.Name}, nil
}

func (f *fakeSecretsManager) ListSecrets(_ context.Context, in *secretsmanager.ListSecretsInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	f.listed = in
	return &secretsmanager.ListSecretsOutput{SecretList: f.list}, nil
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return &secretsmanager.GetSecretValueOutput{ARN: in.SecretId, SecretString: aws.String(f.current)}, nil
}

func (f *fakeSecretsManager) UpdateSecret(_ context.Context, in *secretsmanager.UpdateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	f.updated = in
	return &secretsmanager.UpdateSecretOutput{ARN: in.SecretId}, nil
}

var _ = Describe("smtp password", func() {
	It("should derive the password with the ses signing chain", func() {
		Expect(smtppassword.SMTPPassword(secretKey, "us-east-1")).To(Equal("BLBM/9hSUELfq8Gw+rU1YcBjkOxGbhT2XG763xVLGWL9"))
		Expect(smtppassword.SMTPPassword(secretKey, "eu-west-1")).To(Equal(euWestPasswd))
	})

	It("should name the secret after the stack", func() {
		Expect(smtppassword.SecretName("my-stack")).To(Equal("my-stack/instance/credentials"))
	})
})

var _ = Describe("handler", func() {
	var fake *fakeSecretsManager
	var fn cfn.CustomResourceFunction

	BeforeEach(func(ctx context.Context) {
		fake = &fakeSecretsManager{}
		app := fx.New(
			fx.Supply(env.Options{Environment: map[string]string{"LAMBDA_LOG_LEVEL": "debug"}}),
			lambdaapp.Test(smtppassword.Provide()),
			fx.Decorate(func(smtppassword.SecretsManager) smtppassword.SecretsManager { return fake }),
			fx.Populate(&fn),
		)
		Expect(app.Start(ctx)).To(Succeed())
		DeferCleanup(app.Stop)
	})

	event := func(rt cfn.RequestType) cfn.Event {
		return cfn.Event{
			RequestType:  rt,
			ResourceType: smtppassword.ResourceType,
			ResourceProperties: map[string]any{
				"ServiceToken":      "arn:aws:lambda:eu-west-1:123456789012:function:fn",
				"access_key_id":     "AKIAEXAMPLE",
				"secret_access_key": secretKey,
				"aws_region":        "eu-west-1",
				"stack_name":        "my-stack",
			},
		}
	}

	It("should create the secret", func(ctx context.Context) {
		prid, data, err := fn(ctx, event(cfn.RequestCreate))
		Expect(err).ToNot(HaveOccurred())
		Expect(prid).To(Equal(secretArn))
		Expect(data).To(Equal(map[string]any{"arn": secretArn}))
		Expect(aws.ToString(fake.created.Name)).To(Equal("my-stack/instance/credentials"))
		Expect(aws.ToString(fake.created.SecretString)).To(MatchJSON(storedValue))
		Expect(fake.listed).To(BeNil())
	})

	Context("when the secret exists", func() {
		BeforeEach(func() {
			fake.createErr = &types.ResourceExistsException{Message: aws.String("exists")}
			fake.list = []types.SecretListEntry{
				{Name: aws.String("my-stack/instance/credentials-old"), ARN: aws.String("arn:other")},
				{Name: aws.String("my-stack/instance/credentials"), ARN: aws.String(secretArn)},
			}
		})

		It("should leave an identical value alone", func(ctx context.Context) {
			fake.current = storedValue

			prid, data, err := fn(ctx, event(cfn.RequestCreate))
			Expect(err).ToNot(HaveOccurred())
			Expect(prid).To(Equal(secretArn))
			Expect(data).To(HaveKeyWithValue("arn", secretArn))
			Expect(fake.listed.Filters[0].Key).To(Equal(types.FilterNameStringTypeName))
			Expect(fake.listed.Filters[0].Values).To(Equal([]string{"my-stack/instance/credentials"}))
			Expect(fake.updated).To(BeNil())
		})

		It("should update a different value", func(ctx context.Context) {
			fake.current = `{"access_key_id":"AKIAROTATED"}`

			_, _, err := fn(ctx, event(cfn.RequestUpdate))
			Expect(err).ToNot(HaveOccurred())
			Expect(aws.ToString(fake.updated.SecretId)).To(Equal(secretArn))
			Expect(aws.ToString(fake.updated.SecretString)).To(MatchJSON(storedValue))
		})

		It("should fail when the secret is not listed", func(ctx context.Context) {
			fake.list = nil

			_, _, err := fn(ctx, event(cfn.RequestCreate))
			Expect(err).To(MatchError(ContainSubstring("exists but is not listed")))
		})
	})

	It("should pass on other create errors", func(ctx context.Context) {
		fake.createErr = errors.New("access denied")

		_, _, err := fn(ctx, event(cfn.RequestCreate))
		Expect(err).To(MatchError(ContainSubstring("failed to create secret my-stack/instance/credentials: access denied")))
	})

	It("should require the stack name", func(ctx context.Context) {
		ev := event(cfn.RequestCreate)
		delete(ev.ResourceProperties, "stack_name")

		_, _, err := fn(ctx, ev)
		Expect(err).To(MatchError(ContainSubstring("Field validation for 'StackName'")))
	})

	It("should keep the secret on delete", func(ctx context.Context) {
		ev := event(cfn.RequestDelete)
		ev.PhysicalResourceID = secretArn

		prid, _, err := fn(ctx, ev)
		Expect(err).ToNot(HaveOccurred())
		Expect(prid).To(Equal(secretArn))
		Expect(fake.created).To(BeNil())
	})
})
