package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// AssetsBucketProps configures an AssetsBucket.
type AssetsBucketProps struct {
	// AllowOpenCors allows GET from any origin.
	AllowOpenCors bool
	// ObjectOwnershipValue, e.g. "ObjectWriter", adds ownership controls.
	ObjectOwnershipValue string
	// RemovePublicAccessBlock turns off all four public access blocks.
	RemovePublicAccessBlock bool
}

// AssetsBucket is an encrypted bucket for uploaded application assets,
// either given by name or created and retained.
type AssetsBucket struct {
	constructs.Construct

	NameParam     awscdk.CfnParameter
	NameNotExists awscdk.CfnCondition
	Bucket        awss3.CfnBucket
	// UserPolicy grants an IAM user access to the bucket.
	UserPolicy *awsiam.CfnUser_PolicyProperty
	// RolePolicy grants the same access to a role, e.g. through
	// AsgProps.AdditionalIAMRolePolicies.
	RolePolicy *awsiam.CfnRole_PolicyProperty
}

// NewAssetsBucket creates the bucket and its access policies.
func NewAssetsBucket(scope constructs.Construct, id string, props AssetsBucketProps) *AssetsBucket {
	b := &AssetsBucket{Construct: constructs.NewConstruct(scope, jsii.String(id))}

	b.NameParam = newParam(b, id+"Name", "Optional: The name of the S3 bucket to store uploaded assets. If not specified, a bucket will be created.", paramOpts{Default: ""})
	b.NameNotExists = newCondition(b, id+"NameNotExists", isEmpty(b.NameParam))

	bucketProps := &awss3.CfnBucketProps{
		AccessControl: jsii.String("Private"),
		BucketEncryption: &awss3.CfnBucket_BucketEncryptionProperty{
			ServerSideEncryptionConfiguration: &[]interface{}{
				&awss3.CfnBucket_ServerSideEncryptionRuleProperty{
					ServerSideEncryptionByDefault: &awss3.CfnBucket_ServerSideEncryptionByDefaultProperty{
						SseAlgorithm: jsii.String("AES256"),
					},
				},
			},
		},
	}
	if props.AllowOpenCors {
		bucketProps.CorsConfiguration = &awss3.CfnBucket_CorsConfigurationProperty{
			CorsRules: &[]interface{}{
				&awss3.CfnBucket_CorsRuleProperty{
					AllowedHeaders: jsii.Strings("*"),
					AllowedMethods: jsii.Strings("GET"),
					AllowedOrigins: jsii.Strings("*"),
					ExposedHeaders: &[]*string{},
				},
			},
		}
	}
	if props.ObjectOwnershipValue != "" {
		bucketProps.OwnershipControls = &awss3.CfnBucket_OwnershipControlsProperty{
			Rules: &[]interface{}{
				&awss3.CfnBucket_OwnershipControlsRuleProperty{
					ObjectOwnership: jsii.String(props.ObjectOwnershipValue),
				},
			},
		}
	}
	if props.RemovePublicAccessBlock {
		bucketProps.PublicAccessBlockConfiguration = &awss3.CfnBucket_PublicAccessBlockConfigurationProperty{
			BlockPublicAcls:       jsii.Bool(false),
			BlockPublicPolicy:     jsii.Bool(false),
			IgnorePublicAcls:      jsii.Bool(false),
			RestrictPublicBuckets: jsii.Bool(false),
		}
	}

	b.Bucket = awss3.NewCfnBucket(b, jsii.String("Bucket"), bucketProps)
	b.Bucket.OverrideLogicalId(jsii.String(id))
	b.Bucket.CfnOptions().SetCondition(b.NameNotExists)
	retain(b.Bucket)

	bucketArn := b.BucketArn()
	statements := []awsiam.PolicyStatement{
		allow([]string{"s3:*"}, jsii.String(*bucketArn+"/*")),
		allow([]string{"s3:GetBucketCORS", "s3:GetBucketLocation", "s3:ListBucket", "s3:PutBucketCORS"}, bucketArn),
	}
	b.UserPolicy = &awsiam.CfnUser_PolicyProperty{
		PolicyName:     jsii.String(id + "AllowBucket"),
		PolicyDocument: policyDocument(statements...),
	}
	b.RolePolicy = inlinePolicy(id+"AllowBucket", statements...)

	return b
}

// BucketName returns the created or the given bucket name.
func (b *AssetsBucket) BucketName() *string {
	return ifString(b.NameNotExists, b.Bucket.Ref(), b.NameParam.ValueAsString())
}

// BucketArn returns the ARN of BucketName.
func (b *AssetsBucket) BucketArn() *string {
	return arn(b, &awscdk.ArnComponents{
		Account:  jsii.String(""),
		Region:   jsii.String(""),
		Resource: b.BucketName(),
		Service:  jsii.String("s3"),
	})
}

// ParameterGroups implements MetadataProvider.
func (b *AssetsBucket) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("Assets Bucket Configuration", b.NameParam)}
}

// ParameterLabels implements MetadataProvider.
func (b *AssetsBucket) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(b.NameParam): {Default: "Assets Bucket Name"},
	}
}
