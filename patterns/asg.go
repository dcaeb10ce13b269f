package patterns

import (
	_ "embed"
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsbackup"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

//go:embed scripts/attach_ebs.sh
var attachEbsScript string

const twoYearsInDays = 731

// SubnetToAzType is the custom resource type served by
// cmd/lambda-subnet-to-az.
const SubnetToAzType = "Custom::SubnetToAz"

// AsgProps configures an Asg.
type AsgProps struct {
	// AmiID is the default of the AmiId parameter.
	AmiID string
	Vpc   *Vpc

	AdditionalIAMRolePolicies []*awsiam.CfnRole_PolicyProperty
	AllowAssociateAddress     bool
	// AllowUpdateSecret lets instances update "${StackName}/instance/credentials".
	AllowUpdateSecret bool

	// AllowedInstanceTypes replaces the filtered default list when set.
	AllowedInstanceTypes     []string
	DefaultInstanceType      string
	ExcludedInstanceFamilies []string
	ExcludedInstanceSizes    []string

	// CreateAndUpdateTimeoutMinutes defaults to 15.
	CreateAndUpdateTimeoutMinutes int
	DeploymentRollingUpdate       bool
	// HealthCheckType defaults to "EC2".
	HealthCheckType      string
	NotificationTopicArn *string
	PipelineBucketArn    *string
	// RootVolumeDeviceName defaults to "/dev/sda1".
	RootVolumeDeviceName string
	// RootVolumeSize in GiB. Zero keeps the AMI's root volume.
	RootVolumeSize float64
	SecretArns     []*string
	Singleton      bool
	UseDataVolume  bool
	// UseGraviton defaults to true.
	UseGraviton      *bool
	UsePublicSubnets bool

	// UserDataContents is passed through Fn::Sub with UserDataVariables.
	UserDataContents  string
	UserDataVariables map[string]*string

	// SubnetToAzCode is the subnet-to-AZ function. Required with UseDataVolume.
	SubnetToAzCode awslambda.Code
}

// Asg is an Auto Scaling Group behind a launch template, with its instance
// role, security group, log groups, disk alarms and an optional data volume.
type Asg struct {
	constructs.Construct

	id    string
	props AsgProps

	InstanceTypeParam            awscdk.CfnParameter
	AmiIDParam                   awscdk.CfnParameter
	KeyNameParam                 awscdk.CfnParameter
	KeyNameCondition             awscdk.CfnCondition
	ReprovisionStringParam       awscdk.CfnParameter
	DesiredCapacityParam         awscdk.CfnParameter
	MaxSizeParam                 awscdk.CfnParameter
	MinSizeParam                 awscdk.CfnParameter
	DiskUsageAlarmThresholdParam awscdk.CfnParameter

	AppLogGroup     awslogs.CfnLogGroup
	SystemLogGroup  awslogs.CfnLogGroup
	InstanceRole    awsiam.CfnRole
	Sg              awsec2.CfnSecurityGroup
	InstanceProfile awsiam.CfnInstanceProfile
	LaunchTemplate  awsec2.CfnLaunchTemplate
	Asg             awsautoscaling.CfnAutoScalingGroup
	RootDiskAlarm   awscloudwatch.CfnAlarm
	DataDiskAlarm   awscloudwatch.CfnAlarm

	DataVolume *AsgDataVolume
}

// AsgDataVolume holds the persistent EBS volume and its backup resources.
type AsgDataVolume struct {
	SubnetToAz     *nativeFunction
	SubnetToAzCR   awscdk.CustomResource
	SizeParam      awscdk.CfnParameter
	SnapshotParam  awscdk.CfnParameter
	SnapshotCond   awscdk.CfnCondition
	Volume         awsec2.CfnVolume
	RetentionParam awscdk.CfnParameter
	VaultArnParam  awscdk.CfnParameter
	VaultArnExists awscdk.CfnCondition
	VaultArnAbsent awscdk.CfnCondition
	Vault          awsbackup.CfnBackupVault
	Plan           awsbackup.CfnBackupPlan
	Selection      awsbackup.CfnBackupSelection
}

// NewAsg creates the Auto Scaling Group.
func NewAsg(scope constructs.Construct, id string, props AsgProps) *Asg {
	if props.Vpc == nil {
		panic("invalid stack configuration: Asg requires a Vpc")
	}
	if props.CreateAndUpdateTimeoutMinutes == 0 {
		props.CreateAndUpdateTimeoutMinutes = 15
	}
	if props.HealthCheckType == "" {
		props.HealthCheckType = "EC2"
	}
	if props.RootVolumeDeviceName == "" {
		props.RootVolumeDeviceName = "/dev/sda1"
	}
	if props.UserDataVariables == nil {
		props.UserDataVariables = map[string]*string{}
	}

	a := &Asg{
		Construct: constructs.NewConstruct(scope, jsii.String(id)),
		id:        id,
		props:     props,
	}

	a.createParameters()
	a.createLogGroups()
	a.createInstanceRole()

	a.Sg = newSecurityGroup(a, "Sg", id+"Sg", id+" security group", props.Vpc.ID())

	a.InstanceProfile = awsiam.NewCfnInstanceProfile(a, jsii.String("InstanceProfile"), &awsiam.CfnInstanceProfileProps{
		Roles: &[]*string{a.InstanceRole.Ref()},
	})
	a.InstanceProfile.OverrideLogicalId(jsii.String(id + "InstanceProfile"))

	a.DiskUsageAlarmThresholdParam = newParam(a, id+"DiskUsageAlarmThreshold", "Required: The alarm threshold for disk usage percentage.", paramOpts{
		Default:  80,
		MinValue: jsii.Number(0),
		MaxValue: jsii.Number(100),
		Type:     "Number",
	})

	if props.UseDataVolume {
		a.createDataVolume()
	}

	a.createLaunchTemplate()
	a.createAutoScalingGroup()
	a.createAlarms()

	if props.UseDataVolume {
		newOutput(a, id+"DataVolumeBackupVaultArnOutput", "The data volume AWS Backup Vault ARN", a.DataVolumeBackupVaultArn())
	}

	return a
}

// useGraviton reports whether the arm64 instance list applies.
func (p AsgProps) useGraviton() bool {
	return p.UseGraviton == nil || *p.UseGraviton
}

// InstanceTypeDefaults returns the default instance type and allowed list
// for the given props.
func (p AsgProps) InstanceTypeDefaults() (string, []string) {
	def, list := "t4g.small", GravitonInstanceTypes
	if !p.useGraviton() {
		def, list = "t3.micro", StandardInstanceTypes
	}
	if p.DefaultInstanceType != "" {
		def = p.DefaultInstanceType
	}
	filtered := FilterInstanceTypes(list, p.ExcludedInstanceFamilies, p.ExcludedInstanceSizes)
	return def, allowedOrDefault(p.AllowedInstanceTypes, filtered)
}

func (a *Asg) createParameters() {
	id := a.id
	def, allowed := a.props.InstanceTypeDefaults()

	a.InstanceTypeParam = newParam(a, id+"InstanceType", "Required: The EC2 instance type for the application Auto Scaling Group.", paramOpts{
		AllowedValues: allowed,
		Default:       def,
	})
	a.AmiIDParam = newParam(a, id+"AmiId", "Required: The AMI id for the application Auto Scaling Group.", paramOpts{
		Default: a.props.AmiID,
	})
	a.KeyNameParam = newParam(a, id+"KeyName", "Optional: The EC2 key pair name for the instance.", paramOpts{Default: ""})
	a.KeyNameCondition = newCondition(a, id+"KeyNameCondition", isNotEmpty(a.KeyNameParam))
	a.ReprovisionStringParam = newParam(a, id+"ReprovisionString", "Optional: Changes to this parameter will force instance reprovision on the next CloudFormation update.", paramOpts{Default: ""})

	if a.props.Singleton {
		return
	}
	a.DesiredCapacityParam = newParam(a, id+"DesiredCapacity", "Required: The desired capacity of the Auto Scaling Group.", paramOpts{
		Default: 1, MinValue: jsii.Number(0), Type: "Number",
	})
	a.MaxSizeParam = newParam(a, id+"MaxSize", "Required: The maximum size of the Auto Scaling Group.", paramOpts{
		Default: 2, MinValue: jsii.Number(0), Type: "Number",
	})
	a.MinSizeParam = newParam(a, id+"MinSize", "Required: The minimum size of the Auto Scaling Group.", paramOpts{
		Default: 1, MinValue: jsii.Number(0), Type: "Number",
	})
}

func (a *Asg) createLogGroups() {
	newLogGroup := func(name string) awslogs.CfnLogGroup {
		lg := awslogs.NewCfnLogGroup(a, jsii.String(name), &awslogs.CfnLogGroupProps{
			RetentionInDays: jsii.Number(twoYearsInDays),
		})
		retain(lg)
		lg.OverrideLogicalId(jsii.String(a.id + name))
		return lg
	}
	a.AppLogGroup = newLogGroup("AppLogGroup")
	a.SystemLogGroup = newLogGroup("SystemLogGroup")
}

func (a *Asg) createInstanceRole() {
	p := a.props

	rolePolicies := []*awsiam.CfnRole_PolicyProperty{
		inlinePolicy("AllowStreamMetricsToCloudWatch", allow([]string{
			"ec2:DescribeVolumes",
			"ec2:DescribeTags",
			"cloudwatch:GetMetricStatistics",
			"cloudwatch:ListMetrics",
			"cloudwatch:PutMetricData",
		}, anyResource)),
		inlinePolicy("AllowDescribeAutoScaling", allow([]string{"autoscaling:Describe*"}, anyResource)),
		inlinePolicy("AllowStreamLogsToCloudWatch", allow([]string{
			"logs:CreateLogStream",
			"logs:DescribeLogStreams",
			"logs:PutLogEvents",
		}, a.SystemLogGroup.AttrArn(), a.AppLogGroup.AttrArn())),
	}
	if p.AllowAssociateAddress {
		rolePolicies = append(rolePolicies, inlinePolicy("AllowAssociateAddress",
			allow([]string{"ec2:AssociateAddress"}, anyResource)))
	}
	if p.AllowUpdateSecret {
		rolePolicies = append(rolePolicies, inlinePolicy("AllowUpdateInstanceSecret",
			allow([]string{"secretsmanager:UpdateSecret"}, jsii.String(fmt.Sprintf(
				"arn:%s:secretsmanager:%s:%s:secret:%s/instance/credentials-*",
				*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), *awscdk.Aws_STACK_NAME())))))
	}
	if p.UseDataVolume {
		rolePolicies = append(rolePolicies, inlinePolicy("AllowAttachVolume",
			allow([]string{"ec2:AttachVolume", "ec2:DescribeVolumes"}, anyResource)))
	}
	if p.PipelineBucketArn != nil {
		rolePolicies = append(rolePolicies, inlinePolicy("AllowReadFromPipelineBucket",
			allow([]string{"s3:Get*", "s3:Head*"}, p.PipelineBucketArn)))
	}
	if len(p.SecretArns) > 0 {
		rolePolicies = append(rolePolicies, inlinePolicy("AllowReadFromSecretsManager",
			allow([]string{"secretsmanager:ListSecrets"}, anyResource),
			allow([]string{"secretsmanager:GetSecretValue"}, p.SecretArns...)))
	}
	rolePolicies = append(rolePolicies, p.AdditionalIAMRolePolicies...)

	a.InstanceRole = awsiam.NewCfnRole(a, jsii.String("InstanceRole"), &awsiam.CfnRoleProps{
		AssumeRolePolicyDocument: assumeRoleDocument("ec2.amazonaws.com"),
		Policies:                 policies(rolePolicies),
		ManagedPolicyArns:        jsii.Strings("arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore"),
	})
	a.InstanceRole.OverrideLogicalId(jsii.String(a.id + "InstanceRole"))
}

func (a *Asg) createDataVolume() {
	id := a.id
	d := &AsgDataVolume{}
	a.DataVolume = d

	subnet := a.props.Vpc.PrivateSubnet1ID()
	if a.props.UsePublicSubnets {
		subnet = a.props.Vpc.PublicSubnet1ID()
	}

	d.SubnetToAz = newNativeFunction(a, "SubnetToAzLambda", nativeFunctionProps{
		LogicalID: id + "SubnetToAzLambda",
		Code:      a.props.SubnetToAzCode,
		Policies: []*awsiam.CfnRole_PolicyProperty{
			inlinePolicy("AllowDescribeSubnets", allow([]string{"ec2:DescribeSubnets"}, anyResource)),
		},
	})
	d.SubnetToAzCR = newCustomResource(a, "SubnetToAzCustomResource", id+"SubnetToAzCustomResource",
		SubnetToAzType, d.SubnetToAz, map[string]interface{}{
			"aws_region": awscdk.Aws_REGION(),
			"subnet_id":  subnet,
		})

	d.SizeParam = newParam(a, id+"DataVolumeSize", "Required: Size of EBS data volume in GiBs.", paramOpts{
		Type: "Number", Default: "100",
	})
	d.SnapshotParam = newParam(a, id+"DataVolumeSnapshot", "Optional: An EBS snapshot id to restore as a starting point for the data volume.", paramOpts{Default: ""})
	d.SnapshotCond = newCondition(a, id+"DataVolumeSnapshotCondition", isNotEmpty(d.SnapshotParam))

	d.Volume = awsec2.NewCfnVolume(a, jsii.String("DataVolume"), &awsec2.CfnVolumeProps{
		AvailabilityZone: d.SubnetToAzCR.GetAttString(jsii.String("az")),
		Encrypted:        jsii.Bool(true),
		SnapshotId:       orNoValue(d.SnapshotCond, d.SnapshotParam.ValueAsString()),
		Size:             d.SizeParam.ValueAsNumber(),
		VolumeType:       jsii.String("gp3"),
		Tags: &[]*awscdk.CfnTag{{
			Key:   jsii.String("Name"),
			Value: jsii.String(*awscdk.Aws_STACK_NAME() + "-pds"),
		}},
	})
	d.Volume.OverrideLogicalId(jsii.String(id + "DataVolume"))
	snapshot(d.Volume)

	d.RetentionParam = newParam(a, id+"DataVolumeBackupRetentionPeriod", "Required: The number of nightly EBS snapshots to retain.", paramOpts{
		Type: "Number", MinValue: jsii.Number(1), MaxValue: jsii.Number(35), Default: "7",
	})
	d.VaultArnParam = newParam(a, id+"DataVolumeBackupVaultArn", "Optional: An AWS Backup Vault ARN to use for storing EBS backups. If not specified, a vault will be created.", paramOpts{Default: ""})
	d.VaultArnExists = newCondition(a, id+"DataVolumeBackupVaultArnExistsCondition", isNotEmpty(d.VaultArnParam))
	d.VaultArnAbsent = newCondition(a, id+"DataVolumeBackupVaultArnNotExistsCondition", isEmpty(d.VaultArnParam))

	d.Vault = awsbackup.NewCfnBackupVault(a, jsii.String("DataVolumeBackupVault"), &awsbackup.CfnBackupVaultProps{
		BackupVaultName: AppendStackUUID(jsii.String("cfn-stack-id")),
	})
	d.Vault.CfnOptions().SetCondition(d.VaultArnAbsent)
	retain(d.Vault)
	d.Vault.OverrideLogicalId(jsii.String(id + "DataVolumeBackupVault"))

	schedule := awsevents.Schedule_Cron(&awsevents.CronOptions{Hour: jsii.String("3"), Minute: jsii.String("0")})
	d.Plan = awsbackup.NewCfnBackupPlan(a, jsii.String("DataVolumeBackupPlan"), &awsbackup.CfnBackupPlanProps{
		BackupPlan: &awsbackup.CfnBackupPlan_BackupPlanResourceTypeProperty{
			BackupPlanName: jsii.String(*awscdk.Aws_STACK_NAME() + "-backup-plan"),
			BackupPlanRule: &[]interface{}{
				&awsbackup.CfnBackupPlan_BackupRuleResourceTypeProperty{
					RuleName:           jsii.String(*awscdk.Aws_STACK_NAME() + "-backup-rule"),
					ScheduleExpression: schedule.ExpressionString(),
					TargetBackupVault:  a.DataVolumeBackupVaultName(),
					Lifecycle: &awsbackup.CfnBackupPlan_LifecycleResourceTypeProperty{
						DeleteAfterDays: d.RetentionParam.ValueAsNumber(),
					},
				},
			},
		},
	})
	d.Plan.OverrideLogicalId(jsii.String(id + "DataVolumeBackupPlan"))

	d.Selection = awsbackup.NewCfnBackupSelection(a, jsii.String("DataVolumeBackupSelection"), &awsbackup.CfnBackupSelectionProps{
		BackupPlanId: d.Plan.Ref(),
		BackupSelection: &awsbackup.CfnBackupSelection_BackupSelectionResourceTypeProperty{
			IamRoleArn:    jsii.String(fmt.Sprintf("arn:aws:iam::%s:role/service-role/AWSBackupDefaultServiceRole", *awscdk.Aws_ACCOUNT_ID())),
			SelectionName: jsii.String(*awscdk.Aws_STACK_NAME() + "-backup-selection"),
			Resources: &[]*string{
				jsii.String(fmt.Sprintf("arn:aws:ec2:%s:%s:volume/%s", *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), *d.Volume.Ref())),
			},
		},
	})
	d.Selection.OverrideLogicalId(jsii.String(id + "DataVolumeBackupSelection"))
}

// userData assembles the launch template user data. The attach script runs
// first when a data volume is used, and the reprovision string is appended
// so that changing it changes the launch template.
func (a *Asg) userData() *string {
	contents := a.props.UserDataContents
	vars := make(map[string]*string, len(a.props.UserDataVariables)+3)
	for k, v := range a.props.UserDataVariables {
		vars[k] = v
	}

	if a.DataVolume != nil {
		contents = attachEbsScript + contents
		vars["EbsId"] = a.DataVolume.Volume.Ref()
		vars["AsgId"] = jsii.String(a.id)
	}
	vars["IamRole"] = a.InstanceRole.Ref()

	snippet := fmt.Sprintf("# reprovision string: ${%s}", *a.ReprovisionStringParam.Node().Id())
	if contents == "" {
		contents = snippet
	} else {
		contents += "\n" + snippet
	}

	return awscdk.Fn_Base64(awscdk.Fn_Sub(jsii.String(contents), &vars))
}

func (a *Asg) createLaunchTemplate() {
	data := &awsec2.CfnLaunchTemplate_LaunchTemplateDataProperty{
		ImageId:      a.AmiIDParam.ValueAsString(),
		InstanceType: a.InstanceTypeParam.ValueAsString(),
		IamInstanceProfile: &awsec2.CfnLaunchTemplate_IamInstanceProfileProperty{
			Name: a.InstanceProfile.Ref(),
		},
		KeyName: orNoValue(a.KeyNameCondition, a.KeyNameParam.ValueAsString()),
		MetadataOptions: &awsec2.CfnLaunchTemplate_MetadataOptionsProperty{
			HttpTokens: jsii.String("required"),
		},
		SecurityGroupIds: &[]*string{a.Sg.AttrGroupId()},
		UserData:         a.userData(),
	}
	if a.props.RootVolumeSize > 0 {
		data.BlockDeviceMappings = &[]interface{}{
			&awsec2.CfnLaunchTemplate_BlockDeviceMappingProperty{
				DeviceName: jsii.String(a.props.RootVolumeDeviceName),
				Ebs: &awsec2.CfnLaunchTemplate_EbsProperty{
					Encrypted:  jsii.Bool(true),
					VolumeSize: jsii.Number(a.props.RootVolumeSize),
					VolumeType: jsii.String("gp3"),
				},
			},
		}
	}

	a.LaunchTemplate = awsec2.NewCfnLaunchTemplate(a, jsii.String("LaunchTemplate"), &awsec2.CfnLaunchTemplateProps{
		LaunchTemplateData: data,
	})
	a.LaunchTemplate.OverrideLogicalId(jsii.String(a.id + "LaunchTemplate"))
}

func (a *Asg) subnets() *[]*string {
	vpc := a.props.Vpc
	switch {
	case a.props.Singleton && a.props.UsePublicSubnets:
		return &[]*string{vpc.PublicSubnet1ID()}
	case a.props.Singleton:
		return &[]*string{vpc.PrivateSubnet1ID()}
	case a.props.UsePublicSubnets:
		return vpc.PublicSubnetIDs()
	default:
		return vpc.PrivateSubnetIDs()
	}
}

func (a *Asg) createAutoScalingGroup() {
	p := a.props
	timeout := jsii.String(fmt.Sprintf("PT%dM", p.CreateAndUpdateTimeoutMinutes))

	desired, maxSize, minSize := jsii.String("1"), jsii.String("1"), jsii.String("1")
	if !p.Singleton {
		desired = awscdk.Token_AsString(a.DesiredCapacityParam.Value(), nil)
		maxSize = awscdk.Token_AsString(a.MaxSizeParam.Value(), nil)
		minSize = awscdk.Token_AsString(a.MinSizeParam.Value(), nil)
	}

	a.Asg = awsautoscaling.NewCfnAutoScalingGroup(a, jsii.String("Asg"), &awsautoscaling.CfnAutoScalingGroupProps{
		LaunchTemplate: &awsautoscaling.CfnAutoScalingGroup_LaunchTemplateSpecificationProperty{
			LaunchTemplateId: a.LaunchTemplate.Ref(),
			Version:          a.LaunchTemplate.AttrLatestVersionNumber(),
		},
		DesiredCapacity:   desired,
		HealthCheckType:   jsii.String(p.HealthCheckType),
		MaxSize:           maxSize,
		MinSize:           minSize,
		VpcZoneIdentifier: a.subnets(),
	})
	a.Asg.OverrideLogicalId(jsii.String(a.id))

	opts := a.Asg.CfnOptions()
	opts.SetCreationPolicy(&awscdk.CfnCreationPolicy{
		ResourceSignal: &awscdk.CfnResourceSignal{
			Count:   jsii.Number(1),
			Timeout: timeout,
		},
	})
	switch {
	case p.Singleton:
		opts.SetUpdatePolicy(&awscdk.CfnUpdatePolicy{
			AutoScalingRollingUpdate: &awscdk.CfnAutoScalingRollingUpdate{
				MaxBatchSize:          jsii.Number(1),
				MinInstancesInService: jsii.Number(0),
				PauseTime:             timeout,
				WaitOnResourceSignals: jsii.Bool(true),
			},
		})
	case p.DeploymentRollingUpdate:
		opts.SetUpdatePolicy(&awscdk.CfnUpdatePolicy{
			AutoScalingRollingUpdate: &awscdk.CfnAutoScalingRollingUpdate{
				MinInstancesInService: awscdk.Token_AsNumber(a.MinSizeParam.Value()),
				PauseTime:             jsii.String("PT15M"),
				WaitOnResourceSignals: jsii.Bool(true),
			},
			AutoScalingScheduledAction: &awscdk.CfnAutoScalingScheduledAction{
				IgnoreUnmodifiedGroupSizeProperties: jsii.Bool(true),
			},
		})
	default:
		opts.SetUpdatePolicy(&awscdk.CfnUpdatePolicy{
			AutoScalingReplacingUpdate: &awscdk.CfnAutoScalingReplacingUpdate{
				WillReplace: jsii.Bool(true),
			},
		})
	}

	awscdk.Tags_Of(a.Asg).Add(jsii.String("Name"), stackScoped(a.id), nil)
}

func (a *Asg) createAlarms() {
	var actions *[]*string
	if a.props.NotificationTopicArn != nil {
		actions = &[]*string{a.props.NotificationTopicArn}
	}

	newAlarm := func(name, fstype, path string) awscloudwatch.CfnAlarm {
		alarm := awscloudwatch.NewCfnAlarm(a, jsii.String(name), &awscloudwatch.CfnAlarmProps{
			Namespace:  jsii.String("CWAgent"),
			MetricName: jsii.String("disk_used_percent"),
			Dimensions: &[]interface{}{
				&awscloudwatch.CfnAlarm_DimensionProperty{Name: jsii.String("AutoScalingGroupName"), Value: a.Asg.Ref()},
				&awscloudwatch.CfnAlarm_DimensionProperty{Name: jsii.String("fstype"), Value: jsii.String(fstype)},
				&awscloudwatch.CfnAlarm_DimensionProperty{Name: jsii.String("path"), Value: jsii.String(path)},
			},
			Statistic:          jsii.String("Average"),
			Period:             jsii.Number(300),
			EvaluationPeriods:  jsii.Number(1),
			Threshold:          a.DiskUsageAlarmThresholdParam.ValueAsNumber(),
			AlarmActions:       actions,
			OkActions:          actions,
			ComparisonOperator: jsii.String("GreaterThanThreshold"),
		})
		alarm.OverrideLogicalId(jsii.String(a.id + name))
		return alarm
	}

	a.RootDiskAlarm = newAlarm("RootDiskAlarm", "ext4", "/")
	if a.DataVolume != nil {
		a.DataDiskAlarm = newAlarm("DataDiskAlarm", "xfs", "/data")
	}
}

// DataVolumeBackupVaultArn returns the given or the created vault ARN, or
// nil without a data volume.
func (a *Asg) DataVolumeBackupVaultArn() *string {
	if a.DataVolume == nil {
		return nil
	}
	d := a.DataVolume
	return ifString(d.VaultArnExists, d.VaultArnParam.ValueAsString(), d.Vault.AttrBackupVaultArn())
}

// DataVolumeBackupVaultName returns the vault name, taken from the seventh
// segment of a given ARN, or nil without a data volume.
func (a *Asg) DataVolumeBackupVaultName() *string {
	if a.DataVolume == nil {
		return nil
	}
	d := a.DataVolume
	fromArn := awscdk.Fn_Select(jsii.Number(6), awscdk.Fn_Split(jsii.String(":"), d.VaultArnParam.ValueAsString(), nil))
	return ifString(d.VaultArnExists, fromArn, d.Vault.Ref())
}

// ParameterGroups implements MetadataProvider.
func (a *Asg) ParameterGroups() []ParameterGroup {
	params := []awscdk.CfnParameter{
		a.AmiIDParam, a.InstanceTypeParam, a.KeyNameParam, a.ReprovisionStringParam, a.DiskUsageAlarmThresholdParam,
	}
	if !a.props.Singleton {
		params = append(params, a.DesiredCapacityParam, a.MaxSizeParam, a.MinSizeParam)
	}
	if d := a.DataVolume; d != nil {
		params = append(params, d.SizeParam, d.SnapshotParam, d.RetentionParam, d.VaultArnParam)
	}
	return []ParameterGroup{group("Auto Scaling Group Configuration", params...)}
}

// ParameterLabels implements MetadataProvider.
func (a *Asg) ParameterLabels() map[string]ParameterLabel {
	out := map[string]ParameterLabel{
		lid(a.AmiIDParam):                   {Default: "AWS Marketplace AMI"},
		lid(a.InstanceTypeParam):            {Default: "EC2 instance type"},
		lid(a.KeyNameParam):                 {Default: "EC2 Key Pair Name"},
		lid(a.ReprovisionStringParam):       {Default: "Auto Scaling Group Reprovision String"},
		lid(a.DiskUsageAlarmThresholdParam): {Default: "Percent Disk Used Alarm Threshold"},
	}
	if !a.props.Singleton {
		out[lid(a.DesiredCapacityParam)] = ParameterLabel{Default: "Auto Scaling Group Desired Capacity"}
		out[lid(a.MaxSizeParam)] = ParameterLabel{Default: "Auto Scaling Group Maximum Size"}
		out[lid(a.MinSizeParam)] = ParameterLabel{Default: "Auto Scaling Group Minimum Size"}
	}
	if d := a.DataVolume; d != nil {
		out[lid(d.SizeParam)] = ParameterLabel{Default: "Auto Scaling Group EBS Snapshot Size"}
		out[lid(d.SnapshotParam)] = ParameterLabel{Default: "Auto Scaling Group EBS Snapshot ID"}
		out[lid(d.VaultArnParam)] = ParameterLabel{Default: "Auto Scaling Group EBS Backup Vault ARN"}
		out[lid(d.RetentionParam)] = ParameterLabel{Default: "Auto Scaling Group EBS Backup Retention in Days"}
	}
	return out
}
