package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsefs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

const nfsPort = 2049

// EfsProps configures an Efs file system.
type EfsProps struct {
	Vpc *Vpc
	// AppSg is allowed to mount the file system.
	AppSg awsec2.CfnSecurityGroup
}

// Efs is an encrypted file system with a mount target in each private subnet.
type Efs struct {
	constructs.Construct

	AutomaticBackupsStatusParam          awscdk.CfnParameter
	TransitionToIaParam                  awscdk.CfnParameter
	TransitionToPrimaryStorageClassParam awscdk.CfnParameter
	TransitionToIaEnabled                awscdk.CfnCondition
	TransitionToPrimaryEnabled           awscdk.CfnCondition

	Sg           awsec2.CfnSecurityGroup
	SgIngress    awsec2.CfnSecurityGroupIngress
	FileSystem   awsefs.CfnFileSystem
	MountTarget1 awsefs.CfnMountTarget
	MountTarget2 awsefs.CfnMountTarget
}

// NewEfs creates the file system.
func NewEfs(scope constructs.Construct, id string, props EfsProps) *Efs {
	if props.Vpc == nil || props.AppSg == nil {
		panic("invalid stack configuration: Efs requires a Vpc and an AppSg")
	}

	e := &Efs{Construct: constructs.NewConstruct(scope, jsii.String(id))}

	e.AutomaticBackupsStatusParam = newParam(e, id+"AutomaticBackupsStatus", "Optional: status of automatic backups of EFS", paramOpts{
		AllowedValues: []string{"ENABLED", "DISABLED"},
		Default:       "ENABLED",
	})
	e.TransitionToIaParam = newParam(e, id+"TransitionToIa", "Describes the period of time that a file is not accessed, after which it transitions to IA storage. Metadata operations such as listing the contents of a directory don't count as file access events.", paramOpts{
		AllowedValues: []string{"", "AFTER_7_DAYS", "AFTER_14_DAYS", "AFTER_30_DAYS", "AFTER_60_DAYS", "AFTER_90_DAYS"},
		Default:       "",
	})
	e.TransitionToPrimaryStorageClassParam = newParam(e, id+"TransitionToPrimaryStorageClass", "Describes when to transition a file from IA storage to primary storage. Metadata operations such as listing the contents of a directory don't count as file access events.", paramOpts{
		AllowedValues: []string{"", "AFTER_1_ACCESS"},
		Default:       "",
	})
	e.TransitionToIaEnabled = newCondition(e, id+"TransitionToIaEnabledCondition", isNotEmpty(e.TransitionToIaParam))
	e.TransitionToPrimaryEnabled = newCondition(e, id+"TransitionToPrimaryStorageClassEnabledCondition", isNotEmpty(e.TransitionToPrimaryStorageClassParam))

	e.Sg = awsec2.NewCfnSecurityGroup(e, jsii.String("Sg"), &awsec2.CfnSecurityGroupProps{
		GroupDescription: stackScoped("Efs"),
		VpcId:            props.Vpc.ID(),
	})
	e.Sg.OverrideLogicalId(jsii.String(id + "Sg"))

	e.SgIngress = awsec2.NewCfnSecurityGroupIngress(e, jsii.String("SgIngress"), &awsec2.CfnSecurityGroupIngressProps{
		Description:           jsii.String("Allow EFS traffic from AppSg to EfsSg"),
		FromPort:              jsii.Number(nfsPort),
		GroupId:               e.Sg.Ref(),
		IpProtocol:            jsii.String("tcp"),
		SourceSecurityGroupId: props.AppSg.Ref(),
		ToPort:                jsii.Number(nfsPort),
	})
	e.SgIngress.OverrideLogicalId(jsii.String(id + "SgIngress"))

	e.FileSystem = awsefs.NewCfnFileSystem(e, jsii.String("FileSystem"), &awsefs.CfnFileSystemProps{
		BackupPolicy: &awsefs.CfnFileSystem_BackupPolicyProperty{
			Status: e.AutomaticBackupsStatusParam.ValueAsString(),
		},
		Encrypted: jsii.Bool(true),
		LifecyclePolicies: &[]interface{}{
			awscdk.Fn_ConditionIf(e.TransitionToIaEnabled.LogicalId(),
				&awsefs.CfnFileSystem_LifecyclePolicyProperty{TransitionToIa: e.TransitionToIaParam.ValueAsString()},
				awscdk.Aws_NO_VALUE()),
			awscdk.Fn_ConditionIf(e.TransitionToPrimaryEnabled.LogicalId(),
				&awsefs.CfnFileSystem_LifecyclePolicyProperty{TransitionToPrimaryStorageClass: e.TransitionToPrimaryStorageClassParam.ValueAsString()},
				awscdk.Aws_NO_VALUE()),
		},
	})
	e.FileSystem.OverrideLogicalId(jsii.String("App" + id))
	// cfn-lint rejects conditional lifecycle policies.
	e.FileSystem.AddMetadata(jsii.String("cfn-lint"), map[string]interface{}{
		"config": map[string]interface{}{"ignore_checks": []string{"E3002"}},
	})
	awscdk.Tags_Of(e.FileSystem).Add(jsii.String("Name"), stackScoped("Efs"), nil)

	mountTarget := func(n string, subnetID *string) awsefs.CfnMountTarget {
		mt := awsefs.NewCfnMountTarget(e, jsii.String("MountTarget"+n), &awsefs.CfnMountTargetProps{
			FileSystemId:   e.FileSystem.Ref(),
			SecurityGroups: &[]*string{e.Sg.Ref()},
			SubnetId:       subnetID,
		})
		mt.OverrideLogicalId(jsii.String("App" + id + "MountTarget" + n))
		return mt
	}
	e.MountTarget1 = mountTarget("1", props.Vpc.PrivateSubnet1ID())
	e.MountTarget2 = mountTarget("2", props.Vpc.PrivateSubnet2ID())

	return e
}

// FileSystemID returns the id of the file system.
func (e *Efs) FileSystemID() *string { return e.FileSystem.Ref() }

// ParameterGroups implements MetadataProvider.
func (e *Efs) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("EFS Configuration",
		e.AutomaticBackupsStatusParam, e.TransitionToIaParam, e.TransitionToPrimaryStorageClassParam)}
}

// ParameterLabels implements MetadataProvider.
func (e *Efs) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(e.AutomaticBackupsStatusParam):          {Default: "EFS Automatic Backups Enabled"},
		lid(e.TransitionToIaParam):                  {Default: "EFS Transition to IA"},
		lid(e.TransitionToPrimaryStorageClassParam): {Default: "EFS Transition to Primary Storage Class"},
	}
}
