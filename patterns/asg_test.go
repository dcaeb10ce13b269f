package patterns_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/plexusone/patterns-aws-cdk/patterns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("instance types", func() {
	It("should default to graviton", func() {
		def, allowed := patterns.AsgProps{}.InstanceTypeDefaults()
		Expect(def).To(Equal("t4g.small"))
		Expect(allowed).To(Equal(patterns.GravitonInstanceTypes))
	})

	It("should fall back to x86 without graviton", func() {
		def, allowed := patterns.AsgProps{UseGraviton: jsii.Bool(false)}.InstanceTypeDefaults()
		Expect(def).To(Equal("t3.micro"))
		Expect(allowed).To(ContainElement("m5.large"))
		Expect(allowed).ToNot(ContainElement("t4g.small"))
	})

	It("should filter families and sizes", func() {
		filtered := patterns.FilterInstanceTypes(
			[]string{"t3.nano", "t3.micro", "t3.small", "m5.large", "m5d.large", "c5.metal"},
			[]string{"m5d", "c5"}, []string{"nano", "micro"})
		Expect(filtered).To(Equal([]string{"t3.small", "m5.large"}))
	})

	It("should prefer an explicit allowed list", func() {
		def, allowed := patterns.AsgProps{
			AllowedInstanceTypes:  []string{"t4g.medium", "t4g.large"},
			DefaultInstanceType:   "t4g.medium",
			ExcludedInstanceSizes: []string{"medium"},
		}.InstanceTypeDefaults()
		Expect(def).To(Equal("t4g.medium"))
		Expect(allowed).To(Equal([]string{"t4g.medium", "t4g.large"}))
	})
})

var _ = Describe("asg", func() {
	var stack awscdk.Stack
	var vpc *patterns.Vpc

	BeforeEach(func() {
		stack = newTestStack()
		vpc = patterns.NewVpc(stack, "Vpc")
	})

	It("should create the group with substituted user data", func() {
		patterns.NewAsg(stack, "Asg", patterns.AsgProps{
			Vpc:               vpc,
			UserDataContents:  "#!/bin/bash\necho ${MYVAR}\n",
			UserDataVariables: map[string]*string{"MYVAR": jsii.String("hello")},
		})

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::AutoScaling::AutoScalingGroup"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::LaunchTemplate"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::Logs::LogGroup"), jsii.Number(2))
		tmpl.ResourceCountIs(jsii.String("AWS::CloudWatch::Alarm"), jsii.Number(1))
		tmpl.HasParameter(jsii.String("AsgInstanceType"), map[string]any{"Default": jsii.String("t4g.small")})
		tmpl.HasParameter(jsii.String("AsgDesiredCapacity"), map[string]any{"Type": jsii.String("Number")})

		data := templateJSON(tmpl)
		Expect(data).To(ContainSubstring(`#!/bin/bash\necho ${MYVAR}\n`))
		Expect(data).To(ContainSubstring(`# reprovision string: ${AsgReprovisionString}`))
		Expect(data).To(ContainSubstring(`"MYVAR":"hello"`))

		tmpl.HasResource(jsii.String("AWS::AutoScaling::AutoScalingGroup"), map[string]any{
			"UpdatePolicy": map[string]any{
				"AutoScalingReplacingUpdate": map[string]any{"WillReplace": jsii.Bool(true)},
			},
			"CreationPolicy": map[string]any{
				"ResourceSignal": map[string]any{"Count": jsii.Number(1), "Timeout": jsii.String("PT15M")},
			},
		})
	})

	It("should pin a singleton to one instance", func() {
		patterns.NewAsg(stack, "Asg", patterns.AsgProps{Vpc: vpc, Singleton: true, UseGraviton: jsii.Bool(false)})

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResourceProperties(jsii.String("AWS::AutoScaling::AutoScalingGroup"), map[string]any{
			"DesiredCapacity": jsii.String("1"),
			"MaxSize":         jsii.String("1"),
			"MinSize":         jsii.String("1"),
		})
		tmpl.HasParameter(jsii.String("AsgInstanceType"), map[string]any{"Default": jsii.String("t3.micro")})
		Expect(*tmpl.ToJSON()).ToNot(HaveKeyWithValue("Parameters", HaveKey("AsgDesiredCapacity")))
	})

	It("should attach a data volume found by the subnet lambda", func() {
		patterns.NewAsg(stack, "Asg", patterns.AsgProps{
			Vpc:            vpc,
			UseDataVolume:  true,
			SubnetToAzCode: inlineCode(),
		})

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String(patterns.SubnetToAzType), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::Volume"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::Backup::BackupPlan"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::CloudWatch::Alarm"), jsii.Number(2))
		tmpl.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
			"Handler":       jsii.String("bootstrap"),
			"Runtime":       jsii.String("provided.al2023"),
			"Architectures": []string{"arm64"},
		})
		tmpl.HasResourceProperties(jsii.String("AWS::EC2::Volume"), map[string]any{
			"Encrypted":        jsii.Bool(true),
			"VolumeType":       jsii.String("gp3"),
			"AvailabilityZone": map[string]any{"Fn::GetAtt": []string{"AsgSubnetToAzCustomResource", "az"}},
		})
		tmpl.HasResource(jsii.String("AWS::EC2::Volume"), map[string]any{
			"DeletionPolicy":      jsii.String("Snapshot"),
			"UpdateReplacePolicy": jsii.String("Snapshot"),
		})
		tmpl.HasOutput(jsii.String("AsgDataVolumeBackupVaultArnOutput"), map[string]any{})
	})

	It("should require the subnet lambda with a data volume", func() {
		Expect(func() {
			patterns.NewAsg(stack, "Asg", patterns.AsgProps{Vpc: vpc, UseDataVolume: true})
		}).To(PanicWith(ContainSubstring("lambda code for AsgSubnetToAzLambda is required")))
	})
})
