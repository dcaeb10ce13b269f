package patterns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// NotificationTopic is an SNS topic for stack notifications, either given by
// ARN or created with an optional email subscription.
type NotificationTopic struct {
	constructs.Construct

	EmailParam            awscdk.CfnParameter
	ArnParam              awscdk.CfnParameter
	EmailExistsCondition  awscdk.CfnCondition
	ArnNotExistsCondition awscdk.CfnCondition

	Topic        awssns.CfnTopic
	Subscription awssns.CfnSubscription
	ArnOutput    awscdk.CfnOutput
}

// NewNotificationTopic creates the topic.
func NewNotificationTopic(scope constructs.Construct, id string) *NotificationTopic {
	n := &NotificationTopic{Construct: constructs.NewConstruct(scope, jsii.String(id))}

	n.EmailParam = newParam(n, id+"Email", "Optional: Specify an email address to get emails about stack events. This email is only used within this stack to subscribe to an SNS topic and is not sent to any third party.", paramOpts{Default: ""})
	n.ArnParam = newParam(n, id+"Arn", "Optional: Specify an ARN of an existing SNS topic to use for stack notifications. If you do not specify one, a topic will be created.", paramOpts{Default: ""})
	n.EmailExistsCondition = newCondition(n, id+"EmailExists", isNotEmpty(n.EmailParam))
	n.ArnNotExistsCondition = newCondition(n, id+"ArnNotExists", isEmpty(n.ArnParam))

	n.Topic = awssns.NewCfnTopic(n, jsii.String("Topic"), &awssns.CfnTopicProps{
		TopicName: AppendStackUUID(jsii.String(*awscdk.Aws_STACK_NAME() + "-notifications")),
	})
	n.Topic.CfnOptions().SetCondition(n.ArnNotExistsCondition)
	n.Topic.OverrideLogicalId(jsii.String(id))

	n.Subscription = awssns.NewCfnSubscription(n, jsii.String("Subscription"), &awssns.CfnSubscriptionProps{
		Protocol: jsii.String("email"),
		TopicArn: n.NotificationTopicArn(),
		Endpoint: n.EmailParam.ValueAsString(),
	})
	n.Subscription.CfnOptions().SetCondition(n.EmailExistsCondition)
	n.Subscription.OverrideLogicalId(jsii.String(id + "Subscription"))

	n.ArnOutput = newOutput(n, id+"ArnOutput", "The notification topic ARN", n.NotificationTopicArn())

	return n
}

// NotificationTopicArn returns the created or the given topic ARN.
func (n *NotificationTopic) NotificationTopicArn() *string {
	return ifString(n.ArnNotExistsCondition, n.Topic.Ref(), n.ArnParam.ValueAsString())
}

// PublishPolicyStatement allows publishing to the topic.
func (n *NotificationTopic) PublishPolicyStatement() awsiam.PolicyStatement {
	return allow([]string{"sns:Publish"}, n.NotificationTopicArn())
}

// ParameterGroups implements MetadataProvider.
func (n *NotificationTopic) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{group("Notifications", n.EmailParam, n.ArnParam)}
}

// ParameterLabels implements MetadataProvider.
func (n *NotificationTopic) ParameterLabels() map[string]ParameterLabel {
	return map[string]ParameterLabel{
		lid(n.EmailParam): {Default: "Notification Email"},
		lid(n.ArnParam):   {Default: "Notification Topic ARN"},
	}
}
