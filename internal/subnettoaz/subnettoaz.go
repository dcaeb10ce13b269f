// Package subnettoaz implements the custom resource that looks up the
// availability zone of a subnet.
package subnettoaz

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/go-playground/validator/v10"
	"github.com/plexusone/patterns-aws-cdk/internal/customresource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ResourceType served by the handler.
const ResourceType = "Custom::SubnetToAz"

// EC2 is the part of the EC2 API the handler uses.
type EC2 interface {
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
}

// ClientFactory returns an EC2 client for a region.
type ClientFactory func(region string) EC2

// NewClientFactory creates clients from the lambda's AWS configuration.
func NewClientFactory(acfg aws.Config) ClientFactory {
	return func(region string) EC2 {
		return ec2.NewFromConfig(acfg, func(o *ec2.Options) {
			o.Region = region
		})
	}
}

type (
	// Input are the resource properties.
	Input struct {
		AWSRegion string `mapstructure:"aws_region" validate:"required"`
		SubnetID  string `mapstructure:"subnet_id" validate:"required"`
	}
	// Output is available as Fn::GetAtt [resource, "az"].
	Output struct {
		AZ string `mapstructure:"az"`
	}
)

// ErrSubnetNotFound is returned when the subnet does not exist.
var ErrSubnetNotFound = errors.New("subnet not found")

// Handler resolves the availability zone of a subnet.
type Handler struct {
	logs    *zap.Logger
	clients ClientFactory
}

// New inits the handler.
func New(logs *zap.Logger, clients ClientFactory) *Handler {
	return &Handler{logs: logs, clients: clients}
}

// Type implements customresource.Handler.
func (h *Handler) Type() string { return ResourceType }

// Create looks up the availability zone.
func (h *Handler) Create(ctx context.Context, _ cfn.Event, in Input) (string, Output, error) {
	az, err := h.lookup(ctx, in)
	return in.SubnetID, Output{AZ: az}, err
}

// Update looks up the availability zone again. A new subnet gets a new
// physical id.
func (h *Handler) Update(ctx context.Context, _ cfn.Event, in, _ Input) (string, Output, error) {
	az, err := h.lookup(ctx, in)
	return in.SubnetID, Output{AZ: az}, err
}

// Delete does nothing.
func (h *Handler) Delete(context.Context, cfn.Event, Input) (Output, error) {
	return Output{}, nil
}

func (h *Handler) lookup(ctx context.Context, in Input) (string, error) {
	out, err := h.clients(in.AWSRegion).DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		SubnetIds: []string{in.SubnetID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe subnet %s: %w", in.SubnetID, err)
	}

	if len(out.Subnets) == 0 {
		return "", fmt.Errorf("%w: %s", ErrSubnetNotFound, in.SubnetID)
	}

	az := aws.ToString(out.Subnets[0].AvailabilityZone)
	if az == "" {
		return "", fmt.Errorf("subnet %s has no availability zone", in.SubnetID)
	}

	h.logs.Info("resolved availability zone", zap.String("subnet_id", in.SubnetID), zap.String("az", az))

	return az, nil
}

func newFunction(logs *zap.Logger, val *validator.Validate, h *Handler) cfn.CustomResourceFunction {
	return customresource.Function[Input, Output](logs, val, h)
}

// Provide the handler and its function.
func Provide() fx.Option {
	return fx.Module("subnettoaz",
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named("subnettoaz") }),
		fx.Provide(New, NewClientFactory, newFunction),
	)
}
