// Package customresource dispatches CloudFormation custom resource events to
// typed handlers.
package customresource

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Output is returned to CloudFormation.
type Output struct {
	// PhysicalResourceID of the resource. Empty on Create lets the runtime pick
	// one. A changed id on Update makes CloudFormation delete the old one.
	PhysicalResourceID string
	// Data is available with Fn::GetAtt on the custom resource.
	Data map[string]any
}

// Result of handling.
type Result struct {
	// Visited lists the types of the handlers that were visited.
	Visited []string
	// Handled is the type of the handler that handled the event.
	Handled string
	// Err holds any error while handling the event.
	Err error
	Output
}

// Handler for CRUD operations on one custom resource type. I is decoded from
// the resource properties, O is encoded into the response data.
type Handler[I, O any] interface {
	Type() string
	Create(ctx context.Context, ev cfn.Event, in I) (string, O, error)
	Update(ctx context.Context, ev cfn.Event, in I, inOld I) (string, O, error)
	Delete(ctx context.Context, ev cfn.Event, in I) (O, error)
}

// handle handles custom resource events for 1 resource type.
func handle[I, O any](
	ctx context.Context,
	logs *zap.Logger,
	val *validator.Validate,
	evn cfn.Event,
	res *Result,
	hdl Handler[I, O],
) error {
	logs.Info("handling resource event",
		zap.String("request_type", string(evn.RequestType)),
		zap.String("logical_resource_id", evn.LogicalResourceID),
		zap.String("physical_resource_id", evn.PhysicalResourceID))

	var inProps I
	if err := decodeValidateProps(val, evn.ResourceProperties, &inProps); err != nil {
		if evn.RequestType == cfn.RequestDelete {
			// nothing was ever created from invalid properties
			logs.Warn("ignoring invalid resource properties on delete", zap.Error(err))
			res.Output.PhysicalResourceID = evn.PhysicalResourceID
			return nil
		}
		return fmt.Errorf("failed to decode/validate (new) resource properties: %w", err)
	}

	var (
		outProps O
		err      error
		prid     string
	)

	switch evn.RequestType {
	case cfn.RequestCreate:
		prid, outProps, err = hdl.Create(ctx, evn, inProps)
	case cfn.RequestUpdate:
		var inOldProps I
		if err := decodeValidateProps(val, evn.OldResourceProperties, &inOldProps); err != nil {
			return fmt.Errorf("failed to decode/validate old input properties: %w", err)
		}

		prid, outProps, err = hdl.Update(ctx, evn, inProps, inOldProps)
	case cfn.RequestDelete:
		// the physical id can not change on delete
		prid = evn.PhysicalResourceID

		outProps, err = hdl.Delete(ctx, evn, inProps)
	default:
		err = UnsupportedRequestTypeError{evn.RequestType}
	}

	if err != nil {
		return fmt.Errorf("failed to handle %s: %w", evn.RequestType, err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     &res.Output.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to setup output props decoder: %w", err)
	}

	res.Output.PhysicalResourceID = prid

	if err := dec.Decode(outProps); err != nil {
		return fmt.Errorf("failed to decode output props: %w", err)
	}

	logs.Info("output ready", zap.String("physical_resource_id", prid), zap.Int("num_attributes", len(res.Output.Data)))

	return nil
}

// UnsupportedResourceTypeError is returned when the resource is not supported.
type UnsupportedResourceTypeError struct{ rt string }

func (e UnsupportedResourceTypeError) Error() string {
	return fmt.Sprintf("unsupported resource type: %s", e.rt)
}

// UnsupportedRequestTypeError is returned when the request is not supported.
type UnsupportedRequestTypeError struct{ rt cfn.RequestType }

func (e UnsupportedRequestTypeError) Error() string {
	return fmt.Sprintf("unsupported request type: %s", e.rt)
}

// visitHandle handles the event when it matches the handler's type and no
// earlier handler took it.
func visitHandle[I, O any](
	ctx context.Context,
	logs *zap.Logger,
	val *validator.Validate,
	ev cfn.Event,
	res *Result,
	h Handler[I, O],
) {
	res.Visited = append(res.Visited, h.Type())

	switch {
	case res.Handled != "" || res.Err != nil:
		return
	case h.Type() != ev.ResourceType:
		return
	}

	res.Err = handle(ctx, logs.Named(h.Type()), val, ev, res, h)
	res.Handled = h.Type()
}

func checkError(ev cfn.Event, res Result) (Result, error) {
	if res.Err != nil {
		return res, res.Err
	}

	if res.Handled == "" {
		return res, UnsupportedResourceTypeError{ev.ResourceType}
	}

	return res, nil
}

// decodeValidateProps decodes properties into v and validates it.
func decodeValidateProps(val *validator.Validate, propm map[string]any, v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return fmt.Errorf("failed to init decoder: %w", err)
	}

	if err = dec.Decode(propm); err != nil {
		return fmt.Errorf("failed to decode properties: %w", err)
	}

	if err = val.Struct(v); err != nil {
		return fmt.Errorf("failed to validate properties: %w", err)
	}

	return nil
}

// Handle handles a custom resource event with h. Events for other resource
// types fail with UnsupportedResourceTypeError.
func Handle[I, O any](
	ctx context.Context,
	logs *zap.Logger,
	val *validator.Validate,
	ev cfn.Event,
	h Handler[I, O],
) (res Result, err error) {
	visitHandle(ctx, logs, val, ev, &res, h)

	return checkError(ev, res)
}

// Function adapts a single handler to the signature expected by
// cfn.LambdaWrap.
func Function[I, O any](logs *zap.Logger, val *validator.Validate, h Handler[I, O]) cfn.CustomResourceFunction {
	return func(ctx context.Context, ev cfn.Event) (string, map[string]any, error) {
		res, err := Handle(ctx, logs, val, ev, h)
		if err != nil {
			logs.Error("failed to handle resource event", zap.Error(err))
		}
		return res.PhysicalResourceID, res.Data, err
	}
}
