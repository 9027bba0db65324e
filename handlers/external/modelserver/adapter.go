package modelserver

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
	"google.golang.org/protobuf/types/known/structpb"
)

// Adapter maps typed requests and responses to the Struct layout the model
// server speaks:
//
//	{"model_spec": {"name", "version", "signature_name"},
//	 "inputs"|"outputs": {name: {"dtype", "tensor_shape", "tensor_content"|"string_val"}}}
//
// tensor_content and every string_val entry are base64 encoded.
type Adapter struct{}

func (a Adapter) MapRequestToProto(req *PredictRequest) (*structpb.Struct, error) {
	inputs, err := a.mapTensorsToProto(req.Inputs)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldModelSpec: structpb.NewStructValue(a.mapModelSpecToProto(req.ModelSpec)),
		fieldInputs:    structpb.NewStructValue(inputs),
	}}, nil
}

func (a Adapter) MapProtoToRequest(in *structpb.Struct) (*PredictRequest, error) {
	spec, err := a.mapProtoToModelSpec(in.GetFields()[fieldModelSpec])
	if err != nil {
		return nil, err
	}
	inputs, err := a.mapProtoToTensors(in.GetFields()[fieldInputs])
	if err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	return &PredictRequest{ModelSpec: spec, Inputs: inputs}, nil
}

func (a Adapter) MapResponseToProto(resp *PredictResponse) (*structpb.Struct, error) {
	outputs, err := a.mapTensorsToProto(resp.Outputs)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldModelSpec: structpb.NewStructValue(a.mapModelSpecToProto(resp.ModelSpec)),
		fieldOutputs:   structpb.NewStructValue(outputs),
	}}, nil
}

func (a Adapter) MapProtoToResponse(out *structpb.Struct) (*PredictResponse, error) {
	var spec ModelSpec
	if value, ok := out.GetFields()[fieldModelSpec]; ok {
		var err error
		if spec, err = a.mapProtoToModelSpec(value); err != nil {
			return nil, err
		}
	}
	outputs, err := a.mapProtoToTensors(out.GetFields()[fieldOutputs])
	if err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}
	return &PredictResponse{ModelSpec: spec, Outputs: outputs}, nil
}

func (a Adapter) mapModelSpecToProto(spec ModelSpec) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldName: structpb.NewStringValue(spec.Name),
	}
	if spec.Version > 0 {
		fields[fieldVersion] = structpb.NewNumberValue(float64(spec.Version))
	}
	if spec.SignatureName != "" {
		fields[fieldSignatureName] = structpb.NewStringValue(spec.SignatureName)
	}
	return &structpb.Struct{Fields: fields}
}

func (a Adapter) mapProtoToModelSpec(value *structpb.Value) (ModelSpec, error) {
	s := value.GetStructValue()
	if s == nil {
		return ModelSpec{}, fmt.Errorf("%s is missing", fieldModelSpec)
	}
	spec := ModelSpec{
		Name:          s.GetFields()[fieldName].GetStringValue(),
		SignatureName: s.GetFields()[fieldSignatureName].GetStringValue(),
	}
	if version, ok := s.GetFields()[fieldVersion]; ok {
		v, err := integral(version.GetNumberValue())
		if err != nil {
			return ModelSpec{}, fmt.Errorf("%s.%s: %w", fieldModelSpec, fieldVersion, err)
		}
		spec.Version = v
	}
	return spec, nil
}

func (a Adapter) mapTensorsToProto(tensors map[string]*tensor.Tensor) (*structpb.Struct, error) {
	fields := make(map[string]*structpb.Value, len(tensors))
	for name, t := range tensors {
		value, err := a.mapTensorToProto(t)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		fields[name] = value
	}
	return &structpb.Struct{Fields: fields}, nil
}

func (a Adapter) mapProtoToTensors(value *structpb.Value) (map[string]*tensor.Tensor, error) {
	s := value.GetStructValue()
	if s == nil {
		return nil, fmt.Errorf("expected a struct of tensors")
	}
	tensors := make(map[string]*tensor.Tensor, len(s.GetFields()))
	for name, v := range s.GetFields() {
		t, err := a.mapProtoToTensor(v)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		tensors[name] = t
	}
	return tensors, nil
}

func (a Adapter) mapTensorToProto(t *tensor.Tensor) (*structpb.Value, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tensor")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	shape := make([]*structpb.Value, len(t.Shape))
	for i, dim := range t.Shape {
		shape[i] = structpb.NewNumberValue(float64(dim))
	}
	fields := map[string]*structpb.Value{
		fieldDType:       structpb.NewStringValue(string(t.DType)),
		fieldTensorShape: structpb.NewListValue(&structpb.ListValue{Values: shape}),
	}
	if t.DType == tensor.String {
		values := make([]*structpb.Value, len(t.Strings))
		for i, s := range t.Strings {
			values[i] = structpb.NewStringValue(base64.StdEncoding.EncodeToString(s))
		}
		fields[fieldStringVal] = structpb.NewListValue(&structpb.ListValue{Values: values})
	} else {
		fields[fieldTensorContent] = structpb.NewStringValue(base64.StdEncoding.EncodeToString(t.Content))
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
}

func (a Adapter) mapProtoToTensor(value *structpb.Value) (*tensor.Tensor, error) {
	s := value.GetStructValue()
	if s == nil {
		return nil, fmt.Errorf("expected a tensor struct")
	}
	fields := s.GetFields()
	dtype, err := tensor.ParseDataType(fields[fieldDType].GetStringValue())
	if err != nil {
		return nil, err
	}

	dims := fields[fieldTensorShape].GetListValue().GetValues()
	shape := make([]int64, len(dims))
	for i, dim := range dims {
		if shape[i], err = integral(dim.GetNumberValue()); err != nil {
			return nil, fmt.Errorf("%s: %w", fieldTensorShape, err)
		}
	}

	if dtype == tensor.String {
		encoded := fields[fieldStringVal].GetListValue().GetValues()
		values := make([][]byte, len(encoded))
		for i, v := range encoded {
			if values[i], err = base64.StdEncoding.DecodeString(v.GetStringValue()); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", fieldStringVal, i, err)
			}
		}
		return tensor.FromStrings(shape, values)
	}

	content, err := base64.StdEncoding.DecodeString(fields[fieldTensorContent].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fieldTensorContent, err)
	}
	t := &tensor.Tensor{DType: dtype, Shape: shape, Content: content}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func integral(v float64) (int64, error) {
	if v != math.Trunc(v) || v < 0 {
		return 0, fmt.Errorf("expected a non-negative integer, got %v", v)
	}
	return int64(v), nil
}
