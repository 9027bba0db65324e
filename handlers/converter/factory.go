package converter

import (
	"fmt"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/spec"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/transform"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
)

type Factory struct {
	resolver transform.Resolver
}

func NewFactory(resolver transform.Resolver) *Factory {
	return &Factory{resolver: resolver}
}

func (f *Factory) NewInput(input spec.Input, format spec.DataFormat) (InputConverter, error) {
	t, err := f.resolve(input.Name, input.Transform)
	if err != nil {
		return nil, err
	}
	switch input.Kind {
	case spec.KindFile:
		return &FileConverter{input: input, transform: t}, nil
	case spec.KindText:
		return &TextConverter{input: input, transform: t}, nil
	case spec.KindImage:
		return &ImageConverter{input: input, channelsFirst: format == spec.ChannelsFirst, transform: t}, nil
	default:
		return nil, fmt.Errorf("input %q has unsupported kind %q", input.Name, input.Kind)
	}
}

func (f *Factory) NewOutput(output spec.Output) (OutputConverter, error) {
	t, err := f.resolve(output.Name, output.Transform)
	if err != nil {
		return nil, err
	}
	return &TensorOutputConverter{name: output.Name, transform: t}, nil
}

// NewModel returns nil when the model declares no model-level transform.
func (f *Factory) NewModel(model spec.Model) (ModelConverter, error) {
	if model.Transform.IsEmpty() {
		return nil, nil
	}
	t, err := f.resolve(model.Name, model.Transform)
	if err != nil {
		return nil, err
	}
	return &MappingConverter{model: model.Name, transform: t}, nil
}

func (f *Factory) resolve(field string, ref spec.TransformRef) (transform.Transform, error) {
	switch {
	case ref.Function != "":
		return f.resolver.ResolveFunction(ref.Function), nil
	case ref.Class != "":
		return f.resolver.ResolveClass(ref.Class), nil
	case ref.Expression != "":
		t, err := f.resolver.ResolveExpression(ref.Expression)
		if err != nil {
			logger.Error(fmt.Sprintf("rejecting transform expression for %s", field), err)
			return nil, err
		}
		return t, nil
	default:
		return transform.Identity, nil
	}
}
