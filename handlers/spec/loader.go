package spec

import (
	"context"
	"fmt"
	"strings"

	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/config"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/knadh/koanf"
)

const (
	EtcdScheme      = "etcd://"
	ZookeeperScheme = "zk://"
)

// Store reads a whole document stored under one key. Both the etcd and the
// zookeeper clients satisfy it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Remote reports whether source names a key in etcd or zookeeper rather than
// a local file, and returns its scheme.
func Remote(source string) (string, bool) {
	for _, scheme := range []string{EtcdScheme, ZookeeperScheme} {
		if strings.HasPrefix(source, scheme) {
			return scheme, true
		}
	}
	return "", false
}

// Load reads and validates a pipeline document. Sources starting with
// etcd:// or zk:// are read from store, everything else from disk.
func Load(ctx context.Context, source string, store Store) (*Specification, error) {
	k, err := read(ctx, source, store)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, &errs.SpecError{ErrorMsg: fmt.Sprintf("malformed pipeline document %s: %v", source, err)}
	}
	s, err := build(doc)
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Loaded pipeline spec for model %s with inputs %v and outputs %v", s.Model.Name, s.InputNames(), s.OutputNames()))
	return s, nil
}

func read(ctx context.Context, source string, store Store) (*koanf.Koanf, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &errs.SpecError{ErrorMsg: "no pipeline spec source configured"}
	}
	scheme, remote := Remote(source)
	if !remote {
		return config.LoadFile(source)
	}
	if store == nil {
		return nil, &errs.SpecError{ErrorMsg: fmt.Sprintf("%s requires a %s client", source, strings.TrimSuffix(scheme, "://"))}
	}
	key := strings.TrimPrefix(source, scheme)
	content, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return config.LoadBytes(content, config.FormatOf(key, content))
}

func build(doc document) (*Specification, error) {
	model, err := buildModel(doc.Model)
	if err != nil {
		return nil, err
	}
	s := &Specification{Model: model, inputs: linkedhashmap.New(), outputs: linkedhashmap.New()}

	for i, in := range doc.Inputs {
		if strings.TrimSpace(in.Name) == "" {
			return nil, specErrorf("input #%d has an empty name", i)
		}
		input, err := buildInput(in)
		if err != nil {
			return nil, err
		}
		if _, dup := s.inputs.Get(input.Name); dup {
			return nil, specErrorf("duplicate input name %q", input.Name)
		}
		s.inputs.Put(input.Name, input)
	}

	for i, out := range doc.Outputs {
		name := strings.TrimSpace(out.Name)
		if name == "" {
			return nil, specErrorf("output #%d has an empty name", i)
		}
		if _, dup := s.outputs.Get(name); dup {
			return nil, specErrorf("duplicate output name %q", name)
		}
		ref, err := transformRef(name, out.PostprocessorFunction, out.PostprocessorClass, out.PostprocessorLambda)
		if err != nil {
			return nil, err
		}
		s.outputs.Put(name, Output{Name: name, Transform: ref})
	}

	if s.inputs.Size() == 0 {
		return nil, specErrorf("model %s declares no inputs", model.Name)
	}
	return s, nil
}

func buildModel(doc modelDocument) (Model, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return Model{}, specErrorf("model name is empty")
	}
	if doc.Version < 0 {
		return Model{}, specErrorf("model version %d is negative", doc.Version)
	}
	format := DataFormat(strings.ToLower(strings.TrimSpace(doc.DataFormat)))
	switch format {
	case "":
		format = ChannelsLast
	case ChannelsLast, ChannelsFirst:
	default:
		return Model{}, specErrorf("unknown data_format %q", doc.DataFormat)
	}
	ref, err := transformRef("model "+name, doc.PostprocessorFunction, doc.PostprocessorClass, doc.PostprocessorLambda)
	if err != nil {
		return Model{}, err
	}
	return Model{
		Name:          name,
		Version:       doc.Version,
		SignatureName: strings.TrimSpace(doc.SignatureName),
		DataFormat:    format,
		Transform:     ref,
	}, nil
}

func buildInput(doc inputDocument) (Input, error) {
	name := strings.TrimSpace(doc.Name)
	input := Input{
		Name:         name,
		Kind:         Kind(strings.ToLower(strings.TrimSpace(doc.Kind))),
		Shape:        doc.Shape,
		TargetWidth:  doc.TargetWidth,
		TargetHeight: doc.TargetHeight,
	}
	switch input.Kind {
	case KindFile, KindImage, KindText:
	default:
		return Input{}, specErrorf("input %q has unknown kind %q", name, doc.Kind)
	}

	if doc.DType == "" && input.Kind != KindImage {
		input.DType = tensor.String
	} else {
		dtype, err := tensor.ParseDataType(doc.DType)
		if err != nil {
			return Input{}, specErrorf("input %q: %v", name, err)
		}
		input.DType = dtype
	}

	for _, dim := range doc.Shape {
		if dim < 0 {
			return Input{}, specErrorf("input %q has negative dimension in shape %v", name, doc.Shape)
		}
	}

	if input.Kind == KindImage {
		if len(doc.Shape) != 3 && len(doc.Shape) != 4 {
			return Input{}, specErrorf("image input %q needs a 3 or 4 dimensional shape, got %v", name, doc.Shape)
		}
		if !input.DType.IsNumeric() {
			return Input{}, specErrorf("image input %q needs a numeric dtype, got %s", name, input.DType)
		}
		colorspace, err := parseColorspace(doc.Colorspace)
		if err != nil {
			return Input{}, specErrorf("input %q: %v", name, err)
		}
		input.Colorspace = colorspace
		if doc.TargetWidth < 0 || doc.TargetHeight < 0 {
			return Input{}, specErrorf("input %q has negative target size %dx%d", name, doc.TargetWidth, doc.TargetHeight)
		}
	}

	ref, err := transformRef(name, doc.PreprocessorFunction, doc.PreprocessorClass, doc.PreprocessorLambda)
	if err != nil {
		return Input{}, err
	}
	input.Transform = ref
	return input, nil
}

func parseColorspace(value string) (Colorspace, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return ColorspaceNative, nil
	case "grayscale", "gray", "l":
		return Grayscale, nil
	case "rgb":
		return RGB, nil
	default:
		return "", fmt.Errorf("unknown colorspace %q", value)
	}
}

func transformRef(field, function, class, lambda string) (TransformRef, error) {
	ref := TransformRef{
		Function:   strings.TrimSpace(function),
		Class:      strings.TrimSpace(class),
		Expression: strings.TrimSpace(lambda),
	}
	if ref.count() > 1 {
		return TransformRef{}, specErrorf("%s sets more than one of function, class and lambda", field)
	}
	return ref, nil
}

func specErrorf(format string, args ...any) error {
	return &errs.SpecError{ErrorMsg: fmt.Sprintf(format, args...)}
}
