package spec

import (
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

type Kind string

const (
	KindFile  Kind = "file"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

type DataFormat string

const (
	ChannelsLast  DataFormat = "channels_last"
	ChannelsFirst DataFormat = "channels_first"
)

type Colorspace string

const (
	ColorspaceNative Colorspace = ""
	Grayscale        Colorspace = "grayscale"
	RGB              Colorspace = "rgb"
)

// TransformRef is the three-way union of transform references. At most one
// field is set on a valid document.
type TransformRef struct {
	Function   string
	Class      string
	Expression string
}

func (r TransformRef) IsEmpty() bool {
	return r.Function == "" && r.Class == "" && r.Expression == ""
}

func (r TransformRef) count() int {
	n := 0
	for _, ref := range []string{r.Function, r.Class, r.Expression} {
		if ref != "" {
			n++
		}
	}
	return n
}

type Model struct {
	Name          string
	Version       int64
	SignatureName string
	DataFormat    DataFormat
	Transform     TransformRef
}

type Input struct {
	Name         string
	Kind         Kind
	DType        tensor.DataType
	Shape        []int64
	Colorspace   Colorspace
	TargetWidth  int
	TargetHeight int
	Transform    TransformRef
}

// Resizes reports whether the image should be resized before materialising.
func (i Input) Resizes() bool {
	return i.TargetWidth > 0 && i.TargetHeight > 0
}

type Output struct {
	Name      string
	Transform TransformRef
}

// Specification is the validated pipeline document. It is built once by Load
// and only read afterwards; the ordered maps are never written after that.
type Specification struct {
	Model   Model
	inputs  *linkedhashmap.Map
	outputs *linkedhashmap.Map
}

func (s *Specification) Inputs() []Input {
	out := make([]Input, 0, s.inputs.Size())
	for _, v := range s.inputs.Values() {
		out = append(out, v.(Input))
	}
	return out
}

func (s *Specification) Input(name string) (Input, bool) {
	v, ok := s.inputs.Get(name)
	if !ok {
		return Input{}, false
	}
	return v.(Input), true
}

func (s *Specification) InputNames() []string {
	return keys(s.inputs)
}

func (s *Specification) Outputs() []Output {
	out := make([]Output, 0, s.outputs.Size())
	for _, v := range s.outputs.Values() {
		out = append(out, v.(Output))
	}
	return out
}

func (s *Specification) Output(name string) (Output, bool) {
	v, ok := s.outputs.Get(name)
	if !ok {
		return Output{}, false
	}
	return v.(Output), true
}

func (s *Specification) OutputNames() []string {
	return keys(s.outputs)
}

func keys(m *linkedhashmap.Map) []string {
	out := make([]string, 0, m.Size())
	for _, k := range m.Keys() {
		out = append(out, k.(string))
	}
	return out
}

// document mirrors the on-disk layout; Load turns it into a Specification.
type document struct {
	Model   modelDocument    `koanf:"model"`
	Inputs  []inputDocument  `koanf:"inputs"`
	Outputs []outputDocument `koanf:"outputs"`
}

type modelDocument struct {
	Name                  string `koanf:"name"`
	Version               int64  `koanf:"version"`
	SignatureName         string `koanf:"signature_name"`
	DataFormat            string `koanf:"data_format"`
	PostprocessorFunction string `koanf:"postprocessor_function"`
	PostprocessorClass    string `koanf:"postprocessor_class"`
	PostprocessorLambda   string `koanf:"postprocessor_lambda"`
}

type inputDocument struct {
	Name                 string  `koanf:"name"`
	Kind                 string  `koanf:"kind"`
	DType                string  `koanf:"dtype"`
	Shape                []int64 `koanf:"shape"`
	Colorspace           string  `koanf:"colorspace"`
	TargetWidth          int     `koanf:"target_width"`
	TargetHeight         int     `koanf:"target_height"`
	PreprocessorFunction string  `koanf:"preprocessor_function"`
	PreprocessorClass    string  `koanf:"preprocessor_class"`
	PreprocessorLambda   string  `koanf:"preprocessor_lambda"`
}

type outputDocument struct {
	Name                  string `koanf:"name"`
	PostprocessorFunction string `koanf:"postprocessor_function"`
	PostprocessorClass    string `koanf:"postprocessor_class"`
	PostprocessorLambda   string `koanf:"postprocessor_lambda"`
}
