package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/converter"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/external/modelserver"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/spec"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/transform"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/etcd"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/zookeeper"
)

var (
	once      sync.Once
	shared    *State
	sharedErr error
)

// State is everything derived from the pipeline document: converters for
// every declared input and output plus the routing attributes of the model.
// It is built once and only read afterwards.
type State struct {
	spec      *spec.Specification
	inputs    []converter.InputConverter
	byName    map[string]converter.InputConverter
	outputs   []converter.OutputConverter
	model     converter.ModelConverter
	modelSpec modelserver.ModelSpec
}

// Initialize loads the pipeline document from source the first time it is
// called. Later calls return the first result, error included.
func Initialize(source string, resolver transform.Resolver) (*State, error) {
	once.Do(func() {
		var store spec.Store
		switch scheme, _ := spec.Remote(source); scheme {
		case spec.EtcdScheme:
			store = etcd.Instance()
		case spec.ZookeeperScheme:
			store = zookeeper.Instance()
		}
		s, err := spec.Load(context.Background(), source, store)
		if err != nil {
			sharedErr = err
			return
		}
		shared, sharedErr = NewState(s, resolver)
	})
	return shared, sharedErr
}

func NewState(s *spec.Specification, resolver transform.Resolver) (*State, error) {
	factory := converter.NewFactory(resolver)
	state := &State{
		spec:   s,
		byName: make(map[string]converter.InputConverter),
		modelSpec: modelserver.ModelSpec{
			Name:          s.Model.Name,
			Version:       s.Model.Version,
			SignatureName: s.Model.SignatureName,
		},
	}
	for _, input := range s.Inputs() {
		c, err := factory.NewInput(input, s.Model.DataFormat)
		if err != nil {
			return nil, err
		}
		state.inputs = append(state.inputs, c)
		state.byName[input.Name] = c
	}
	for _, output := range s.Outputs() {
		c, err := factory.NewOutput(output)
		if err != nil {
			return nil, err
		}
		state.outputs = append(state.outputs, c)
	}
	model, err := factory.NewModel(s.Model)
	if err != nil {
		return nil, err
	}
	state.model = model

	logger.Info(fmt.Sprintf("Pipeline state ready for model %s: %d input converters, %d output converters",
		s.Model.Name, len(state.inputs), len(state.outputs)))
	return state, nil
}

func (s *State) Spec() *spec.Specification {
	return s.spec
}

// Inputs returns the input converters in document order.
func (s *State) Inputs() []converter.InputConverter {
	return s.inputs
}

func (s *State) Input(name string) (converter.InputConverter, bool) {
	c, ok := s.byName[name]
	return c, ok
}

func (s *State) Outputs() []converter.OutputConverter {
	return s.outputs
}

// Model is nil when no model-level transform is configured.
func (s *State) Model() converter.ModelConverter {
	return s.model
}

func (s *State) ModelSpec() modelserver.ModelSpec {
	return s.modelSpec
}
