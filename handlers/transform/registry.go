package transform

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
)

// Resolver turns the three kinds of transform reference a pipeline document
// may carry into transforms.
type Resolver interface {
	ResolveFunction(path string) Transform
	ResolveClass(path string) Transform
	ResolveExpression(literal string) (Transform, error)
}

// Registry maps dotted paths to registered functions and constructors.
// Lookups that miss degrade to Identity; expressions never do.
type Registry struct {
	functions map[string]Func
	classes   map[string]Constructor
	mapMutex  sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Func),
		classes:   make(map[string]Constructor),
	}
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// Default is the process registry with the builtin transforms registered.
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
		RegisterBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

func (r *Registry) RegisterFunction(path string, fn Func) {
	r.mapMutex.Lock()
	defer r.mapMutex.Unlock()
	r.functions[strings.TrimSpace(path)] = fn
}

func (r *Registry) RegisterClass(path string, constructor Constructor) {
	r.mapMutex.Lock()
	defer r.mapMutex.Unlock()
	r.classes[strings.TrimSpace(path)] = constructor
}

func (r *Registry) ResolveFunction(path string) Transform {
	r.mapMutex.RLock()
	fn, ok := r.functions[strings.TrimSpace(path)]
	r.mapMutex.RUnlock()
	if !ok || fn == nil {
		logger.Warn(fmt.Sprintf("transform function %q is not registered, using identity", path))
		return Identity
	}
	return fn
}

func (r *Registry) ResolveClass(path string) (resolved Transform) {
	r.mapMutex.RLock()
	constructor, ok := r.classes[strings.TrimSpace(path)]
	r.mapMutex.RUnlock()
	if !ok || constructor == nil {
		logger.Warn(fmt.Sprintf("transform class %q is not registered, using identity", path))
		return Identity
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(fmt.Sprintf("transform class %q panicked during construction, using identity", path), fmt.Errorf("%v", rec))
			resolved = Identity
		}
	}()
	instance, err := constructor()
	if err != nil {
		logger.Error(fmt.Sprintf("unable to construct transform class %q, using identity", path), err)
		return Identity
	}
	t, ok := instance.(Transform)
	if !ok {
		logger.Warn(fmt.Sprintf("transform class %q produced %T which is not invocable, using identity", path, instance))
		return Identity
	}
	return t
}

func (r *Registry) ResolveExpression(literal string) (Transform, error) {
	expr, err := CompileExpression(literal)
	if err != nil {
		return nil, err
	}
	return expr, nil
}
