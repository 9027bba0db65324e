package transform

// Transform is a pure function applied by a converter. Implementations are
// shared by concurrent requests and must be safe for concurrent use.
type Transform interface {
	Apply(value any) (any, error)
}

// Func adapts a plain function to Transform.
type Func func(value any) (any, error)

func (f Func) Apply(value any) (any, error) {
	return f(value)
}

// Constructor builds a transform instance with no arguments. The returned
// value is used only if it implements Transform.
type Constructor func() (any, error)

type identity struct{}

func (identity) Apply(value any) (any, error) {
	return value, nil
}

// Identity returns its argument unchanged.
var Identity Transform = identity{}

func IsIdentity(t Transform) bool {
	_, ok := t.(identity)
	return ok
}
