package converter

import (
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/spec"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/transform"
	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
)

// TextConverter hands the raw string to its transform.
type TextConverter struct {
	input     spec.Input
	transform transform.Transform
}

func (c *TextConverter) Name() string {
	return c.input.Name
}

func (c *TextConverter) Convert(raw any) (*tensor.Tensor, error) {
	return guard(errs.Input, c.input.Name, func() (*tensor.Tensor, error) {
		out, err := c.transform.Apply(raw)
		if err != nil {
			return nil, err
		}
		t, err := tensor.FromValue(out)
		if err != nil {
			return nil, err
		}
		return withBatch(t, c.input.Shape)
	})
}
