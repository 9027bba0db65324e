package converter

import (
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/transform"
	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
)

type TensorOutputConverter struct {
	name      string
	transform transform.Transform
}

func (c *TensorOutputConverter) Name() string {
	return c.name
}

func (c *TensorOutputConverter) Convert(t *tensor.Tensor) (any, error) {
	return guard(errs.Output, c.name, func() (any, error) {
		out, err := c.transform.Apply(t)
		if err != nil {
			return nil, err
		}
		return render(out)
	})
}

type MappingConverter struct {
	model     string
	transform transform.Transform
}

func (c *MappingConverter) Convert(response map[string]any) (any, error) {
	return guard(errs.Output, c.model, func() (any, error) {
		out, err := c.transform.Apply(response)
		if err != nil {
			return nil, err
		}
		return render(out)
	})
}
