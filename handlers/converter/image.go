package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/spec"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/transform"
	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageConverter decodes an uploaded image and lays it out as the tensor the
// model expects: optional colour conversion and resize, HWC materialisation,
// then channel and batch axes per the declared layout and shape.
type ImageConverter struct {
	input         spec.Input
	channelsFirst bool
	transform     transform.Transform
}

func (c *ImageConverter) Name() string {
	return c.input.Name
}

func (c *ImageConverter) Convert(raw any) (*tensor.Tensor, error) {
	return guard(errs.Input, c.input.Name, func() (*tensor.Tensor, error) {
		reader, err := asReader(raw)
		if err != nil {
			return nil, err
		}
		decoded, format, err := image.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("unable to decode image: %w", err)
		}

		img := convertColorspace(decoded, c.input.Colorspace)
		if c.input.Resizes() {
			img = resize(img, c.input.TargetWidth, c.input.TargetHeight)
		}

		t, err := materialize(img, c.input.DType)
		if err != nil {
			return nil, err
		}
		if c.channelsFirst {
			if t, err = t.MoveAxis(-1, 0); err != nil {
				return nil, err
			}
		}
		if len(c.input.Shape) == 4 {
			if t, err = t.ExpandDims(0); err != nil {
				return nil, err
			}
		}
		log.Debug().Str("input", c.input.Name).Str("format", format).Ints64("shape", t.Shape).Msg("decoded image input")

		out, err := c.transform.Apply(t)
		if err != nil {
			return nil, err
		}
		return tensor.FromValue(out)
	})
}

func asReader(raw any) (io.Reader, error) {
	switch v := raw.(type) {
	case io.Reader:
		return v, nil
	case []byte:
		return bytes.NewReader(v), nil
	default:
		return nil, fmt.Errorf("expected image file, got %T", raw)
	}
}

// raster is the working image: *image.Gray for one channel, *image.NRGBA
// for three or four.
type raster struct {
	img      image.Image
	channels int
}

func convertColorspace(src image.Image, target spec.Colorspace) raster {
	switch target {
	case spec.Grayscale:
		return raster{img: toGray(src), channels: 1}
	case spec.RGB:
		return raster{img: toNRGBA(src), channels: 3}
	}
	if isGray(src) {
		return raster{img: toGray(src), channels: 1}
	}
	if hasAlpha(src) {
		return raster{img: toNRGBA(src), channels: 4}
	}
	return raster{img: toNRGBA(src), channels: 3}
}

func isGray(img image.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return true
	}
	return false
}

// hasAlpha reports whether any pixel is translucent. PNG decodes plain
// truecolor into *image.RGBA, so the image type alone says nothing.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

func toGray(src image.Image) *image.Gray {
	if gray, ok := src.(*image.Gray); ok && gray.Rect.Min == (image.Point{}) {
		return gray
	}
	bounds := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}

func toNRGBA(src image.Image) *image.NRGBA {
	if nrgba, ok := src.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}

// resize scales to exactly width x height without keeping the aspect ratio.
func resize(src raster, width, height int) raster {
	rect := image.Rect(0, 0, width, height)
	var dst draw.Image
	if src.channels == 1 {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewNRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, src.img, src.img.Bounds(), draw.Src, nil)
	return raster{img: dst, channels: src.channels}
}

// materialize lays the pixels out height-width-channel in dtype.
func materialize(src raster, dtype tensor.DataType) (*tensor.Tensor, error) {
	bounds := src.img.Bounds()
	height, width := bounds.Dy(), bounds.Dx()
	t, err := tensor.New(dtype, []int64{int64(height), int64(width), int64(src.channels)})
	if err != nil {
		return nil, err
	}

	var pix []byte
	var stride, step int
	switch img := src.img.(type) {
	case *image.Gray:
		pix, stride, step = img.Pix, img.Stride, 1
	case *image.NRGBA:
		pix, stride, step = img.Pix, img.Stride, 4
	default:
		return nil, fmt.Errorf("unexpected raster %T", src.img)
	}

	i := 0
	for y := 0; y < height; y++ {
		row := pix[y*stride:]
		for x := 0; x < width; x++ {
			for ch := 0; ch < src.channels; ch++ {
				value := row[x*step+ch]
				if dtype == tensor.Uint8 {
					t.Content[i] = value
				} else {
					t.SetFloat64(i, float64(value))
				}
				i++
			}
		}
	}
	return t, nil
}
