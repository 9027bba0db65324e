package rest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/pipeline"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/spec"
	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
)

const notConformant = "Inputs not conformant with signature and type specified in the spec: "

type Handler struct {
	flow *pipeline.Flow
}

func NewHandler(flow *pipeline.Flow) *Handler {
	return &Handler{flow: flow}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/predict", h.Predict)
	router.GET("/spec", h.Spec)
}

// Predict reads one value per declared input, from a multipart form or a
// JSON object, and answers with the pipeline result. In multipart requests
// file and image inputs are uploaded files; in JSON they are base64 strings.
func (h *Handler) Predict(c *gin.Context) {
	var raw map[string]any
	var err error
	if c.ContentType() == gin.MIMEJSON {
		raw, err = h.readJSON(c)
	} else {
		var closers []io.Closer
		defer func() {
			for _, closer := range closers {
				_ = closer.Close()
			}
		}()
		raw, closers, err = h.readForm(c)
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.flow.Run(c.Request.Context(), raw)
	if err != nil {
		_ = c.Error(err)
		var failure *errs.PredictionError
		if errors.As(err, &failure) {
			c.JSON(statusFor(failure), gin.H{"error": failure.Cause.Error(), "stage": string(failure.Stage)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) readForm(c *gin.Context) (map[string]any, []io.Closer, error) {
	raw := make(map[string]any)
	var closers []io.Closer
	for _, input := range h.flow.State().Spec().Inputs() {
		if input.Kind == spec.KindText {
			value, ok := c.GetPostForm(input.Name)
			if !ok {
				return nil, closers, missing(input.Name)
			}
			raw[input.Name] = value
			continue
		}
		header, err := c.FormFile(input.Name)
		if err != nil {
			return nil, closers, missing(input.Name)
		}
		file, err := header.Open()
		if err != nil {
			return nil, closers, &errs.BadRequestError{ErrorMsg: fmt.Sprintf("unable to read upload %s: %v", input.Name, err)}
		}
		closers = append(closers, file)
		raw[input.Name] = file
	}
	return raw, closers, nil
}

func (h *Handler) readJSON(c *gin.Context) (map[string]any, error) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, &errs.BadRequestError{ErrorMsg: fmt.Sprintf("malformed JSON body: %v", err)}
	}
	raw := make(map[string]any)
	for _, input := range h.flow.State().Spec().Inputs() {
		value, ok := body[input.Name].(string)
		if !ok {
			return nil, missing(input.Name)
		}
		if input.Kind == spec.KindText {
			raw[input.Name] = value
			continue
		}
		content, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, &errs.BadRequestError{ErrorMsg: fmt.Sprintf("input %s is not valid base64: %v", input.Name, err)}
		}
		raw[input.Name] = bytes.NewReader(content)
	}
	return raw, nil
}

func missing(name string) error {
	return &errs.BadRequestError{ErrorMsg: notConformant + name}
}

func statusFor(failure *errs.PredictionError) int {
	switch failure.Stage {
	case errs.StagePreprocess:
		return http.StatusBadRequest
	case errs.StageRpc:
		var rpcErr *errs.RpcError
		if !errors.As(failure.Cause, &rpcErr) {
			return http.StatusBadGateway
		}
		switch rpcErr.Code {
		case codes.DeadlineExceeded:
			return http.StatusGatewayTimeout
		case codes.Unavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusInternalServerError
	}
}

// Spec describes the model and the inputs and outputs it was configured with.
func (h *Handler) Spec(c *gin.Context) {
	s := h.flow.State().Spec()
	inputs := make([]gin.H, 0, len(s.InputNames()))
	for _, input := range s.Inputs() {
		inputs = append(inputs, gin.H{
			"name":          input.Name,
			"kind":          input.Kind,
			"dtype":         input.DType,
			"shape":         input.Shape,
			"colorspace":    input.Colorspace,
			"target_width":  input.TargetWidth,
			"target_height": input.TargetHeight,
		})
	}
	outputs := make([]gin.H, 0, len(s.OutputNames()))
	for _, output := range s.Outputs() {
		outputs = append(outputs, gin.H{"name": output.Name})
	}
	c.JSON(http.StatusOK, gin.H{
		"model": gin.H{
			"name":           s.Model.Name,
			"version":        s.Model.Version,
			"signature_name": s.Model.SignatureName,
			"data_format":    s.Model.DataFormat,
		},
		"inputs":  inputs,
		"outputs": outputs,
	})
}
