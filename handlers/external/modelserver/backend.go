package modelserver

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Backend serves PredictionService from a typed predict function.
type Backend func(ctx context.Context, req *PredictRequest) (*PredictResponse, error)

func (b Backend) Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	adapter := Adapter{}
	req, err := adapter.MapProtoToRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := b(ctx, req)
	if err != nil {
		return nil, err
	}
	out, err := adapter.MapResponseToProto(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Echo answers every request with its own inputs as outputs.
func Echo(_ context.Context, req *PredictRequest) (*PredictResponse, error) {
	return &PredictResponse{ModelSpec: req.ModelSpec, Outputs: req.Inputs}, nil
}
