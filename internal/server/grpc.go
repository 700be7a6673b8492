package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
)

const ExtractionServiceName = "fleetops.v1.ExtractionService"

// ExtractionServer is served over generic structpb messages so clients
// need no generated stubs.
type ExtractionServer interface {
	// Extract takes {"text"} or {"file_id"} and returns the extraction result.
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ListRecords takes the HTTP list filters as fields.
	ListRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// DeleteRecord takes {"id"}.
	DeleteRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&extractionServiceDesc, srv)
}

var extractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ExtractionServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unaryHandler("Extract", ExtractionServer.Extract)},
		{MethodName: "ListRecords", Handler: unaryHandler("ListRecords", ExtractionServer.ListRecords)},
		{MethodName: "DeleteRecord", Handler: unaryHandler("DeleteRecord", ExtractionServer.DeleteRecord)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fleetops/v1/extraction.proto",
}

type structMethod func(ExtractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call structMethod) grpc.MethodHandler {
	fullMethod := "/" + ExtractionServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ExtractionService implements ExtractionServer on top of the same
// dependencies as the HTTP handlers.
type ExtractionService struct {
	deps   Deps
	logger *slog.Logger
}

func NewExtractionService(d Deps) *ExtractionService {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &ExtractionService{deps: d, logger: d.Logger.With("component", "grpc")}
}

func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	if v, ok := fields["file_id"]; ok {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, common.InvalidArgumentError("file_id must be a UUID")
		}
		out, err := s.deps.Extractor.ProcessFile(ctx, id, nil)
		if err != nil {
			return nil, common.GRPCStatus(err)
		}
		return toStruct(out)
	}

	text := fields["text"].GetStringValue()
	v := common.NewValidator().Field("text", text, common.Required, common.MaxLength(maxPasteBytes))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	res, err := s.deps.Extractor.ExtractText(ctx, text)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return toStruct(res)
}

func (s *ExtractionService) ListRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q := url.Values{}
	for k, v := range req.GetFields() {
		switch x := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			q.Set(k, x.StringValue)
		case *structpb.Value_BoolValue:
			q.Set(k, strconv.FormatBool(x.BoolValue))
		case *structpb.Value_NumberValue:
			q.Set(k, strconv.FormatFloat(x.NumberValue, 'f', -1, 64))
		}
	}
	f, err := filterFromQuery(q, s.deps.Extractor.Options())
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	recs, err := s.deps.Records.List(ctx, f)
	if err != nil {
		s.logger.Error("list records failed", "error", err)
		return nil, common.GRPCStatus(common.PersistenceError("list records", err))
	}
	return toStruct(recordsResponse{Records: recs, Count: len(recs)})
}

func (s *ExtractionService) DeleteRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuid.Parse(req.GetFields()["id"].GetStringValue())
	if err != nil {
		return nil, common.InvalidArgumentError("id must be a UUID")
	}
	if err := s.deps.Records.Delete(ctx, id); err != nil {
		return nil, common.GRPCStatus(repoError("delete record", err))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

// UnaryLogger logs each RPC with its status code.
func UnaryLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "grpc.request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// NewGRPCServer builds a server with the extraction, health and reflection
// services registered.
func NewGRPCServer(d Deps) (*grpc.Server, *health.Server) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryLogger(d.Logger.With("component", "grpc"))))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ExtractionServiceName, healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl
	reflection.Register(s)

	RegisterExtractionServer(s, NewExtractionService(d))
	return s, hs
}
