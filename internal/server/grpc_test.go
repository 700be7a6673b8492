package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

func dialBuf(t *testing.T, d Deps) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s, _ := NewGRPCServer(d)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+ExtractionServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPCExtractionService(t *testing.T) {
	t.Parallel()
	d := newDeps(t)
	conn := dialBuf(t, d)

	out, err := invoke(t, conn, "Extract", map[string]any{"text": "Agendamento  Frota\n08:00  40167\n09:30  32231"})
	require.NoError(t, err)
	require.Equal(t, extract.SourceSameLine, out.Fields["strategy_used"].GetStringValue())
	require.Len(t, out.Fields["records"].GetListValue().GetValues(), 2)

	_, err = invoke(t, conn, "Extract", map[string]any{"text": "nada"})
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = invoke(t, conn, "Extract", map[string]any{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, "Extract", map[string]any{"file_id": "00000000-0000-0000-0000-000000000001"})
	require.Equal(t, codes.NotFound, status.Code(err))

	rec, err := extract.Manual(extract.ManualInput{Time: "10:00", FleetNumber: "55555"}, extract.Options{})
	require.NoError(t, err)
	saved, err := d.Records.Save(context.Background(), nil, nil, []extract.Record{rec})
	require.NoError(t, err)

	out, err = invoke(t, conn, "ListRecords", map[string]any{"fleet": "55555", "validated": true, "limit": 10})
	require.NoError(t, err)
	require.Equal(t, float64(1), out.Fields["count"].GetNumberValue())

	_, err = invoke(t, conn, "ListRecords", map[string]any{"limit": 0})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, "DeleteRecord", map[string]any{"id": saved[0].ID.String()})
	require.NoError(t, err)
	_, err = invoke(t, conn, "DeleteRecord", map[string]any{"id": saved[0].ID.String()})
	require.Equal(t, codes.NotFound, status.Code(err))
	_, err = invoke(t, conn, "DeleteRecord", map[string]any{"id": "x"})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	hc, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ExtractionServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.GetStatus())
}
