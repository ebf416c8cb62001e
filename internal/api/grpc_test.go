package api

import (
	"context"
	"net"
	"testing"

	"consultbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestGRPC(t *testing.T, env *testEnv) *grpc.ClientConn {
	t.Helper()
	srv, err := newGRPCServer(env.cfg, env.svc, env.issuer, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv.listener = lis
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, req map[string]any, trailer *metadata.MD) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	opts := []grpc.CallOption{}
	if trailer != nil {
		opts = append(opts, grpc.Trailer(trailer))
	}
	err = conn.Invoke(ctx, "/"+grpcServiceName+"/"+method, in, out, opts...)
	return out, err
}

func withToken(t *testing.T, env *testEnv, actor models.Actor) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+env.token(t, actor))
}

func TestGRPC_CancelBooking(t *testing.T) {
	env := newTestEnv(t)
	conn := newTestGRPC(t, env)
	b := env.seedBooking(t)
	ctx := withToken(t, env, testCustomer)

	out, err := invoke(ctx, conn, "CancelBooking", map[string]any{"bookingId": b.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", out.GetFields()["status"].GetStringValue())
	assert.Equal(t, b.CheckinCode, out.GetFields()["checkin_code"].GetStringValue())

	var trailer metadata.MD
	_, err = invoke(ctx, conn, "CancelBooking", map[string]any{"bookingId": b.ID}, &trailer)
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, []string{"AlreadyTerminal"}, trailer.Get(errorCodeTrailer))

	_, err = invoke(ctx, conn, "CancelBooking", map[string]any{}, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)
	conn := newTestGRPC(t, env)

	_, err := invoke(context.Background(), conn, "ListBookings", map[string]any{}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer junk")
	_, err = invoke(bad, conn, "ListBookings", map[string]any{}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPC_ListAndReschedule(t *testing.T) {
	env := newTestEnv(t)
	conn := newTestGRPC(t, env)
	b := env.seedBooking(t)
	ctx := withToken(t, env, testCustomer)

	out, err := invoke(ctx, conn, "ListBookings", map[string]any{"customer": "cust-1"}, nil)
	require.NoError(t, err)
	items := out.GetFields()["items"].GetListValue().GetValues()
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].GetStructValue().GetFields()["id"].GetStringValue())

	out, err = invoke(ctx, conn, "RescheduleBooking", map[string]any{"bookingId": b.ID, "date": "2030-07-01", "time": "12:00"}, nil)
	require.NoError(t, err)
	assert.True(t, out.GetFields()["reschedule_used"].GetBoolValue())

	var trailer metadata.MD
	_, err = invoke(ctx, conn, "RescheduleBooking", map[string]any{"bookingId": b.ID, "date": "2030-07-02", "time": "12:00"}, &trailer)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, []string{"RescheduleAlreadyUsed"}, trailer.Get(errorCodeTrailer))

	_, err = invoke(withToken(t, env, testConsultant), conn, "ListBookings", map[string]any{"customer": "cust-1"}, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestGRPC_SubmitFeedback(t *testing.T) {
	env := newTestEnv(t)
	conn := newTestGRPC(t, env)
	b := env.seedBooking(t)

	staffCtx := withToken(t, env, testStaff)
	_, err := invoke(staffCtx, conn, "ConfirmBooking", map[string]any{"bookingId": b.ID}, nil)
	require.NoError(t, err)
	_, err = invoke(staffCtx, conn, "CompleteBooking", map[string]any{"bookingId": b.ID}, nil)
	require.NoError(t, err)

	ctx := withToken(t, env, testCustomer)
	req := map[string]any{"bookingId": b.ID, "consultantRating": 5, "serviceRating": 5, "serviceComment": "great"}
	out, err := invoke(ctx, conn, "SubmitFeedback", req, nil)
	require.NoError(t, err)
	assert.Equal(t, b.ID, out.GetFields()["booking_id"].GetStringValue())

	_, err = invoke(ctx, conn, "SubmitFeedback", req, nil)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGRPC_HealthWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	conn := newTestGRPC(t, env)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: grpcServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
