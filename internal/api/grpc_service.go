package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"consultbook/internal/auth"
	"consultbook/internal/domain"
	"consultbook/internal/models"
	"consultbook/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const grpcServiceName = "consultbook.v1.BookingLifecycle"

const errorCodeTrailer = "x-error-code"

// BookingLifecycleServer is the gRPC surface of the lifecycle. Messages are
// google.protobuf.Struct with the same field names as the JSON API.
type BookingLifecycleServer interface {
	ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ConfirmBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CompleteBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RescheduleBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SubmitFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type lifecycleCall func(BookingLifecycleServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call lifecycleCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingLifecycleServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + grpcServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var bookingLifecycleDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*BookingLifecycleServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ListBookings", BookingLifecycleServer.ListBookings),
		unaryMethod("CancelBooking", BookingLifecycleServer.CancelBooking),
		unaryMethod("ConfirmBooking", BookingLifecycleServer.ConfirmBooking),
		unaryMethod("CompleteBooking", BookingLifecycleServer.CompleteBooking),
		unaryMethod("RescheduleBooking", BookingLifecycleServer.RescheduleBooking),
		unaryMethod("SubmitFeedback", BookingLifecycleServer.SubmitFeedback),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "consultbook/v1/booking_lifecycle.proto",
}

// LifecycleService adapts the booking services to gRPC.
type LifecycleService struct {
	svc Services
}

func NewLifecycleService(svc Services) *LifecycleService {
	return &LifecycleService{svc: svc}
}

func (s *LifecycleService) ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter := domain.BookingFilter{
		Query: stringField(req, "q"),
		Page:  intField(req, "page"),
		Limit: intField(req, "limit"),
	}
	if raw := stringField(req, "status"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			return nil, grpcError(ctx, fmt.Errorf("%w: %w", service.ErrInvalidInput, err))
		}
		filter.Status = &st
	}

	page, err := s.svc.Bookings.ListBookings(ctx, grpcActor(ctx), stringField(req, "customer"), filter)
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return toStruct(page)
}

func (s *LifecycleService) CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, req, s.svc.Bookings.CancelBooking)
}

func (s *LifecycleService) ConfirmBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, req, s.svc.Bookings.ConfirmBooking)
}

func (s *LifecycleService) CompleteBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, req, s.svc.Bookings.CompleteBooking)
}

func (s *LifecycleService) transition(
	ctx context.Context,
	req *structpb.Struct,
	apply func(context.Context, models.Actor, string) (*models.BookingView, error),
) (*structpb.Struct, error) {
	id := stringField(req, "bookingId")
	if id == "" {
		return nil, grpcError(ctx, fmt.Errorf("%w: bookingId is required", service.ErrInvalidInput))
	}
	view, err := apply(ctx, grpcActor(ctx), id)
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return toStruct(view)
}

func (s *LifecycleService) RescheduleBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "bookingId")
	if id == "" {
		return nil, grpcError(ctx, fmt.Errorf("%w: bookingId is required", service.ErrInvalidInput))
	}
	view, err := s.svc.Bookings.RescheduleBooking(ctx, grpcActor(ctx), id, stringField(req, "date"), stringField(req, "time"))
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return toStruct(view)
}

func (s *LifecycleService) SubmitFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fb, err := s.svc.Feedbacks.Submit(ctx, grpcActor(ctx), service.SubmitFeedbackInput{
		BookingID:         stringField(req, "bookingId"),
		ConsultantRating:  intField(req, "consultantRating"),
		ConsultantComment: stringField(req, "consultantComment"),
		ServiceRating:     intField(req, "serviceRating"),
		ServiceComment:    stringField(req, "serviceComment"),
	})
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return toStruct(fb)
}

func grpcActor(ctx context.Context) models.Actor {
	actor, _ := auth.ActorFromContext(ctx)
	return actor
}

// grpcError converts err to a status and reports the rejection code in a trailer.
func grpcError(ctx context.Context, err error) error {
	f := classify(err)
	_ = grpc.SetTrailer(ctx, metadata.Pairs(errorCodeTrailer, f.code))
	return status.Error(f.grpcCode, f.message)
}

func stringField(s *structpb.Struct, key string) string {
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

func intField(s *structpb.Struct, key string) int {
	return int(s.GetFields()[key].GetNumberValue())
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
