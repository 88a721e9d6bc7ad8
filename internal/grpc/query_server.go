package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"userSupplement/internal/auth"
	"userSupplement/internal/scheduler"
	"userSupplement/internal/service"
)

// JobRunner runs one job synchronously. *scheduler.Runner implements it.
type JobRunner interface {
	RunOnce(ctx context.Context, name string) (any, error)
}

// Server implements QueryServiceServer over the service layer.
type Server struct {
	Users  *service.UserService
	Stats  *service.StatsService
	Runner JobRunner
}

var _ QueryServiceServer = (*Server)(nil)

func (s *Server) GetStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireReader(ctx); err != nil {
		return nil, err
	}
	st, err := s.Stats.ComprehensiveStats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(st)
}

func (s *Server) GetUserStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireReader(ctx); err != nil {
		return nil, err
	}
	st, err := s.Stats.UserStats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(st)
}

func (s *Server) GetUserByExternalID(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireReader(ctx); err != nil {
		return nil, err
	}
	id, err := requiredInt(in, "external_id")
	if err != nil {
		return nil, err
	}
	u, err := s.Users.GetUserByExternalID(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(u)
}

func (s *Server) GetUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireReader(ctx); err != nil {
		return nil, err
	}
	id, err := requiredInt(in, "id")
	if err != nil {
		return nil, err
	}
	d, err := s.Users.GetUserWithRelations(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(d)
}

func (s *Server) ListUsers(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireReader(ctx); err != nil {
		return nil, err
	}
	limit, err := optionalInt(in, "limit")
	if err != nil {
		return nil, err
	}
	offset, err := optionalInt(in, "offset")
	if err != nil {
		return nil, err
	}
	users, err := s.Users.ListUsers(ctx, int(limit), int(offset))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"users": users})
}

func (s *Server) ListAddresses(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireReader(ctx); err != nil {
		return nil, err
	}
	userID, err := requiredInt(in, "user_id")
	if err != nil {
		return nil, err
	}
	addrs, err := s.Users.AddressesByUser(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"addresses": addrs})
}

func (s *Server) ListCreditCards(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireReader(ctx); err != nil {
		return nil, err
	}
	userID, err := requiredInt(in, "user_id")
	if err != nil {
		return nil, err
	}
	cards, err := s.Users.CreditCardsByUser(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"credit_cards": cards})
}

// RunJob runs a job to completion, including retries, and returns its result.
func (s *Server) RunJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	name := in.GetFields()["name"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if s.Runner == nil {
		return nil, status.Error(codes.Unavailable, "job runner not configured")
	}
	res, err := s.Runner.RunOnce(ctx, name)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"job": name, "result": res})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, scheduler.ErrUnknownJob):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}

// toStruct converts v through its JSON form so field names follow the json tags.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func requiredInt(in *structpb.Struct, key string) (int64, error) {
	if _, ok := in.GetFields()[key]; !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return optionalInt(in, key)
}

// optionalInt reads a whole number; a missing key yields 0.
func optionalInt(in *structpb.Struct, key string) (int64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
	}
	return int64(n.NumberValue), nil
}
