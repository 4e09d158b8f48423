// Package rpc serves the scheduling API over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON shapes as the HTTP API.
package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-scheduling-api/internal/auth"
	"clinic-scheduling-api/internal/handler"
	"clinic-scheduling-api/internal/model"
)

const ServiceName = "consultas.v1.SchedulingService"

// OpenMethods need no access token.
var OpenMethods = []string{
	"/" + ServiceName + "/Register",
	"/" + ServiceName + "/Login",
}

type SchedulingServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAppointments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindByPatient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindByDoctor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(SchedulingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SchedulingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(SchedulingServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Register", SchedulingServiceServer.Register),
		method("Login", SchedulingServiceServer.Login),
		method("ListAppointments", SchedulingServiceServer.ListAppointments),
		method("GetAppointment", SchedulingServiceServer.GetAppointment),
		method("FindByPatient", SchedulingServiceServer.FindByPatient),
		method("FindByDoctor", SchedulingServiceServer.FindByDoctor),
		method("CreateAppointment", SchedulingServiceServer.CreateAppointment),
		method("UpdateAppointment", SchedulingServiceServer.UpdateAppointment),
		method("DeleteAppointment", SchedulingServiceServer.DeleteAppointment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "consultas/v1/scheduling.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Server implements SchedulingServiceServer on top of the domain services.
type Server struct {
	auth  handler.AuthService
	sched handler.Scheduler
}

func NewServer(a handler.AuthService, s handler.Scheduler) *Server {
	return &Server{auth: a, sched: s}
}

type idRequest struct {
	ID int64 `json:"id"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Type     string `json:"type"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRequest struct {
	ID int64 `json:"id"`
	handler.UpdateRequest
}

func (s *Server) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req registerRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(ctx, err)
	}
	err := s.auth.Register(ctx, auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Type:     req.Type,
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encode(ctx, map[string]string{"message": "Usuário registrado no sistema."})
}

func (s *Server) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req loginRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(ctx, err)
	}
	tok, err := s.auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encode(ctx, map[string]string{"token": tok})
}

func (s *Server) ListAppointments(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.sched.List(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encodeList(ctx, list)
}

func (s *Server) GetAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	a, err := s.sched.Get(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encode(ctx, handler.ToJSON(a))
}

func (s *Server) FindByPatient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req nameRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(ctx, err)
	}
	list, err := s.sched.FindByPatient(ctx, req.Name)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encodeList(ctx, list)
}

func (s *Server) FindByDoctor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req nameRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(ctx, err)
	}
	list, err := s.sched.FindByDoctor(ctx, req.Name)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encodeList(ctx, list)
}

func (s *Server) CreateAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req handler.CreateRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(ctx, err)
	}
	id, err := s.sched.Create(ctx, req.Input())
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encode(ctx, map[string]any{"message": "Consulta agendada com sucesso!", "id": id})
}

func (s *Server) UpdateAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(ctx, err)
	}
	if req.ID <= 0 {
		return nil, toStatus(ctx, model.NewValidationError("ID inválido: %d.", req.ID))
	}
	a, err := s.sched.Update(ctx, req.ID, req.Input())
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encode(ctx, handler.ToJSON(a))
}

func (s *Server) DeleteAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	if err := s.sched.Delete(ctx, id); err != nil {
		return nil, toStatus(ctx, err)
	}
	return encode(ctx, map[string]string{"message": "Consulta removida com sucesso!"})
}

func decodeID(in *structpb.Struct) (int64, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return 0, err
	}
	if req.ID <= 0 {
		return 0, model.NewValidationError("ID inválido: %d.", req.ID)
	}
	return req.ID, nil
}

// decode copies a Struct into v through its JSON form.
func decode(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return model.NewValidationError("Mensagem inválida.")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return model.NewValidationError("Mensagem inválida.")
	}
	return nil
}

func encode(ctx context.Context, v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, toStatus(ctx, err)
	}
	return out, nil
}

func encodeList(ctx context.Context, list []model.Appointment) (*structpb.Struct, error) {
	return encode(ctx, map[string]any{"consultas": handler.ToJSONList(list)})
}

// CodeOf maps an error kind to its gRPC status code.
func CodeOf(err error) codes.Code {
	switch model.KindOf(err) {
	case model.KindValidation:
		return codes.InvalidArgument
	case model.KindAuth:
		return codes.Unauthenticated
	case model.KindNotFound:
		return codes.NotFound
	case model.KindConflict:
		return codes.AlreadyExists
	}
	return codes.Internal
}

func toStatus(ctx context.Context, err error) error {
	code := CodeOf(err)
	if code == codes.Internal {
		slog.ErrorContext(ctx, "rpc failed", slog.Any("error", err))
	}
	return status.Error(code, model.Message(err))
}

// Logging logs one line per unary call, leveled by outcome.
func Logging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		level := slog.LevelInfo
		switch code {
		case codes.OK:
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			level = slog.LevelError
		default:
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "grpc_request",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
		)
		return resp, err
	}
}

// Recovery converts a handler panic into codes.Internal.
func Recovery(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered", slog.Any("panic", r), slog.String("method", info.FullMethod))
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return next(ctx, req)
}
