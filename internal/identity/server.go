package identity

import (
	"context"

	"github.com/danielpatrickdp/decisionmaker/internal/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region backend
// Backend is what the identity server serves.
type Backend interface {
	session.IdentityProvider
	session.ProfileStore
}

type backend struct {
	session.IdentityProvider
	session.ProfileStore
}

// NewBackend pairs an identity provider with a profile store.
func NewBackend(idp session.IdentityProvider, profiles session.ProfileStore) Backend {
	return backend{IdentityProvider: idp, ProfileStore: profiles}
}

// #endregion backend

// #region register
// Register installs the identity, profile and health services on s.
func Register(s *grpc.Server, b Backend) *health.Server {
	s.RegisterService(&identityServiceDesc, b)
	s.RegisterService(&profileServiceDesc, b)

	hs := health.NewServer()
	hs.SetServingStatus(identityServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(profileServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// #endregion register

// #region service-desc
var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: identityServiceName,
	HandlerType: (*session.IdentityProvider)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCurrentUser", Handler: getCurrentUserHandler},
		{MethodName: "SignOut", Handler: signOutHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "decisionmaker/identity/v1/identity.proto",
}

var profileServiceDesc = grpc.ServiceDesc{
	ServiceName: profileServiceName,
	HandlerType: (*session.ProfileStore)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDisplayName", Handler: getDisplayNameHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "decisionmaker/identity/v1/identity.proto",
}

// #endregion service-desc

// #region handlers
func getCurrentUserHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, _ interface{}) (interface{}, error) {
		u, err := srv.(session.IdentityProvider).CurrentUser(ctx)
		if err != nil {
			return nil, status.Errorf(codes.Unavailable, "current user: %v", err)
		}
		if u == nil || u.ID == "" {
			return nil, status.Error(codes.NotFound, "no signed-in user")
		}
		return wrapperspb.String(u.ID), nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetCurrentUser}
	return interceptor(ctx, in, info, call)
}

func signOutHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, _ interface{}) (interface{}, error) {
		if err := srv.(session.IdentityProvider).SignOut(ctx); err != nil {
			return nil, status.Errorf(codes.Internal, "sign out: %v", err)
		}
		return &emptypb.Empty{}, nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSignOut}
	return interceptor(ctx, in, info, call)
}

func getDisplayNameHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		userID := req.(*wrapperspb.StringValue).GetValue()
		if userID == "" {
			return nil, status.Error(codes.InvalidArgument, "user id is required")
		}
		name, ok, err := srv.(session.ProfileStore).DisplayName(ctx, userID)
		if err != nil {
			return nil, status.Errorf(codes.Unavailable, "display name: %v", err)
		}
		if !ok {
			return nil, status.Errorf(codes.NotFound, "no profile for %s", userID)
		}
		return wrapperspb.String(name), nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetDisplayName}
	return interceptor(ctx, in, info, call)
}

// #endregion handlers
