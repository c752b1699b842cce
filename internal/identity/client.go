package identity

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/decisionmaker/internal/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region methods
const (
	identityServiceName = "decisionmaker.identity.v1.IdentityService"
	profileServiceName  = "decisionmaker.identity.v1.ProfileService"

	methodGetCurrentUser = "/" + identityServiceName + "/GetCurrentUser"
	methodSignOut        = "/" + identityServiceName + "/SignOut"
	methodGetDisplayName = "/" + profileServiceName + "/GetDisplayName"
)

// #endregion methods

// #region client-struct
// Client talks to the identity service over gRPC. It satisfies both
// session.IdentityProvider and session.ProfileStore.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

var (
	_ session.IdentityProvider = (*Client)(nil)
	_ session.ProfileStore     = (*Client)(nil)
)

// #endregion client-struct

// #region constructor
// NewClient connects to the identity gRPC server.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
// Used for testing without a real network listener.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region current-user
// CurrentUser asks the service who is signed in. NotFound means nobody.
func (c *Client) CurrentUser(ctx context.Context) (*session.User, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, methodGetCurrentUser, &emptypb.Empty{}, out)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current user rpc: %w", err)
	}
	if out.GetValue() == "" {
		return nil, nil
	}
	return &session.User{ID: out.GetValue()}, nil
}

// #endregion current-user

// #region sign-out
// SignOut ends the remote session.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.cc.Invoke(ctx, methodSignOut, &emptypb.Empty{}, new(emptypb.Empty)); err != nil {
		return fmt.Errorf("sign out rpc: %w", err)
	}
	return nil
}

// #endregion sign-out

// #region display-name
// DisplayName fetches the profile display name for userID. NotFound means no profile.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, bool, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, methodGetDisplayName, wrapperspb.String(userID), out)
	if status.Code(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get display name rpc: %w", err)
	}
	return out.GetValue(), true, nil
}

// #endregion display-name

// #region health
// Healthy runs the standard gRPC health check against the identity service.
func (c *Client) Healthy(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.cc).Check(ctx, &healthpb.HealthCheckRequest{Service: identityServiceName})
	if err != nil {
		return fmt.Errorf("health rpc: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("identity service status %s", resp.GetStatus())
	}
	return nil
}

// #endregion health
