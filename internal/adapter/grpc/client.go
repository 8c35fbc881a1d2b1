package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the PortfolioService over an established connection
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

// NewClient creates a client; token is sent as the authorization metadata when not empty
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Call invokes method with the given request fields
func (c *Client) Call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", c.token)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetValuation fetches the current valuation of user
func (c *Client) GetValuation(ctx context.Context, user string) (*structpb.Struct, error) {
	return c.Call(ctx, MethodGetValuation, map[string]any{"user_id": user})
}

// GetAnalytics fetches the analytics of user over [from, to)
func (c *Client) GetAnalytics(ctx context.Context, user, from, to, granularity string) (*structpb.Struct, error) {
	return c.Call(ctx, MethodGetAnalytics, map[string]any{
		"user_id":     user,
		"from":        from,
		"to":          to,
		"granularity": granularity,
	})
}

// GetGoalProgress evaluates every goal of user
func (c *Client) GetGoalProgress(ctx context.Context, user, granularity string) (*structpb.Struct, error) {
	return c.Call(ctx, MethodGetGoalProgress, map[string]any{
		"user_id":     user,
		"granularity": granularity,
	})
}
