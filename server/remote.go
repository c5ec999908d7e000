package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// RemoteClient calls a running compile server over gRPC with the CBOR codec.
type RemoteClient struct {
	conn *grpc.ClientConn
}

// NewRemoteClient creates a client for the server at addr (host:port).
// The connection is established lazily on the first call.
func NewRemoteClient(addr string) (*RemoteClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("remote %s: %w", addr, err)
	}
	return &RemoteClient{conn: conn}, nil
}

// Close releases the connection.
func (c *RemoteClient) Close() error {
	return c.conn.Close()
}

func (c *RemoteClient) invoke(ctx context.Context, procedure string, req, res any) error {
	return c.conn.Invoke(ctx, procedure, req, res, grpc.ForceCodec(Codec{}))
}

// Compile compiles one module on the server.
func (c *RemoteClient) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	res := new(CompileResponse)
	if err := c.invoke(ctx, CompileProcedure, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Parse returns a dump of one pipeline stage.
func (c *RemoteClient) Parse(ctx context.Context, req *ParseRequest) (*ParseResponse, error) {
	res := new(ParseResponse)
	if err := c.invoke(ctx, ParseProcedure, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Check compiles and validates a module on the server.
func (c *RemoteClient) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	res := new(CheckResponse)
	if err := c.invoke(ctx, CheckProcedure, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// OpenSession starts an interactive session.
func (c *RemoteClient) OpenSession(ctx context.Context, req *OpenSessionRequest) (*OpenSessionResponse, error) {
	res := new(OpenSessionResponse)
	if err := c.invoke(ctx, OpenSessionProcedure, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// FeedSession feeds one line to a session.
func (c *RemoteClient) FeedSession(ctx context.Context, req *FeedSessionRequest) (*FeedSessionResponse, error) {
	res := new(FeedSessionResponse)
	if err := c.invoke(ctx, FeedSessionProcedure, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// CloseSession discards a session.
func (c *RemoteClient) CloseSession(ctx context.Context, req *CloseSessionRequest) error {
	return c.invoke(ctx, CloseSessionProcedure, req, new(CloseSessionResponse))
}
