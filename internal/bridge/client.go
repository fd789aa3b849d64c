package bridge

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the bridge service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a bridge listening on network/address.
func Dial(network, address string, opts ...grpc.DialOption) (*Client, error) {
	target := address
	if network == "unix" {
		target = "unix:" + address
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

// APIGet calls ApiGet.
func (c *Client) APIGet(ctx context.Context, path string) (any, error) {
	return c.call(ctx, MethodAPIGet, map[string]any{"path": path})
}

// APIPost calls ApiPost.
func (c *Client) APIPost(ctx context.Context, path string, body any) (any, error) {
	return c.call(ctx, MethodAPIPost, map[string]any{"path": path, "body": body})
}

// OpenExternal calls OpenExternal.
func (c *Client) OpenExternal(ctx context.Context, url string) (any, error) {
	return c.call(ctx, MethodOpenExternal, map[string]any{"url": url})
}

// SavePNG calls SavePng.
func (c *Client) SavePNG(ctx context.Context, filename, dataURL string) (any, error) {
	return c.call(ctx, MethodSavePNG, map[string]any{"filename": filename, "dataUrl": dataURL})
}

// SavePDF calls SavePdf.
func (c *Client) SavePDF(ctx context.Context, filename string) (any, error) {
	return c.call(ctx, MethodSavePDF, map[string]any{"filename": filename})
}

// ToDataURL calls ToDataUrl. A zero width uses the server default.
func (c *Client) ToDataURL(ctx context.Context, text string, width int) (string, error) {
	req := map[string]any{"text": text}
	if width > 0 {
		req["width"] = width
	}
	out, err := c.call(ctx, MethodToDataURL, req)
	if err != nil {
		return "", err
	}
	s, _ := out.(string)
	return s, nil
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any) (any, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Value)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out); err != nil {
		return nil, err
	}
	return out.AsInterface(), nil
}
