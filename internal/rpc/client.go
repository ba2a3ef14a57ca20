package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Varun5711/shortbox/internal/dispatch"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/service"
)

// Client talks to a url-service. It implements both service.Creator and
// dispatch.Lookup, so gateways can use it in place of a local store.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

var (
	_ service.Creator = (*Client)(nil)
	_ dispatch.Lookup = (*Client)(nil)
)

// Dial connects to address. timeout bounds each call when the caller's
// context has no deadline; zero disables it.
func Dial(address string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to url-service at %s: %w", address, err)
	}

	return &Client{conn: conn, timeout: timeout}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) ShortenURL(ctx context.Context, req models.ShortenURLRequest) (*models.CreatedResponse, error) {
	return invoke[models.CreatedResponse](ctx, c, "ShortenURL", &req)
}

func (c *Client) CreateLinkList(ctx context.Context, req models.CreateLinkListRequest) (*models.CreatedResponse, error) {
	return invoke[models.CreatedResponse](ctx, c, "CreateLinkList", &req)
}

func (c *Client) CreateClip(ctx context.Context, req models.CreateClipRequest) (*models.CreatedResponse, error) {
	return invoke[models.CreatedResponse](ctx, c, "CreateClip", &req)
}

func (c *Client) FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error) {
	return invoke[models.RedirectEntry](ctx, c, "GetRedirect", &LookupRequest{Code: code, Now: now})
}

func (c *Client) FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error) {
	return invoke[models.LinkList](ctx, c, "GetLinkList", &LookupRequest{Code: code, Now: now})
}

func (c *Client) FindActiveClip(ctx context.Context, code string, now time.Time) (*models.ClipboardEntry, error) {
	return invoke[models.ClipboardEntry](ctx, c, "GetClip", &LookupRequest{Code: code, Now: now})
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req interface{}) (*Resp, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out := new(Resp)
	if err := c.conn.Invoke(ctx, fullMethod(method), req, out); err != nil {
		return nil, fromStatus(method, err)
	}
	return out, nil
}
