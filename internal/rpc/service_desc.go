package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/Varun5711/shortbox/internal/models"
)

const ServiceName = "shortbox.v1.Shortener"

// LookupRequest asks for an active entity. Now is the caller's clock; the
// server uses its own when it is zero.
type LookupRequest struct {
	Code string    `json:"code"`
	Now  time.Time `json:"now,omitempty"`
}

type ShortenerServer interface {
	ShortenURL(ctx context.Context, req *models.ShortenURLRequest) (*models.CreatedResponse, error)
	CreateLinkList(ctx context.Context, req *models.CreateLinkListRequest) (*models.CreatedResponse, error)
	CreateClip(ctx context.Context, req *models.CreateClipRequest) (*models.CreatedResponse, error)
	GetRedirect(ctx context.Context, req *LookupRequest) (*models.RedirectEntry, error)
	GetLinkList(ctx context.Context, req *LookupRequest) (*models.LinkList, error)
	GetClip(ctx context.Context, req *LookupRequest) (*models.ClipboardEntry, error)
}

var ShortenerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShortenerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ShortenURL", ShortenerServer.ShortenURL),
		unary("CreateLinkList", ShortenerServer.CreateLinkList),
		unary("CreateClip", ShortenerServer.CreateClip),
		unary("GetRedirect", ShortenerServer.GetRedirect),
		unary("GetLinkList", ShortenerServer.GetLinkList),
		unary("GetClip", ShortenerServer.GetClip),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shortbox/v1/shortener",
}

func RegisterShortenerServer(s grpc.ServiceRegistrar, srv ShortenerServer) {
	s.RegisterService(&ShortenerServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](method string, call func(ShortenerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ShortenerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(method),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ShortenerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
