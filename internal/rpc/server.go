package rpc

import (
	"context"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Varun5711/shortbox/internal/dispatch"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/service"
)

// Server exposes creation and lookups of one store over gRPC.
type Server struct {
	creator service.Creator
	lookup  dispatch.Lookup
	log     *logger.Logger
	now     func() time.Time
}

var _ ShortenerServer = (*Server)(nil)

func NewServer(creator service.Creator, lookup dispatch.Lookup, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		creator: creator,
		lookup:  lookup,
		log:     log,
		now:     time.Now,
	}
}

// NewGRPCServer builds a grpc.Server with logging and panic recovery and
// registers s on it.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.loggingInterceptor))
	gs := grpc.NewServer(opts...)
	RegisterShortenerServer(gs, s)
	return gs
}

func (s *Server) ShortenURL(ctx context.Context, req *models.ShortenURLRequest) (*models.CreatedResponse, error) {
	resp, err := s.creator.ShortenURL(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *Server) CreateLinkList(ctx context.Context, req *models.CreateLinkListRequest) (*models.CreatedResponse, error) {
	resp, err := s.creator.CreateLinkList(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *Server) CreateClip(ctx context.Context, req *models.CreateClipRequest) (*models.CreatedResponse, error) {
	resp, err := s.creator.CreateClip(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *Server) GetRedirect(ctx context.Context, req *LookupRequest) (*models.RedirectEntry, error) {
	if req.Code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}
	entry, err := s.lookup.FindActiveRedirect(ctx, req.Code, s.at(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return entry, nil
}

func (s *Server) GetLinkList(ctx context.Context, req *LookupRequest) (*models.LinkList, error) {
	if req.Code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}
	list, err := s.lookup.FindActiveList(ctx, req.Code, s.at(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return list, nil
}

func (s *Server) GetClip(ctx context.Context, req *LookupRequest) (*models.ClipboardEntry, error) {
	if req.Code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}
	clip, err := s.lookup.FindActiveClip(ctx, req.Code, s.at(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return clip, nil
}

func (s *Server) at(req *LookupRequest) time.Time {
	if req.Now.IsZero() {
		return s.now()
	}
	return req.Now
}

func (s *Server) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	switch code {
	case codes.OK, codes.NotFound:
		s.log.Debug("%s %s in %v", info.FullMethod, code, time.Since(start))
	case codes.Internal, codes.Unknown:
		s.log.Error("%s %s in %v: %v", info.FullMethod, code, time.Since(start), err)
	default:
		s.log.Info("%s %s in %v: %v", info.FullMethod, code, time.Since(start), err)
	}

	return resp, err
}

func (s *Server) recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Panic in %s: %v\n%s", info.FullMethod, r, debug.Stack())
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
