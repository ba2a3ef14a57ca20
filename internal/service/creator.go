package service

import (
	"context"

	"github.com/Varun5711/shortbox/internal/models"
)

// Creator is the creation API shared by *Service and the gRPC client.
type Creator interface {
	ShortenURL(ctx context.Context, req models.ShortenURLRequest) (*models.CreatedResponse, error)
	CreateLinkList(ctx context.Context, req models.CreateLinkListRequest) (*models.CreatedResponse, error)
	CreateClip(ctx context.Context, req models.CreateClipRequest) (*models.CreatedResponse, error)
}

var _ Creator = (*Service)(nil)
