package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Varun5711/shortbox/internal/expiry"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/qrcode"
	"github.com/Varun5711/shortbox/internal/shortcode"
	"github.com/Varun5711/shortbox/internal/storage"
	"github.com/Varun5711/shortbox/internal/validation"
)

type Config struct {
	BaseURL      string
	MaxAttempts  int
	MaxClipBytes int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service creates redirects, link lists and clipboard entries.
type Service struct {
	store        storage.Store
	allocator    *Allocator
	qr           qrcode.Generator
	log          *logger.Logger
	now          func() time.Time
	baseURL      string
	maxClipBytes int
}

func New(store storage.Store, codes CodeSource, qr qrcode.Generator, log *logger.Logger, m *metrics.Metrics, cfg Config) *Service {
	if qr == nil {
		qr = qrcode.Nop
	}
	if log == nil {
		log = logger.Nop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:        store,
		allocator:    NewAllocator(codes, cfg.MaxAttempts, m),
		qr:           qr,
		log:          log,
		now:          now,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		maxClipBytes: cfg.MaxClipBytes,
	}
}

// ShortURL is where an entry of kind with code resolves.
func ShortURL(baseURL string, kind models.Kind, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + kind.PathPrefix() + code
}

func (s *Service) ShortenURL(ctx context.Context, req models.ShortenURLRequest) (*models.CreatedResponse, error) {
	req.URL = strings.TrimSpace(req.URL)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validation.ValidateURL("url", req.URL); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt, err := resolveExpiration(req.Expiration, now)
	if err != nil {
		return nil, err
	}

	entry := &models.RedirectEntry{
		OriginalURL: req.URL,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}

	insert := func(ctx context.Context, code string) error {
		qrPath := s.renderQR(models.KindRedirect, code)
		entry.ShortCode = code
		entry.QRCodePath = qrPath
		_, err := s.store.InsertRedirect(ctx, entry)
		return err
	}

	attempts := 1
	if req.CustomShortCode != "" {
		if err := validation.ValidateCustomCode(req.CustomShortCode); err != nil {
			return nil, err
		}
		custom := strings.TrimSpace(req.CustomShortCode)
		entry.CustomShortCode = &custom

		if err := s.allocator.AllocateCustom(ctx, models.KindRedirect, shortcode.Fold(custom), insert); err != nil {
			s.log.Warn("Custom code %q rejected: %v", custom, err)
			return nil, err
		}
	} else {
		_, n, err := s.allocator.Allocate(ctx, models.KindRedirect, insert)
		if err != nil {
			s.log.Error("Failed to allocate redirect code after %d attempt(s): %v", n, err)
			return nil, err
		}
		attempts = n
	}

	s.log.Debug("Created redirect %s -> %s", entry.ShortCode, entry.OriginalURL)

	return s.created(models.KindRedirect, entry.ShortCode, entry.ExpiresAt, entry.QRCodePath, attempts, now), nil
}

func (s *Service) CreateLinkList(ctx context.Context, req models.CreateLinkListRequest) (*models.CreatedResponse, error) {
	for i := range req.Items {
		req.Items[i].URL = strings.TrimSpace(req.Items[i].URL)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	for i, item := range req.Items {
		if err := validation.ValidateURL(fmt.Sprintf("items[%d].url", i), item.URL); err != nil {
			return nil, err
		}
	}

	now := s.now()
	expiresAt, err := resolveExpiration(req.Expiration, now)
	if err != nil {
		return nil, err
	}

	items := make([]models.LinkListItem, len(req.Items))
	for i, in := range req.Items {
		items[i] = models.LinkListItem{
			Position:    i,
			URL:         in.URL,
			Title:       in.Title,
			Description: in.Description,
		}
	}

	list := &models.LinkList{
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	code, attempts, err := s.allocator.Allocate(ctx, models.KindList, func(ctx context.Context, code string) error {
		qrPath := s.renderQR(models.KindList, code)
		list.ShortCode = code
		list.QRCodePath = qrPath
		_, err := s.store.InsertListWithItems(ctx, list, items)
		return err
	})
	if err != nil {
		s.log.Error("Failed to create link list after %d attempt(s): %v", attempts, err)
		return nil, err
	}

	s.log.Debug("Created link list %s with %d item(s)", code, len(items))

	return s.created(models.KindList, code, list.ExpiresAt, list.QRCodePath, attempts, now), nil
}

func (s *Service) CreateClip(ctx context.Context, req models.CreateClipRequest) (*models.CreatedResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validation.ValidateClipContent(req.Content, s.maxClipBytes); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt, err := resolveExpiration(req.Expiration, now)
	if err != nil {
		return nil, err
	}

	clip := &models.ClipboardEntry{
		Content:   req.Content,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	code, attempts, err := s.allocator.Allocate(ctx, models.KindClip, func(ctx context.Context, code string) error {
		qrPath := s.renderQR(models.KindClip, code)
		clip.ShortCode = code
		clip.QRCodePath = qrPath
		_, err := s.store.InsertClip(ctx, clip)
		return err
	})
	if err != nil {
		s.log.Error("Failed to create clip after %d attempt(s): %v", attempts, err)
		return nil, err
	}

	s.log.Debug("Created clip %s (%d bytes)", code, len(clip.Content))

	return s.created(models.KindClip, code, clip.ExpiresAt, clip.QRCodePath, attempts, now), nil
}

func (s *Service) created(kind models.Kind, code string, expiresAt *time.Time, qrPath string, attempts int, now time.Time) *models.CreatedResponse {
	return &models.CreatedResponse{
		Kind:       kind,
		ShortCode:  code,
		ShortURL:   ShortURL(s.baseURL, kind, code),
		ExpiresAt:  expiresAt,
		QRCodePath: qrPath,
		Attempts:   attempts,
		CreatedAt:  now,
	}
}

// renderQR stores a QR code for code. A failed render leaves the entry
// without a QR path instead of failing the create.
func (s *Service) renderQR(kind models.Kind, code string) string {
	path, err := s.qr.Generate(code)
	if err != nil {
		s.log.Warn("Failed to generate QR code for %s %s: %v", kind, code, err)
		return ""
	}
	return path
}

func resolveExpiration(token string, now time.Time) (*time.Time, error) {
	opt, err := expiry.Parse(token)
	if err != nil {
		return nil, validation.NewError("expiration", err)
	}

	expiresAt, err := opt.Resolve(now)
	if err != nil {
		return nil, validation.NewError("expiration", err)
	}

	return expiresAt, nil
}
