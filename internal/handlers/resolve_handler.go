package handlers

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/Varun5711/shortbox/internal/dispatch"
	"github.com/Varun5711/shortbox/internal/events"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
	"github.com/Varun5711/shortbox/internal/middleware"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/qrcode"
	"github.com/Varun5711/shortbox/internal/service"
)

const publishTimeout = time.Second

type ResolveConfig struct {
	BaseURL string
	// RedirectDelay > 0 shows an interstitial page instead of a 302.
	RedirectDelay time.Duration
	IPHashKey     string
}

// ResolveHandler turns every request path into a dispatcher outcome and
// renders it.
type ResolveHandler struct {
	dispatcher *dispatch.Dispatcher
	publisher  events.Publisher
	cfg        ResolveConfig
	pages      pages
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewResolveHandler(d *dispatch.Dispatcher, publisher events.Publisher, cfg ResolveConfig, log *logger.Logger, m *metrics.Metrics) (*ResolveHandler, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	return &ResolveHandler{
		dispatcher: d,
		publisher:  publisher,
		cfg:        cfg,
		pages:      p,
		log:        log,
		metrics:    m,
	}, nil
}

type interstitialPage struct {
	Target   template.URL
	ShortURL string
	QRCode   template.URL
	Seconds  int
}

type listPage struct {
	Code string
	List *models.LinkList
}

type clipPage struct {
	Code string
	Clip *models.ClipboardEntry
}

type notFoundPage struct {
	Message string
}

func (h *ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.dispatcher.Dispatch(r.Context(), r.URL.Path)
	if err != nil {
		h.log.Error("Failed to resolve %s: %v", r.URL.Path, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.publish(r, outcome)

	switch outcome.Kind {
	case dispatch.Landing:
		err = h.pages.render(w, http.StatusOK, "landing", nil)
	case dispatch.Redirect:
		err = h.redirect(w, r, outcome)
	case dispatch.List:
		err = h.pages.render(w, http.StatusOK, "list", listPage{Code: outcome.Code, List: outcome.List})
	case dispatch.Clip:
		err = h.pages.render(w, http.StatusOK, "clip", clipPage{Code: outcome.Code, Clip: outcome.Clip})
	default:
		err = h.pages.render(w, http.StatusNotFound, "notfound", notFoundPage{Message: NotFoundMessage(outcome.Missing)})
	}
	if err != nil {
		h.log.Error("Failed to render %s page: %v", outcome.Kind, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *ResolveHandler) redirect(w http.ResponseWriter, r *http.Request, outcome dispatch.Outcome) error {
	target := outcome.Redirect.OriginalURL
	if h.cfg.RedirectDelay <= 0 {
		http.Redirect(w, r, target, http.StatusFound)
		return nil
	}

	shortURL := service.ShortURL(h.cfg.BaseURL, models.KindRedirect, outcome.Code)
	page := interstitialPage{
		Target:   template.URL(target),
		ShortURL: shortURL,
		Seconds:  int((h.cfg.RedirectDelay + time.Second - 1) / time.Second),
	}
	if uri, err := qrcode.GenerateDataURI(shortURL); err == nil {
		page.QRCode = template.URL(uri)
	}

	return h.pages.render(w, http.StatusOK, "interstitial", page)
}

// NotFoundMessage is the text shown when nothing live matched.
func NotFoundMessage(missing models.Kind) string {
	switch missing {
	case models.KindList:
		return "Link list not found or expired."
	case models.KindClip:
		return "Clipboard entry not found or expired."
	default:
		return "Page not found."
	}
}

func (h *ResolveHandler) publish(r *http.Request, outcome dispatch.Outcome) {
	if h.publisher == nil || outcome.Kind == dispatch.Landing {
		return
	}

	event := &events.ResolutionEvent{
		Outcome:   outcome.Kind.String(),
		Kind:      string(outcome.Missing),
		ShortCode: outcome.Code,
		Timestamp: time.Now().UTC(),
		IPHash:    events.HashIP([]byte(h.cfg.IPHashKey), middleware.ClientIP(r)),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
	switch outcome.Kind {
	case dispatch.Redirect:
		event.Kind = string(models.KindRedirect)
		event.Target = outcome.Redirect.OriginalURL
	case dispatch.List:
		event.Kind = string(models.KindList)
	case dispatch.Clip:
		event.Kind = string(models.KindClip)
	}
	if event.ShortCode == "" {
		event.ShortCode = strings.Trim(r.URL.Path, "/")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
	defer cancel()

	err := h.publisher.Publish(ctx, event)
	h.metrics.EventPublished(err == nil)
	if err != nil {
		h.log.Warn("Failed to publish resolution event: %v", err)
	}
}
